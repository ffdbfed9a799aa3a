package models

// ReputationInputs is the adapter-built view of a caller's standing in the
// external identity system. TrustScore lives in [0.5, 1.0]; ActivityScore
// is non-negative and uncapped. Never persisted by this engine.
type ReputationInputs struct {
	TrustScore    float64 `json:"trust_score"`
	ActivityScore int64   `json:"activity_score"`
}

// GeoPoint is a decrypted coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
