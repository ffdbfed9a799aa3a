package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

const (
	minRadiusKm   = 20.0
	maxRadiusKm   = 50.0
	earthRadiusKm = 6371.0
)

// GeofenceService gates interactions by a reputation-weighted radius.
// Locations arrive as grants over encrypted coordinate payloads; the raw
// points only exist in memory for the duration of a distance check.
type GeofenceService struct {
	vault *VaultService
}

func NewGeofenceService(vault *VaultService) *GeofenceService {
	return &GeofenceService{vault: vault}
}

// ComputeRadius maps trust and activity onto an allowed radius in km.
// Monotonic non-decreasing in both inputs and always within [20, 50];
// trust is clamped to its [0.5, 1.0] domain first so out-of-range values
// can't invert the bound.
func (s *GeofenceService) ComputeRadius(inputs models.ReputationInputs) float64 {
	trust := math.Min(math.Max(inputs.TrustScore, 0.5), 1.0)
	trustComponent := 20 + (trust-0.5)*30

	activity := math.Min(float64(inputs.ActivityScore)/10000, 1.0)
	if activity < 0 {
		activity = 0
	}
	activityComponent := activity * 15

	return math.Min(math.Max(trustComponent+activityComponent, minRadiusKm), maxRadiusKm)
}

// WithinRadius opens both encrypted coordinate payloads and compares
// their great-circle distance to radiusKm. A decryption failure on
// either side is a hard error, never "out of range".
func (s *GeofenceService) WithinRadius(ctx context.Context, grantA, grantB string, radiusKm float64) (bool, error) {
	pointA, err := s.openPoint(ctx, grantA)
	if err != nil {
		return false, err
	}
	pointB, err := s.openPoint(ctx, grantB)
	if err != nil {
		return false, err
	}

	return haversineKm(pointA, pointB) <= radiusKm, nil
}

func (s *GeofenceService) openPoint(ctx context.Context, grant string) (models.GeoPoint, error) {
	plaintext, err := s.vault.Open(ctx, grant)
	if err != nil {
		return models.GeoPoint{}, err
	}

	var point models.GeoPoint
	if err := json.Unmarshal(plaintext, &point); err != nil {
		return models.GeoPoint{}, fmt.Errorf("failed to decode coordinates: %w", err)
	}
	return point, nil
}

// haversineKm computes great-circle distance between two points.
func haversineKm(a, b models.GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
