package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanEvent is one node in the lineage graph for a code. ParentScanID is
// the scan whose shared link led here; nil means this scan is a root.
type ScanEvent struct {
	ID           uuid.UUID  `json:"id"`
	CodeID       string     `json:"code_id"`
	ParentScanID *uuid.UUID `json:"parent_scan_id,omitempty"`
	DeviceType   string     `json:"device_type"`
	City         string     `json:"city,omitempty"`
	Country      string     `json:"country,omitempty"`
	ActorHash    string     `json:"actor_hash"`
	Referrer     string     `json:"referrer,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ScanNode is a ScanEvent with its children resolved, ordered by
// created_at ascending so renders are deterministic.
type ScanNode struct {
	Scan     *ScanEvent  `json:"scan"`
	Children []*ScanNode `json:"children,omitempty"`
}

// ScanTree is the forest of scan lineage for one code. Orphaned scans
// (parent referenced but missing from the set) appear as extra roots.
type ScanTree struct {
	CodeID string      `json:"code_id"`
	Roots  []*ScanNode `json:"roots"`
}

// ScanStats is a read-side projection over the scan set for one code.
// Always recomputed from rows; nothing here is incrementally maintained.
type ScanStats struct {
	CodeID           string         `json:"code_id"`
	TotalScans       int            `json:"total_scans"`
	RootScans        int            `json:"root_scans"`
	DeviceTypes      map[string]int `json:"device_types"`
	Locations        map[string]int `json:"locations"`
	ViralCoefficient float64        `json:"viral_coefficient"`
}
