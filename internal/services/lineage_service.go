package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/models"
	"github.com/Soulfra/soulfra-sub002/internal/repositories"
)

// ScanContext carries the caller-side facts about one scan. RawClientIP
// is hashed before anything is persisted.
type ScanContext struct {
	RawClientIP string
	UserAgent   string
	DeviceType  string
	City        string
	Country     string
	Referrer    string
	// AllowCrossCode permits a lineage edge to a parent scan of a
	// different code, e.g. a DM link opened from another code's share.
	AllowCrossCode bool
}

// LineageService records scan events and projects them into trees and
// aggregate stats. Scans form a forest per code: parents must already
// exist, so cycles can't be recorded.
type LineageService struct {
	scanRepo   repositories.ScanRepository
	statsCache repositories.StatsCache
	hasher     *crypto.IdentityHasher
}

func NewLineageService(scanRepo repositories.ScanRepository, statsCache repositories.StatsCache, hasher *crypto.IdentityHasher) *LineageService {
	return &LineageService{
		scanRepo:   scanRepo,
		statsCache: statsCache,
		hasher:     hasher,
	}
}

// RecordScan writes one scan event and returns it so the caller can echo
// its id as the ref parameter in any links it hands back. A dangling or
// disallowed parent reference degrades the scan to a root instead of
// rejecting it; lineage analytics must stay available on imperfect input.
func (s *LineageService) RecordScan(ctx context.Context, codeID string, parentScanID *uuid.UUID, sctx ScanContext) (*models.ScanEvent, error) {
	now := time.Now()

	if parentScanID != nil {
		parent, err := s.scanRepo.GetByID(ctx, *parentScanID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			parentScanID = nil
		case err != nil:
			return nil, fmt.Errorf("failed to load parent scan: %w", err)
		case parent.CodeID != codeID && !sctx.AllowCrossCode:
			parentScanID = nil
		case parent.CreatedAt.After(now):
			// Parents must be strictly earlier in creation order.
			parentScanID = nil
		}
	}

	scan := &models.ScanEvent{
		ID:           uuid.New(),
		CodeID:       codeID,
		ParentScanID: parentScanID,
		DeviceType:   sctx.DeviceType,
		City:         sctx.City,
		Country:      sctx.Country,
		ActorHash:    s.hasher.Hash(sctx.RawClientIP),
		Referrer:     sctx.Referrer,
		CreatedAt:    now,
	}
	if err := s.scanRepo.Create(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan event: %w", err)
	}
	return scan, nil
}

// BuildTree assembles the lineage forest for a code. Scans whose parent
// is missing from the set (partial exports, pagination) attach as
// secondary roots rather than failing. Children are ordered created_at
// ascending so two builds over the same rows are identical.
func (s *LineageService) BuildTree(ctx context.Context, codeID string) (*models.ScanTree, error) {
	scans, err := s.scanRepo.GetByCodeID(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}

	present := make(map[uuid.UUID]bool, len(scans))
	for _, scan := range scans {
		present[scan.ID] = true
	}

	children := make(map[uuid.UUID][]*models.ScanEvent)
	var roots []*models.ScanEvent
	var orphans []*models.ScanEvent
	for _, scan := range scans {
		switch {
		case scan.ParentScanID == nil:
			roots = append(roots, scan)
		case present[*scan.ParentScanID]:
			children[*scan.ParentScanID] = append(children[*scan.ParentScanID], scan)
		default:
			orphans = append(orphans, scan)
		}
	}

	tree := &models.ScanTree{CodeID: codeID}
	for _, root := range append(sortScans(roots), sortScans(orphans)...) {
		tree.Roots = append(tree.Roots, buildNode(root, children))
	}
	return tree, nil
}

func buildNode(scan *models.ScanEvent, children map[uuid.UUID][]*models.ScanEvent) *models.ScanNode {
	node := &models.ScanNode{Scan: scan}
	for _, child := range sortScans(children[scan.ID]) {
		node.Children = append(node.Children, buildNode(child, children))
	}
	return node
}

// sortScans orders by created_at ascending, id as tiebreaker.
func sortScans(scans []*models.ScanEvent) []*models.ScanEvent {
	sort.SliceStable(scans, func(i, j int) bool {
		if scans[i].CreatedAt.Equal(scans[j].CreatedAt) {
			return scans[i].ID.String() < scans[j].ID.String()
		}
		return scans[i].CreatedAt.Before(scans[j].CreatedAt)
	})
	return scans
}

// Aggregate recomputes the stats projection for a code from its scan
// rows. The cache is a whole-value copy with a short TTL; nothing is
// incremented in place, so a cold recompute always agrees with the rows.
func (s *LineageService) Aggregate(ctx context.Context, codeID string) (*models.ScanStats, error) {
	if cached, err := s.statsCache.Get(ctx, codeID); err == nil {
		return cached, nil
	}

	scans, err := s.scanRepo.GetByCodeID(ctx, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}

	stats := &models.ScanStats{
		CodeID:      codeID,
		DeviceTypes: make(map[string]int),
		Locations:   make(map[string]int),
	}
	for _, scan := range scans {
		stats.TotalScans++
		if scan.ParentScanID == nil {
			stats.RootScans++
		}
		stats.DeviceTypes[deviceTypeKey(scan)]++
		stats.Locations[locationKey(scan)]++
	}
	if stats.RootScans > 0 {
		stats.ViralCoefficient = float64(stats.TotalScans-stats.RootScans) / float64(stats.RootScans)
	}

	// Best effort; a cache write failure never blocks analytics.
	_ = s.statsCache.Set(ctx, stats)

	return stats, nil
}

func deviceTypeKey(scan *models.ScanEvent) string {
	if scan.DeviceType == "" {
		return "unknown"
	}
	return scan.DeviceType
}

func locationKey(scan *models.ScanEvent) string {
	switch {
	case scan.City != "" && scan.Country != "":
		return scan.City + ", " + scan.Country
	case scan.Country != "":
		return scan.Country
	default:
		return "unknown"
	}
}
