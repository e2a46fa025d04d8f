// Package cleanup removes orphaned photo objects left behind when a
// submission uploaded its media but never persisted a listing. Orphans are
// found by listing the photo prefix, grouping objects by listing id and
// checking each id against the listing store.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"homeportal/pkg/storage"
	"homeportal/pkg/store"
)

// Service deletes photo objects whose listing never materialized.
type Service struct {
	store   store.Store
	objects storage.ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a cleanup service.
func NewService(st store.Store, objects storage.ObjectStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, objects: objects, logger: logger, now: time.Now}
}

// Config holds configuration for one cleanup run.
type Config struct {
	// Prefix is the object key prefix scanned for orphans.
	Prefix string
	// RetentionHours is how long an orphan group is left alone before it
	// becomes eligible. A generous window avoids racing an in-flight
	// submission whose persist step has not happened yet.
	RetentionHours int
	// MaxDeletionCount aborts the run when more objects than this are
	// eligible. Safety limit against a misconfigured store connection
	// making every listing look absent.
	MaxDeletionCount int
	// DryRun only reports what would be deleted.
	DryRun bool
}

// DefaultConfig returns the default cleanup configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:           "listings/",
		RetentionHours:   24,
		MaxDeletionCount: 1000,
		DryRun:           false,
	}
}

// Result summarizes one cleanup run.
type Result struct {
	ScannedObjects   int       `json:"scanned_objects"`
	OrphanedListings []string  `json:"orphaned_listings"`
	TargetCount      int       `json:"target_count"`
	DeletedCount     int       `json:"deleted_count"`
	ErrorCount       int       `json:"error_count"`
	DryRun           bool      `json:"dry_run"`
	ExecutedAt       time.Time `json:"executed_at"`
	Errors           []string  `json:"errors,omitempty"`
}

type objectGroup struct {
	listingID string
	objects   []storage.ObjectInfo
	newest    time.Time
}

// Run scans the photo prefix and deletes eligible orphan groups.
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "listings/"
	}
	if cfg.RetentionHours <= 0 {
		cfg.RetentionHours = DefaultConfig().RetentionHours
	}
	if cfg.MaxDeletionCount <= 0 {
		cfg.MaxDeletionCount = DefaultConfig().MaxDeletionCount
	}
	result := &Result{DryRun: cfg.DryRun, ExecutedAt: s.now().UTC()}

	objects, err := s.objects.List(ctx, cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cfg.Prefix, err)
	}
	result.ScannedObjects = len(objects)

	groups := groupByListing(cfg.Prefix, objects)
	cutoff := s.now().Add(-time.Duration(cfg.RetentionHours) * time.Hour)

	var eligible []objectGroup
	for _, g := range groups {
		if g.newest.After(cutoff) {
			continue
		}
		_, found, err := s.store.GetListing(ctx, g.listingID)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("check listing %s: %v", g.listingID, err))
			continue
		}
		if found {
			continue
		}
		eligible = append(eligible, g)
	}

	targetObjects := 0
	for _, g := range eligible {
		targetObjects += len(g.objects)
	}
	result.TargetCount = targetObjects
	if targetObjects > cfg.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d objects exceed max deletion limit of %d",
			targetObjects, cfg.MaxDeletionCount)
	}

	for _, g := range eligible {
		result.OrphanedListings = append(result.OrphanedListings, g.listingID)
		for _, obj := range g.objects {
			if cfg.DryRun {
				s.logger.Info("would delete orphaned object",
					"listing_id", g.listingID, "key", obj.Key, "age", s.now().Sub(obj.LastModified).Round(time.Minute))
				result.DeletedCount++
				continue
			}
			if err := s.objects.Delete(ctx, obj.Key); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", obj.Key, err))
				continue
			}
			result.DeletedCount++
		}
	}

	s.logger.Info("cleanup finished",
		"scanned", result.ScannedObjects,
		"orphaned_listings", len(result.OrphanedListings),
		"deleted", result.DeletedCount,
		"errors", result.ErrorCount,
		"dry_run", cfg.DryRun)
	return result, nil
}

// groupByListing buckets objects by the listing id segment of their key
// (prefix + "{listingID}/{file}"). Keys without an id segment are skipped.
func groupByListing(prefix string, objects []storage.ObjectInfo) []objectGroup {
	byID := make(map[string]*objectGroup)
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj.Key, prefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		g, exists := byID[id]
		if !exists {
			g = &objectGroup{listingID: id}
			byID[id] = g
		}
		g.objects = append(g.objects, obj)
		if obj.LastModified.After(g.newest) {
			g.newest = obj.LastModified
		}
	}
	groups := make([]objectGroup, 0, len(byID))
	for _, g := range byID {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].listingID < groups[j].listingID })
	return groups
}
