package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"homeportal/pkg/domain"
)

// MemoryStore keeps listings in-process. Used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]domain.Listing)}
}

// CreateListing inserts a new listing.
func (m *MemoryStore) CreateListing(_ context.Context, l domain.Listing) error {
	if len(l.Photos) == 0 {
		return ErrNoPhotos
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

// GetListing retrieves a listing by id.
func (m *MemoryStore) GetListing(_ context.Context, id string) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	return l, ok, nil
}

// SearchListings applies the filter in memory.
func (m *MemoryStore) SearchListings(_ context.Context, f Filter) ([]domain.Listing, error) {
	m.mu.RLock()
	var out []domain.Listing
	for _, l := range m.listings {
		if matches(l, f) {
			out = append(out, l)
		}
	}
	m.mu.RUnlock()

	if f.MinPrice != nil || f.MaxPrice != nil {
		sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ListByOwner returns the seller's listings, newest first.
func (m *MemoryStore) ListByOwner(_ context.Context, sellerID string) ([]domain.Listing, error) {
	m.mu.RLock()
	var out []domain.Listing
	for _, l := range m.listings {
		if l.SellerID == sellerID {
			out = append(out, l)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByIDs returns listings matching ids; missing ids are skipped.
func (m *MemoryStore) ListByIDs(_ context.Context, ids []string) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Listing
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// IncrementViews bumps the view counter by one.
func (m *MemoryStore) IncrementViews(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	l.Views++
	m.listings[id] = l
	return nil
}

// SetFeatured toggles the featured flag.
func (m *MemoryStore) SetFeatured(_ context.Context, id string, featured bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	l.Featured = featured
	m.listings[id] = l
	return nil
}

// Count reports the number of stored listings, for test assertions.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listings)
}

func matches(l domain.Listing, f Filter) bool {
	if f.PropertyType != "" && l.PropertyType != f.PropertyType {
		return false
	}
	if f.ListingType != "" && l.ListingType != f.ListingType {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.Bedrooms != nil {
		if f.BedroomsAtLeast {
			if l.Bedrooms < *f.Bedrooms {
				return false
			}
		} else if l.Bedrooms != *f.Bedrooms {
			return false
		}
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(l.Title), kw) &&
			!strings.Contains(strings.ToLower(l.Location), kw) {
			return false
		}
	}
	if f.Featured != nil && l.Featured != *f.Featured {
		return false
	}
	return true
}
