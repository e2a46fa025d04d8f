package store

import (
	"context"
	"errors"

	"homeportal/pkg/domain"
)

// ErrNoPhotos is returned when a listing create is attempted without photos.
// A listing is never persisted with an empty photo list.
var ErrNoPhotos = errors.New("listing requires at least one photo")

// Filter narrows a listing search. Nil pointer fields are ignored.
type Filter struct {
	PropertyType    domain.PropertyType
	ListingType     domain.ListingType
	MinPrice        *float64
	MaxPrice        *float64
	Bedrooms        *int
	BedroomsAtLeast bool
	Keyword         string
	Featured        *bool
	Limit           int
	Offset          int
}

// Sorted by price ascending when a price bound is present, otherwise by
// creation time descending (newest first).

// Store defines persistence for property listings. CreateListing only ever
// creates; there are no update/merge semantics for listing records. Featured
// and view counters are mutated through their dedicated operations.
type Store interface {
	CreateListing(ctx context.Context, l domain.Listing) error
	GetListing(ctx context.Context, id string) (domain.Listing, bool, error)
	SearchListings(ctx context.Context, f Filter) ([]domain.Listing, error)
	ListByOwner(ctx context.Context, sellerID string) ([]domain.Listing, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Listing, error)
	IncrementViews(ctx context.Context, id string) error
	SetFeatured(ctx context.Context, id string, featured bool) error
}

// SavedStore tracks per-user saved listings.
type SavedStore interface {
	Save(ctx context.Context, userID, listingID string) error
	Unsave(ctx context.Context, userID, listingID string) error
	ListSaved(ctx context.Context, userID string) ([]string, error)
	IsSaved(ctx context.Context, userID, listingID string) (bool, error)
}
