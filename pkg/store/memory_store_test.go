package store

import (
	"context"
	"testing"
	"time"

	"homeportal/pkg/domain"
)

func seedListings(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fixtures := []domain.Listing{
		{ID: "l1", Title: "2BHK Flat", PropertyType: domain.PropertyApartment, ListingType: domain.ListingSell, Price: 4500000, Bedrooms: 2, Location: "Sector 1", Photos: []string{"u1"}, CreatedAt: base},
		{ID: "l2", Title: "Family House", PropertyType: domain.PropertyHouse, ListingType: domain.ListingSell, Price: 9000000, Bedrooms: 4, Location: "Sector 2", Photos: []string{"u2"}, CreatedAt: base.Add(time.Hour), Featured: true},
		{ID: "l3", Title: "Corner Shop", PropertyType: domain.PropertyShop, ListingType: domain.ListingRent, Price: 25000, Bedrooms: 0, Location: "Main Market", Photos: []string{"u3"}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "l4", Title: "3BHK Flat", PropertyType: domain.PropertyApartment, ListingType: domain.ListingRent, Price: 18000, Bedrooms: 3, Location: "Sector 1", Photos: []string{"u4"}, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, l := range fixtures {
		if err := m.CreateListing(context.Background(), l); err != nil {
			t.Fatalf("seed %s: %v", l.ID, err)
		}
	}
	return m
}

func idsOf(listings []domain.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestCreateListingRequiresPhotos(t *testing.T) {
	m := NewMemoryStore()
	err := m.CreateListing(context.Background(), domain.Listing{ID: "x"})
	if err != ErrNoPhotos {
		t.Fatalf("err = %v, want ErrNoPhotos", err)
	}
}

func TestSearchListingsFilters(t *testing.T) {
	m := seedListings(t)
	ctx := context.Background()
	minPrice := 100000.0
	maxRent := 20000.0
	twoBeds := 2

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"l4", "l3", "l2", "l1"}},
		{"by property type", Filter{PropertyType: domain.PropertyApartment}, []string{"l4", "l1"}},
		{"by listing type", Filter{ListingType: domain.ListingRent}, []string{"l4", "l3"}},
		{"price bound sorts ascending", Filter{MinPrice: &minPrice}, []string{"l1", "l2"}},
		{"max price", Filter{MaxPrice: &maxRent}, []string{"l4"}},
		{"bedrooms exact", Filter{Bedrooms: &twoBeds}, []string{"l1"}},
		{"bedrooms at least", Filter{Bedrooms: &twoBeds, BedroomsAtLeast: true}, []string{"l4", "l2", "l1"}},
		{"keyword on location", Filter{Keyword: "sector 1"}, []string{"l4", "l1"}},
		{"keyword on title", Filter{Keyword: "shop"}, []string{"l3"}},
		{"featured", Filter{Featured: boolPtr(true)}, []string{"l2"}},
		{"limit", Filter{Limit: 2}, []string{"l4", "l3"}},
		{"offset", Filter{Limit: 2, Offset: 2}, []string{"l2", "l1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.SearchListings(ctx, tt.filter)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			gotIDs := idsOf(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", gotIDs, tt.want)
			}
			for i := range tt.want {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", gotIDs, tt.want)
				}
			}
		})
	}
}

func TestIncrementViewsAndSetFeatured(t *testing.T) {
	m := seedListings(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.IncrementViews(ctx, "l1"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	l, ok, err := m.GetListing(ctx, "l1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if l.Views != 3 {
		t.Fatalf("views = %d, want 3", l.Views)
	}

	if err := m.SetFeatured(ctx, "l1", true); err != nil {
		t.Fatalf("set featured: %v", err)
	}
	l, _, _ = m.GetListing(ctx, "l1")
	if !l.Featured {
		t.Fatalf("featured not set")
	}
}

func TestListByOwnerAndByIDs(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		l := domain.Listing{ID: id, SellerID: "seller-1", Photos: []string{"u"}, CreatedAt: now.Add(time.Duration(i) * time.Minute)}
		if id == "c" {
			l.SellerID = "seller-2"
		}
		if err := m.CreateListing(ctx, l); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mine, err := m.ListByOwner(ctx, "seller-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if got := idsOf(mine); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("owner listings = %v", got)
	}

	byIDs, err := m.ListByIDs(ctx, []string{"a", "missing", "c"})
	if err != nil {
		t.Fatalf("list by ids: %v", err)
	}
	if got := idsOf(byIDs); len(got) != 2 {
		t.Fatalf("by ids = %v, want a and c", got)
	}
}

func boolPtr(b bool) *bool { return &b }
