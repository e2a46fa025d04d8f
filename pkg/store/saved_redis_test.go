package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSavedStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	saved := NewRedisSavedStore(redis.Addr(), "")
	ctx := context.Background()

	if err := saved.Save(ctx, "user-1", "listing-a"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := saved.Save(ctx, "user-1", "listing-b"); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving twice is a no-op, not an error.
	if err := saved.Save(ctx, "user-1", "listing-a"); err != nil {
		t.Fatalf("save duplicate: %v", err)
	}

	ids, err := saved.ListSaved(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("saved = %v, want 2 entries", ids)
	}

	ok, err := saved.IsSaved(ctx, "user-1", "listing-a")
	if err != nil || !ok {
		t.Fatalf("is saved = %v, %v", ok, err)
	}
	ok, _ = saved.IsSaved(ctx, "user-2", "listing-a")
	if ok {
		t.Fatalf("other user should not see saved listing")
	}

	if err := saved.Unsave(ctx, "user-1", "listing-a"); err != nil {
		t.Fatalf("unsave: %v", err)
	}
	ok, _ = saved.IsSaved(ctx, "user-1", "listing-a")
	if ok {
		t.Fatalf("listing should be unsaved")
	}

	ids, _ = saved.ListSaved(ctx, "user-2")
	if len(ids) != 0 {
		t.Fatalf("user-2 saved = %v, want empty", ids)
	}
}
