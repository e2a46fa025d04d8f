package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"homeportal/pkg/domain"
	"homeportal/pkg/storage"
	"homeportal/pkg/store"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectInfo
	listErr error
	delErr  map[string]error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string]storage.ObjectInfo), delErr: make(map[string]error)}
}

func (f *fakeObjects) add(key string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storage.ObjectInfo{Key: key, SizeBytes: 1, LastModified: modified}
}

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.add(key, time.Now())
	return nil
}

func (f *fakeObjects) PublicURL(key string) string { return "http://blobs.test/" + key }

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.delErr[key]; err != nil {
		return err
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []storage.ObjectInfo
	for key, info := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

func seedListing(t *testing.T, st store.Store, id string) {
	t.Helper()
	err := st.CreateListing(context.Background(), domain.Listing{
		ID:           id,
		Title:        "Listing " + id,
		Description:  "A perfectly ordinary listing used by the cleanup tests.",
		PropertyType: domain.PropertyApartment,
		ListingType:  domain.ListingSell,
		Price:        100,
		Area:         50,
		Location:     "Town",
		Photos:       []string{"http://blobs.test/listings/" + id + "/a.jpg"},
		SellerID:     "seller",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed listing %s: %v", id, err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunDeletesOnlyOldOrphans(t *testing.T) {
	st := store.NewMemoryStore()
	objects := newFakeObjects()
	seedListing(t, st, "kept")

	old := time.Now().Add(-48 * time.Hour)
	objects.add("listings/kept/a.jpg", old)        // listing exists, keep
	objects.add("listings/orphan1/a.jpg", old)     // orphan, old enough
	objects.add("listings/orphan1/b.jpg", old)     // same group
	objects.add("listings/fresh/a.jpg", time.Now()) // orphan but inside retention

	svc := NewService(st, objects, quietLogger())
	res, err := svc.Run(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.DeletedCount != 2 {
		t.Fatalf("deleted = %d, want 2", res.DeletedCount)
	}
	if len(res.OrphanedListings) != 1 || res.OrphanedListings[0] != "orphan1" {
		t.Fatalf("orphaned listings = %v", res.OrphanedListings)
	}
	remaining := objects.keys()
	if len(remaining) != 2 {
		t.Fatalf("remaining objects = %v", remaining)
	}
	for _, k := range remaining {
		if strings.HasPrefix(k, "listings/orphan1/") {
			t.Fatalf("orphan object survived: %s", k)
		}
	}
}

func TestRunDryRunDeletesNothing(t *testing.T) {
	st := store.NewMemoryStore()
	objects := newFakeObjects()
	objects.add("listings/orphan/a.jpg", time.Now().Add(-48*time.Hour))

	cfg := DefaultConfig()
	cfg.DryRun = true
	res, err := NewService(st, objects, quietLogger()).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.DryRun || res.DeletedCount != 1 {
		t.Fatalf("result: %+v", res)
	}
	if len(objects.keys()) != 1 {
		t.Fatalf("dry run removed objects")
	}
}

func TestRunSafetyCap(t *testing.T) {
	st := store.NewMemoryStore()
	objects := newFakeObjects()
	old := time.Now().Add(-48 * time.Hour)
	objects.add("listings/o1/a.jpg", old)
	objects.add("listings/o2/a.jpg", old)
	objects.add("listings/o3/a.jpg", old)

	cfg := DefaultConfig()
	cfg.MaxDeletionCount = 2
	_, err := NewService(st, objects, quietLogger()).Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "safety check") {
		t.Fatalf("err = %v, want safety check failure", err)
	}
	if len(objects.keys()) != 3 {
		t.Fatalf("aborted run removed objects")
	}
}

func TestRunRecordsDeleteErrors(t *testing.T) {
	st := store.NewMemoryStore()
	objects := newFakeObjects()
	old := time.Now().Add(-48 * time.Hour)
	objects.add("listings/orphan/a.jpg", old)
	objects.add("listings/orphan/b.jpg", old)
	objects.delErr["listings/orphan/a.jpg"] = errors.New("access denied")

	res, err := NewService(st, objects, quietLogger()).Run(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.DeletedCount != 1 || res.ErrorCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("result: %+v", res)
	}
}

func TestRunSkipsKeysWithoutListingSegment(t *testing.T) {
	st := store.NewMemoryStore()
	objects := newFakeObjects()
	objects.add("listings/stray-file.jpg", time.Now().Add(-48*time.Hour))

	res, err := NewService(st, objects, quietLogger()).Run(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.DeletedCount != 0 || len(objects.keys()) != 1 {
		t.Fatalf("stray key was touched: %+v", res)
	}
}
