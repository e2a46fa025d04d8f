package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"homeportal/pkg/ai"
	"homeportal/pkg/domain"
	"homeportal/pkg/storage"
	"homeportal/pkg/store"
)

func geminiStub(t *testing.T, handler http.HandlerFunc) *ai.GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := ai.NewGeminiClient("test-key", ai.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new gemini client: %v", err)
	}
	return client
}

func textResponse(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	})
}

type recordingObjects struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (r *recordingObjects) Put(ctx context.Context, key string, rd io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.puts == nil {
		r.puts = make(map[string][]byte)
	}
	r.puts[key] = data
	return nil
}

func (r *recordingObjects) PublicURL(key string) string { return "http://blobs.test/" + key }
func (r *recordingObjects) Delete(ctx context.Context, key string) error {
	return nil
}
func (r *recordingObjects) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func seedAssistListing(t *testing.T, st store.Store, id string) {
	t.Helper()
	err := st.CreateListing(context.Background(), domain.Listing{
		ID:           id,
		Title:        "Listing " + id,
		Description:  "Cosy place with lots of natural light for the tests.",
		PropertyType: domain.PropertyApartment,
		ListingType:  domain.ListingRent,
		Price:        25000,
		Area:         800,
		Bedrooms:     2,
		Location:     "Riverside",
		Photos:       []string{"http://blobs.test/listings/" + id + "/a.jpg"},
		SellerID:     "seller",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
}

func TestFindDreamHomeJoinsMatchesToStore(t *testing.T) {
	st := store.NewMemoryStore()
	seedAssistListing(t, st, "l1")
	seedAssistListing(t, st, "l2")

	client := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "Riverside") {
			t.Errorf("candidate listings not sent to the model")
		}
		textResponse(w, `{
			"keyFeatures": [{"feature": "natural light", "reasoning": "mentioned sunlight"}],
			"matchedProperties": [
				{"id": "l2", "matchReason": "bright and near the river"},
				{"id": "made-up", "matchReason": "does not exist"}
			]
		}`)
	})
	assist := NewAssist(client, st, &recordingObjects{}, "", "")

	result, err := assist.FindDreamHome(context.Background(), "somewhere bright near water")
	if err != nil {
		t.Fatalf("find dream home: %v", err)
	}
	if len(result.KeyFeatures) != 1 || result.KeyFeatures[0].Feature != "natural light" {
		t.Fatalf("key features: %+v", result.KeyFeatures)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matches = %d, want 1 (invented ids must be dropped)", len(result.Matches))
	}
	m := result.Matches[0]
	if m.Listing.ID != "l2" || len(m.Listing.Photos) != 1 || m.MatchReason == "" {
		t.Fatalf("match: %+v", m)
	}
}

func TestFindDreamHomeRequiresDescription(t *testing.T) {
	assist := NewAssist(geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("model must not be called for empty input")
	}), store.NewMemoryStore(), &recordingObjects{}, "", "")
	if _, err := assist.FindDreamHome(context.Background(), "  "); err == nil {
		t.Fatalf("empty description accepted")
	}
}

func TestAnswerPropertyQuestion(t *testing.T) {
	client := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		textResponse(w, `{"isProperty": true, "propertyType": "Detached House", "answer": "It has a tiled roof."}`)
	})
	assist := NewAssist(client, store.NewMemoryStore(), &recordingObjects{}, "", "")

	answer, err := assist.AnswerPropertyQuestion(context.Background(), []byte("jpeg"), "image/jpeg", "What kind of roof?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !answer.IsProperty || answer.PropertyType != "Detached House" {
		t.Fatalf("answer: %+v", answer)
	}

	if _, err := assist.AnswerPropertyQuestion(context.Background(), nil, "", "question"); err == nil {
		t.Fatalf("missing photo accepted")
	}
}

func TestDesignInteriorStoresGeneratedImage(t *testing.T) {
	client := geminiStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     "cG5nLWJ5dGVz", // "png-bytes"
						},
					}},
				},
			}},
		})
	})
	objects := &recordingObjects{}
	assist := NewAssist(client, store.NewMemoryStore(), objects, "", "")

	result, err := assist.DesignInterior(context.Background(), []byte("room"), "image/jpeg", "Minimalist", "keep the window")
	if err != nil {
		t.Fatalf("design interior: %v", err)
	}
	if !strings.HasPrefix(result.URL, "http://blobs.test/redesigns/") || !strings.HasSuffix(result.URL, ".png") {
		t.Fatalf("url = %q", result.URL)
	}
	objects.mu.Lock()
	defer objects.mu.Unlock()
	if len(objects.puts) != 1 {
		t.Fatalf("stored objects = %d, want 1", len(objects.puts))
	}
	for key, data := range objects.puts {
		if !strings.HasPrefix(key, "redesigns/") || string(data) != "png-bytes" {
			t.Fatalf("stored %q = %q", key, data)
		}
	}
}
