package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.baseURL = srv.URL
	return c
}

func TestGenerateJSONSendsImageAndDecodesAnswer(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash") {
			t.Errorf("model missing from path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": `{"isProperty":true,"answer":"Two floors."}`}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	var out struct {
		IsProperty bool   `json:"isProperty"`
		Answer     string `json:"answer"`
	}
	parts := []Part{
		ImagePart("image/jpeg", []byte("fake-jpeg")),
		TextPart("How many floors?"),
	}
	if err := c.GenerateJSON(context.Background(), "gemini-2.0-flash", "You are a surveyor.", parts, &out); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if !out.IsProperty || out.Answer != "Two floors." {
		t.Fatalf("decoded answer: %+v", out)
	}

	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("response mime type not requested: %+v", got.GenerationConfig)
	}
	if got.SystemInstruction == nil {
		t.Fatalf("system instruction not sent")
	}
	reqParts := got.Contents[0].Parts
	if len(reqParts) != 2 || reqParts[0].InlineData == nil {
		t.Fatalf("image part not sent inline: %+v", reqParts)
	}
	data, err := base64.StdEncoding.DecodeString(reqParts[0].InlineData.Data)
	if err != nil || string(data) != "fake-jpeg" {
		t.Fatalf("inline data round trip: %q, %v", data, err)
	}
}

func TestGenerateImageReturnsInlineBytes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig == nil || len(req.GenerationConfig.ResponseModalities) != 1 {
			t.Errorf("image modality not requested: %+v", req.GenerationConfig)
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString([]byte("png-bytes")),
						},
					}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	data, mimeType, err := c.GenerateImage(context.Background(), "gemini-2.5-flash-image-preview", []Part{TextPart("redesign")})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if mimeType != "image/png" || string(data) != "png-bytes" {
		t.Fatalf("got %q %q", mimeType, data)
	}
}

func TestGenerateTextAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "quota exceeded"}})
	})
	_, err := c.GenerateText(context.Background(), "gemini-2.0-flash", "", "hello")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want api error message", err)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("blank key accepted")
	}
}
