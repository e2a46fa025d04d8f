// Package ai wraps the Google AI Studio (Gemini) REST API for the listing
// assist features: text generation, structured JSON answers over photo
// input, and image generation.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL points the client at a different API endpoint (proxy or test
// server).
func WithBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		if u := strings.TrimSpace(strings.TrimSuffix(baseURL, "/")); u != "" {
			c.baseURL = u
		}
	}
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	c := &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Part is one piece of a prompt: either text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob carries base64-encoded binary data with its media type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// TextPart builds a text prompt part.
func TextPart(text string) Part { return Part{Text: text} }

// ImagePart builds an inline-image prompt part from raw bytes.
func ImagePart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// GenerateText returns the generated response for a prompt.
func (c *GeminiClient) GenerateText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.generate(ctx, model, systemPrompt, []Part{TextPart(userPrompt)}, nil)
	if err != nil {
		return "", err
	}
	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return text, nil
}

// GenerateJSON sends the prompt parts (text and/or images) with a JSON
// response type and decodes the model's answer into out.
func (c *GeminiClient) GenerateJSON(ctx context.Context, model, systemPrompt string, parts []Part, out any) error {
	cfg := &generationConfig{ResponseMIMEType: "application/json"}
	resp, err := c.generate(ctx, model, systemPrompt, parts, cfg)
	if err != nil {
		return err
	}
	text := firstText(resp)
	if text == "" {
		return fmt.Errorf("empty response from gemini")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode gemini json response: %w", err)
	}
	return nil
}

// GenerateImage asks an image-capable model to produce a picture and
// returns the raw bytes with their media type.
func (c *GeminiClient) GenerateImage(ctx context.Context, model string, parts []Part) ([]byte, string, error) {
	cfg := &generationConfig{ResponseModalities: []string{"IMAGE"}}
	resp, err := c.generate(ctx, model, "", parts, cfg)
	if err != nil {
		return nil, "", err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("decode generated image: %w", err)
			}
			return data, p.InlineData.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("no image in gemini response")
}

func (c *GeminiClient) generate(ctx context.Context, model, systemPrompt string, parts []Part, cfg *generationConfig) (*generateResponse, error) {
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		reqBody.SystemInstruction = &content{Parts: []Part{TextPart(systemPrompt)}}
	}
	reqBody.GenerationConfig = cfg
	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, normalizeModel(model), c.apiKey)
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func firstText(resp *generateResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("gemini api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
