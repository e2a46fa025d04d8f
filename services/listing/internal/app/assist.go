package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"homeportal/pkg/ai"
	"homeportal/pkg/domain"
	"homeportal/pkg/storage"
	"homeportal/pkg/store"
)

const (
	defaultTextModel  = "gemini-2.0-flash"
	defaultImageModel = "gemini-2.5-flash-image-preview"

	// dreamHomeCandidates bounds how many listings are handed to the model
	// as matching candidates.
	dreamHomeCandidates = 20
)

// Assist bundles the Gemini-backed helper features: visual Q&A over a
// property photo, dream-home matching against stored listings and interior
// redesign image generation.
type Assist struct {
	client     *ai.GeminiClient
	store      store.Store
	objects    storage.ObjectStore
	textModel  string
	imageModel string
}

// NewAssist wires the assist features. Empty model names fall back to
// defaults.
func NewAssist(client *ai.GeminiClient, st store.Store, objects storage.ObjectStore, textModel, imageModel string) *Assist {
	if textModel == "" {
		textModel = defaultTextModel
	}
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	return &Assist{
		client:     client,
		store:      st,
		objects:    objects,
		textModel:  textModel,
		imageModel: imageModel,
	}
}

// PropertyAnswer is the structured result of a photo question.
type PropertyAnswer struct {
	IsProperty   bool   `json:"isProperty"`
	PropertyType string `json:"propertyType"`
	Answer       string `json:"answer"`
}

// AnswerPropertyQuestion answers a free-text question about a property photo.
func (a *Assist) AnswerPropertyQuestion(ctx context.Context, photo []byte, mimeType, question string) (PropertyAnswer, error) {
	question = strings.TrimSpace(question)
	if len(photo) == 0 || question == "" {
		return PropertyAnswer{}, fmt.Errorf("photo and question are required")
	}
	system := "You are a real estate expert answering questions about property photos. " +
		"First decide whether the photo contains a building, property or plot of land, " +
		"then identify the property type, then answer the question from the visual information. " +
		`Respond as JSON: {"isProperty": bool, "propertyType": string, "answer": string}.`
	parts := []ai.Part{
		ai.ImagePart(mimeType, photo),
		ai.TextPart("Question: " + question),
	}
	var out PropertyAnswer
	if err := a.client.GenerateJSON(ctx, a.textModel, system, parts, &out); err != nil {
		return PropertyAnswer{}, fmt.Errorf("property question: %w", err)
	}
	return out, nil
}

// DreamFeature is one quality the model derived from the user's description.
type DreamFeature struct {
	Feature   string `json:"feature"`
	Reasoning string `json:"reasoning"`
}

// DreamMatch pairs a stored listing with the model's reason for matching it.
type DreamMatch struct {
	Listing     domain.Listing `json:"listing"`
	MatchReason string         `json:"matchReason"`
}

// DreamHomeResult is the structured outcome of a dream-home search.
type DreamHomeResult struct {
	KeyFeatures []DreamFeature `json:"keyFeatures"`
	Matches     []DreamMatch   `json:"matches"`
}

// dream home candidate context sent to the model; a trimmed view of the
// listing keeps the prompt small.
type dreamCandidate struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PropertyType string `json:"type"`
	Bedrooms     int    `json:"bedrooms"`
	Location     string `json:"location"`
}

type dreamModelOutput struct {
	KeyFeatures []DreamFeature `json:"keyFeatures"`
	Matches     []struct {
		ID          string `json:"id"`
		MatchReason string `json:"matchReason"`
	} `json:"matchedProperties"`
}

// FindDreamHome matches a lifestyle description against recent listings and
// returns the model's reasoning plus up to three matched listings.
func (a *Assist) FindDreamHome(ctx context.Context, description string) (DreamHomeResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return DreamHomeResult{}, fmt.Errorf("description is required")
	}
	listings, err := a.store.SearchListings(ctx, store.Filter{Limit: dreamHomeCandidates})
	if err != nil {
		return DreamHomeResult{}, fmt.Errorf("load candidate listings: %w", err)
	}
	byID := make(map[string]domain.Listing, len(listings))
	candidates := make([]dreamCandidate, 0, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
		candidates = append(candidates, dreamCandidate{
			ID:           l.ID,
			Title:        l.Title,
			Description:  l.Description,
			PropertyType: string(l.PropertyType),
			Bedrooms:     l.Bedrooms,
			Location:     l.Location,
		})
	}
	candidateJSON, err := json.Marshal(candidates)
	if err != nil {
		return DreamHomeResult{}, err
	}

	system := "You are an empathetic real estate assistant. Understand the user's emotional and " +
		"lifestyle needs, not just technical specs. Identify 3-5 key features from their description, " +
		"then pick up to 3 of the provided properties that best match, each with a personalized reason. " +
		`Respond as JSON: {"keyFeatures": [{"feature": string, "reasoning": string}], ` +
		`"matchedProperties": [{"id": string, "matchReason": string}]}.`
	var prompt bytes.Buffer
	prompt.WriteString("Dream home description: ")
	prompt.WriteString(description)
	prompt.WriteString("\n\nAvailable properties (JSON):\n")
	prompt.Write(candidateJSON)

	var out dreamModelOutput
	if err := a.client.GenerateJSON(ctx, a.textModel, system, []ai.Part{ai.TextPart(prompt.String())}, &out); err != nil {
		return DreamHomeResult{}, fmt.Errorf("dream home: %w", err)
	}

	result := DreamHomeResult{KeyFeatures: out.KeyFeatures}
	for _, m := range out.Matches {
		l, ok := byID[m.ID]
		if !ok {
			// Model hallucinated an id; drop it.
			continue
		}
		result.Matches = append(result.Matches, DreamMatch{Listing: l, MatchReason: m.MatchReason})
	}
	return result, nil
}

// RedesignResult carries the generated room image.
type RedesignResult struct {
	URL string `json:"url"`
}

// DesignInterior generates a redesigned room image from a photo and style,
// stores it and returns its public URL.
func (a *Assist) DesignInterior(ctx context.Context, photo []byte, mimeType, style, instructions string) (RedesignResult, error) {
	style = strings.TrimSpace(style)
	if len(photo) == 0 || style == "" {
		return RedesignResult{}, fmt.Errorf("photo and style are required")
	}
	prompt := fmt.Sprintf("You are an expert interior designer. Redesign this room in a %s style.", style)
	if s := strings.TrimSpace(instructions); s != "" {
		prompt += " Follow these instructions: " + s + "."
	}
	prompt += " Only output the redesigned image."

	parts := []ai.Part{
		ai.ImagePart(mimeType, photo),
		ai.TextPart(prompt),
	}
	data, outMIME, err := a.client.GenerateImage(ctx, a.imageModel, parts)
	if err != nil {
		return RedesignResult{}, fmt.Errorf("interior redesign: %w", err)
	}

	key := "redesigns/" + uuid.NewString() + extensionFor(outMIME)
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), outMIME); err != nil {
		return RedesignResult{}, fmt.Errorf("store redesigned image: %w", err)
	}
	return RedesignResult{URL: a.objects.PublicURL(key)}, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
