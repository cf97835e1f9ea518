package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bizcards/pkg/domain"
)

var (
	ErrMissingCredentials = errors.New("API key is not configured")
	ErrMalformedResponse  = errors.New("AI returned an invalid format. Please try again.")
	ErrUpstream           = errors.New("extraction service request failed")
)

// ExtractPrompt is sent alongside the card image.
const ExtractPrompt = "Extract the information from this business card. If a field is not present, leave it as an empty string."

// CardExtractor reads contact details off a business card photo.
type CardExtractor interface {
	ExtractCard(ctx context.Context, image []byte, mimeType string) (domain.ExtractedCard, error)
}

var cardFieldNames = []string{"name", "company", "position", "phone", "email", "website", "address"}

// cardSchema is the JSON schema of an extracted card in the lowercase
// type notation accepted by Ollama and OpenAPI style validators.
func cardSchema() map[string]any {
	props := make(map[string]any, len(cardFieldNames))
	for _, name := range cardFieldNames {
		props[name] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"name"},
	}
}

// parseExtracted decodes the model's JSON answer. Models sometimes wrap the
// object in a markdown fence, which is stripped first.
func parseExtracted(text string) (domain.ExtractedCard, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return domain.ExtractedCard{}, ErrMalformedResponse
	}
	var out domain.ExtractedCard
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return domain.ExtractedCard{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

func upstreamError(provider, detail string) error {
	return fmt.Errorf("%w: %s api error: %s", ErrUpstream, provider, detail)
}
