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

	"bizcards/pkg/domain"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaClient calls the Ollama HTTP API with a vision model.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient constructs a client with the provided base URL and model.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &OllamaClient{
		baseURL:    baseURL,
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ExtractCard sends the image to /api/generate with the card schema as format.
func (c *OllamaClient) ExtractCard(ctx context.Context, image []byte, _ string) (domain.ExtractedCard, error) {
	if c.model == "" {
		return domain.ExtractedCard{}, fmt.Errorf("ollama vision model required")
	}
	reqBody := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: ExtractPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Format: cardSchema(),
		Stream: false,
	}
	var resp ollamaGenerateResponse
	if _, err := c.doJSON(ctx, "/api/generate", reqBody, &resp); err != nil {
		return domain.ExtractedCard{}, err
	}
	return parseExtracted(resp.Response)
}

func (c *OllamaClient) doJSON(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: ollama request: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ollamaErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return resp.StatusCode, upstreamError("ollama", errResp.Error)
		}
		return resp.StatusCode, upstreamError("ollama", resp.Status)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return resp.StatusCode, nil
}

type ollamaGenerateRequest struct {
	Model  string         `json:"model"`
	Prompt string         `json:"prompt"`
	Images []string       `json:"images"`
	Format map[string]any `json:"format,omitempty"`
	Stream bool           `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}
