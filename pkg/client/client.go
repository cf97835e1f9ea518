// Package client talks to the card service and keeps a local copy of the
// card list.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"bizcards/pkg/domain"
	"bizcards/pkg/storage"
)

// DefaultBaseURL is where the card service listens by default.
const DefaultBaseURL = "http://localhost:3002"

// Client calls the card service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a card service error response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// KeyStatus mirrors the service's API key status response.
type KeyStatus struct {
	Configured bool   `json:"configured"`
	APIKey     string `json:"apiKey"`
	Source     string `json:"source,omitempty"`
}

// EraseResult is the response of DeleteAll.
type EraseResult struct {
	Message string `json:"message"`
	Cards   int    `json:"cards"`
	Images  int    `json:"images"`
}

// Upload is an image file sent to the service.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// NewClient constructs a card service client.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListCards fetches every card. When etag matches the server's current list
// the server answers 304 and notModified is true with no cards.
func (c *Client) ListCards(ctx context.Context, etag string) (cards []domain.Card, newETag string, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cards", nil)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotModified {
		return nil, etag, true, nil
	}
	if err := checkResponse(resp); err != nil {
		return nil, "", false, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, "", false, fmt.Errorf("decode cards: %w", err)
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards, resp.Header.Get("ETag"), false, nil
}

func (c *Client) GetCard(ctx context.Context, id string) (domain.Card, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cardURL(id), nil)
	if err != nil {
		return domain.Card{}, err
	}
	var card domain.Card
	if err := c.do(req, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// CreateCard uploads the image with the fields as the cardData part.
func (c *Client) CreateCard(ctx context.Context, fields domain.CardFields, img Upload) (domain.Card, error) {
	cardData, err := json.Marshal(fields)
	if err != nil {
		return domain.Card{}, err
	}
	body, contentType, err := imageForm(img, map[string]string{"cardData": string(cardData)})
	if err != nil {
		return domain.Card{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cards", body)
	if err != nil {
		return domain.Card{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var card domain.Card
	if err := c.do(req, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (c *Client) UpdateCard(ctx context.Context, id string, fields domain.CardFields) (domain.Card, error) {
	req, err := c.jsonRequest(ctx, http.MethodPut, c.cardURL(id), fields)
	if err != nil {
		return domain.Card{}, err
	}
	var card domain.Card
	if err := c.do(req, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cardURL(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) DeleteAll(ctx context.Context) (EraseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cards", nil)
	if err != nil {
		return EraseResult{}, err
	}
	var res EraseResult
	if err := c.do(req, &res); err != nil {
		return EraseResult{}, err
	}
	return res, nil
}

// Extract asks the service to read the card fields off an image.
func (c *Client) Extract(ctx context.Context, img Upload) (domain.ExtractedCard, error) {
	body, contentType, err := imageForm(img, nil)
	if err != nil {
		return domain.ExtractedCard{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/extract", body)
	if err != nil {
		return domain.ExtractedCard{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var out domain.ExtractedCard
	if err := c.do(req, &out); err != nil {
		return domain.ExtractedCard{}, err
	}
	return out, nil
}

func (c *Client) SaveAPIKey(ctx context.Context, key string) error {
	req, err := c.jsonRequest(ctx, http.MethodPost, c.baseURL+"/api/gemini-key", map[string]string{"apiKey": key})
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) APIKeyStatus(ctx context.Context) (KeyStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/gemini-key", nil)
	if err != nil {
		return KeyStatus{}, err
	}
	var status KeyStatus
	if err := c.do(req, &status); err != nil {
		return KeyStatus{}, err
	}
	return status, nil
}

func (c *Client) cardURL(id string) string {
	return c.baseURL + "/cards/" + url.PathEscape(id)
}

func (c *Client) jsonRequest(ctx context.Context, method, target string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	msg := errResp.Error
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Code: strings.TrimSpace(errResp.Code)}
}

func imageForm(img Upload, fields map[string]string) (*bytes.Buffer, string, error) {
	if img.Reader == nil {
		return nil, "", errors.New("image is required")
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	filename := filepath.Base(img.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		filename = "card"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", storage.ContentTypeFor(filename))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, img.Reader); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
