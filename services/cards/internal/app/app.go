package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"bizcards/internal/util"
	"bizcards/pkg/ai"
	"bizcards/pkg/domain"
	"bizcards/pkg/events"
	"bizcards/pkg/records"
	"bizcards/pkg/storage"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds runtime configuration for the core application.
type Config struct {
	Records *records.Store
	Events  events.Publisher

	ExtractProvider string
	GeminiAPIKey    string
	GeminiModel     string
	APIKeyFile      string
	OllamaURL       string
	OllamaModel     string
	OpenAIBaseURL   string
	OpenAIAPIKey    string
	OpenAIModel     string

	// Extractor replaces provider selection when set.
	Extractor ai.CardExtractor
}

// App is the card service core: records, extraction and change events.
type App struct {
	records   *records.Store
	events    events.Publisher
	keys      *keyFile
	cfg       Config
	extractor ai.CardExtractor
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Records == nil {
		return nil, errors.New("record store required")
	}
	pub := cfg.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.ExtractProvider))
	if provider == "" {
		provider = ProviderGemini
	}
	cfg.ExtractProvider = provider
	if strings.TrimSpace(cfg.APIKeyFile) == "" {
		cfg.APIKeyFile = ".env.local"
	}

	a := &App{
		records: cfg.Records,
		events:  pub,
		keys:    &keyFile{path: cfg.APIKeyFile},
		cfg:     cfg,
	}
	switch {
	case cfg.Extractor != nil:
		a.extractor = cfg.Extractor
	case provider == ProviderOllama:
		a.extractor = ai.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
	case provider == ProviderOpenAI:
		a.extractor = ai.NewOpenAICompatClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case provider == ProviderGemini:
		// built per call so a key saved at runtime takes effect
	default:
		return nil, fmt.Errorf("unknown extract provider %q", cfg.ExtractProvider)
	}
	return a, nil
}

// CreateCard stores a new card with its image.
func (a *App) CreateCard(ctx context.Context, fields domain.CardFields, img records.Image) (domain.Card, error) {
	card, err := a.records.Create(ctx, fields, img)
	if err != nil {
		return domain.Card{}, err
	}
	a.publish(ctx, events.New(events.TypeCardCreated, card.ID))
	return card, nil
}

// ListCards returns all cards, newest first.
func (a *App) ListCards(ctx context.Context) ([]domain.Card, error) {
	return a.records.ListAll(ctx)
}

// GetCard retrieves a card by ID.
func (a *App) GetCard(ctx context.Context, id string) (domain.Card, error) {
	return a.records.Get(ctx, id)
}

// UpdateCard replaces a card's fields.
func (a *App) UpdateCard(ctx context.Context, id string, fields domain.CardFields) (domain.Card, error) {
	card, err := a.records.Update(ctx, id, fields)
	if err != nil {
		return domain.Card{}, err
	}
	a.publish(ctx, events.New(events.TypeCardUpdated, card.ID))
	return card, nil
}

// DeleteCard removes a card and its image.
func (a *App) DeleteCard(ctx context.Context, id string) error {
	if err := a.records.Delete(ctx, id); err != nil {
		return err
	}
	a.publish(ctx, events.New(events.TypeCardDeleted, id))
	return nil
}

// EraseAll removes every card and image.
func (a *App) EraseAll(ctx context.Context) (records.EraseResult, error) {
	res, err := a.records.DeleteAll(ctx)
	if err != nil {
		return res, err
	}
	ev := events.New(events.TypeCardsErased, "")
	ev.Count = res.Cards
	a.publish(ctx, ev)
	return res, nil
}

// OpenImage streams a stored card image.
func (a *App) OpenImage(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return a.records.OpenImage(ctx, name)
}

// Ping checks the metadata store.
func (a *App) Ping(ctx context.Context) error {
	return a.records.Ping(ctx)
}

// Extract reads card fields from an image. Nothing is stored.
func (a *App) Extract(ctx context.Context, image []byte, mimeType string) (domain.ExtractedCard, error) {
	extractor, err := a.resolveExtractor()
	if err != nil {
		return domain.ExtractedCard{}, err
	}
	out, err := extractor.ExtractCard(ctx, image, mimeType)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("card extraction failed", "provider", a.cfg.ExtractProvider, "err", err)
		return domain.ExtractedCard{}, err
	}
	return out, nil
}

func (a *App) resolveExtractor() (ai.CardExtractor, error) {
	if a.extractor != nil {
		return a.extractor, nil
	}
	key, err := a.geminiKey()
	if err != nil {
		return nil, err
	}
	return ai.NewGeminiClient(key, a.cfg.GeminiModel)
}

// geminiKey prefers the configured key and falls back to the key file.
func (a *App) geminiKey() (string, error) {
	if key := strings.TrimSpace(a.cfg.GeminiAPIKey); key != "" {
		return key, nil
	}
	key, err := a.keys.read()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ai.ErrMissingCredentials
	}
	return key, nil
}

// SaveAPIKey writes the Gemini key to the key file.
func (a *App) SaveAPIKey(key string) error {
	return a.keys.write(key)
}

// APIKeyStatus reports the effective Gemini key, masked.
func (a *App) APIKeyStatus() (KeyStatus, error) {
	if key := strings.TrimSpace(a.cfg.GeminiAPIKey); key != "" {
		return KeyStatus{Configured: true, APIKey: maskKey(key), Source: "environment"}, nil
	}
	key, err := a.keys.read()
	if err != nil {
		return KeyStatus{}, err
	}
	if key == "" {
		return KeyStatus{}, nil
	}
	return KeyStatus{Configured: true, APIKey: maskKey(key), Source: "file"}, nil
}

func (a *App) publish(ctx context.Context, ev events.Event) {
	if err := a.events.Publish(ctx, ev); err != nil {
		util.LoggerFromContext(ctx).Warn("failed to publish card event", "type", ev.Type, "card_id", ev.CardID, "err", err)
	}
}

// Close releases the event publisher.
func (a *App) Close() error {
	if err := a.events.Close(); err != nil {
		slog.Warn("failed to close event publisher", "err", err)
		return err
	}
	return nil
}
