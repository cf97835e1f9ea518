package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizcards/pkg/domain"
)

// fakeService is a minimal in-memory card service.
type fakeService struct {
	mu     sync.Mutex
	cards  []domain.Card
	seq    int
	hits   int
	images map[string]string
}

func newFakeService(t *testing.T) (*fakeService, *Client) {
	t.Helper()
	f := &fakeService{images: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL + "/")
}

func (f *fakeService) etag() string {
	body, _ := json.Marshal(f.cards)
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strings.TrimPrefix(r.URL.Path, "/cards/")
	switch {
	case r.URL.Path == "/cards" && r.Method == http.MethodGet:
		etag := f.etag()
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		f.hits++
		_ = json.NewEncoder(w).Encode(f.cards)
	case r.URL.Path == "/cards" && r.Method == http.MethodPost:
		file, header, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "No file uploaded.", "code": "CARD_IMAGE_REQUIRED"})
			return
		}
		data, _ := io.ReadAll(file)
		var fields domain.CardFields
		_ = json.Unmarshal([]byte(r.FormValue("cardData")), &fields)
		f.seq++
		cardID := fmt.Sprintf("%d-%d", 1000+f.seq, f.seq)
		f.images[cardID] = header.Filename + ":" + string(data)
		card := fields.Card(cardID, "http://localhost:3002/uploads/images/"+cardID+".png")
		f.cards = append([]domain.Card{card}, f.cards...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(card)
	case r.URL.Path == "/cards" && r.Method == http.MethodDelete:
		n := len(f.cards)
		f.cards = nil
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "All cards deleted successfully.", "cards": n, "images": n})
	case r.Method == http.MethodPut:
		var fields domain.CardFields
		_ = json.NewDecoder(r.Body).Decode(&fields)
		for i, c := range f.cards {
			if c.ID == id {
				f.cards[i] = fields.Card(c.ID, c.ImageURL)
				_ = json.NewEncoder(w).Encode(f.cards[i])
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Card not found.", "code": "CARD_NOT_FOUND"})
	case r.Method == http.MethodDelete:
		for i, c := range f.cards {
			if c.ID == id {
				f.cards = append(f.cards[:i], f.cards[i+1:]...)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "Card deleted successfully."})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Card not found.", "code": "CARD_NOT_FOUND"})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) image(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[id]
}

func (f *fakeService) fullLists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

// addRemote simulates another client writing to the service.
func (f *fakeService) addRemote(card domain.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards = append([]domain.Card{card}, f.cards...)
}

func upload(name string) Upload {
	return Upload{Filename: name, Reader: strings.NewReader("img")}
}

func TestCacheLoadAndPatch(t *testing.T) {
	ctx := context.Background()
	svc, c := newFakeService(t)
	svc.addRemote(domain.Card{ID: "1-1", Name: "Ann", Category: "Work"})

	cache := NewCache(c)
	require.NoError(t, cache.Load(ctx))
	require.Len(t, cache.Cards(), 1)

	created, err := cache.Create(ctx, domain.CardFields{Name: "Bob", Company: "Acme"}, upload("bob.png"))
	require.NoError(t, err)
	cards := cache.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, created.ID, cards[0].ID, "created card is prepended")
	assert.Equal(t, "bob.png:img", svc.image(created.ID))

	edited := created
	edited.Position = "CTO"
	saved, err := cache.Save(ctx, edited, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, saved.ID)
	assert.Equal(t, "CTO", cache.Cards()[0].Position, "edit replaces by id")

	require.NoError(t, cache.Delete(ctx, "1-1"))
	assert.Len(t, cache.Cards(), 1)

	assert.Equal(t, []domain.Card{saved}, cache.Filter("ac"))

	res, err := cache.EraseAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cards)
	assert.Empty(t, cache.Cards())
}

func TestCacheSaveWithImageCreatesNewCard(t *testing.T) {
	ctx := context.Background()
	_, c := newFakeService(t)
	cache := NewCache(c)
	require.NoError(t, cache.Load(ctx))

	original, err := cache.Create(ctx, domain.CardFields{Name: "Ann"}, upload("a.png"))
	require.NoError(t, err)

	edited := original
	edited.Name = "Ann Lee"
	img := upload("b.png")
	saved, err := cache.Save(ctx, edited, &img)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, saved.ID)

	cards := cache.Cards()
	require.Len(t, cards, 2)
	assert.Equal(t, saved.ID, cards[0].ID)
	assert.Equal(t, original.ID, cards[1].ID)
}

func TestCacheSaveNewCardWithoutImage(t *testing.T) {
	_, c := newFakeService(t)
	_, err := NewCache(c).Save(context.Background(), domain.Card{Name: "Ann"}, nil)
	assert.ErrorIs(t, err, ErrImageRequired)
}

func TestCacheDivergesUntilRefresh(t *testing.T) {
	ctx := context.Background()
	svc, c := newFakeService(t)
	cache := NewCache(c)
	require.NoError(t, cache.Load(ctx))

	changed, err := cache.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "unchanged list answers 304")

	svc.addRemote(domain.Card{ID: "9-9", Name: "Remote"})
	assert.Empty(t, cache.Cards(), "cache does not see other writers")

	changed, err = cache.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, cache.Cards(), 1)
	assert.Equal(t, "Remote", cache.Cards()[0].Name)
}

func TestCacheRefetchAfterMutation(t *testing.T) {
	ctx := context.Background()
	svc, c := newFakeService(t)
	cache := NewCache(c, WithRefetchAfterMutation())
	require.NoError(t, cache.Load(ctx))

	svc.addRemote(domain.Card{ID: "9-9", Name: "Remote"})
	_, err := cache.Create(ctx, domain.CardFields{Name: "Local"}, upload("l.png"))
	require.NoError(t, err)

	names := []string{}
	for _, card := range cache.Cards() {
		names = append(names, card.Name)
	}
	assert.ElementsMatch(t, []string{"Local", "Remote"}, names)
	assert.Equal(t, 2, svc.fullLists())
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	_, c := newFakeService(t)

	err := c.DeleteCard(ctx, "nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CARD_NOT_FOUND", apiErr.Code)
	assert.Equal(t, "Card not found.", apiErr.Error())

	_, err = c.CreateCard(ctx, domain.CardFields{Name: "x"}, Upload{})
	assert.Error(t, err)
}
