package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/domain"
)

// fakeAPI records what cardctl sends to the card service.
type fakeAPI struct {
	mu        sync.Mutex
	cards     []domain.Card
	created   []domain.CardFields
	updated   map[string]domain.CardFields
	erased    int
	extracted domain.ExtractedCard
	savedKey  string
}

func newFakeAPI(t *testing.T, cards ...domain.Card) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{cards: cards, updated: map[string]domain.CardFields{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	id := strings.TrimPrefix(r.URL.Path, "/cards/")
	switch {
	case r.URL.Path == "/cards" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.cards)
	case r.URL.Path == "/cards" && r.Method == http.MethodPost:
		if _, _, err := r.FormFile("image"); err != nil {
			http.Error(w, `{"error":"No file uploaded."}`, http.StatusBadRequest)
			return
		}
		var fields domain.CardFields
		_ = json.Unmarshal([]byte(r.FormValue("cardData")), &fields)
		f.created = append(f.created, fields)
		card := fields.Card("1718000000999", "/uploads/images/1718000000999.jpg")
		f.cards = append([]domain.Card{card}, f.cards...)
		_ = json.NewEncoder(w).Encode(card)
	case r.URL.Path == "/cards" && r.Method == http.MethodDelete:
		f.erased++
		n := len(f.cards)
		f.cards = nil
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "All cards deleted successfully.", "cards": n, "images": n})
	case r.URL.Path == "/api/extract" && r.Method == http.MethodPost:
		_ = json.NewEncoder(w).Encode(f.extracted)
	case r.URL.Path == "/api/gemini-key" && r.Method == http.MethodPost:
		var body struct {
			APIKey string `json:"apiKey"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.savedKey = body.APIKey
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "API key saved successfully."})
	case r.URL.Path == "/api/gemini-key" && r.Method == http.MethodGet:
		status := map[string]any{"configured": f.savedKey != "", "apiKey": ""}
		if f.savedKey != "" {
			status["apiKey"] = "****" + f.savedKey[len(f.savedKey)-4:]
			status["source"] = "file"
		}
		_ = json.NewEncoder(w).Encode(status)
	case strings.HasPrefix(r.URL.Path, "/cards/"):
		idx := -1
		for i, c := range f.cards {
			if c.ID == id {
				idx = i
			}
		}
		if idx < 0 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Card not found.","code":"CARD_NOT_FOUND"}`))
			return
		}
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.cards[idx])
		case http.MethodPut:
			var fields domain.CardFields
			_ = json.NewDecoder(r.Body).Decode(&fields)
			f.updated[id] = fields
			f.cards[idx] = fields.Card(id, f.cards[idx].ImageURL)
			_ = json.NewEncoder(w).Encode(f.cards[idx])
		case http.MethodDelete:
			f.cards = append(f.cards[:idx], f.cards[idx+1:]...)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Card deleted successfully."})
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// state returns copies of what the fake has recorded so far.
func (f *fakeAPI) state() (cards []domain.Card, created []domain.CardFields, erased int, savedKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Card(nil), f.cards...), append([]domain.CardFields(nil), f.created...), f.erased, f.savedKey
}

func (f *fakeAPI) setExtracted(x domain.ExtractedCard) {
	f.mu.Lock()
	f.extracted = x
	f.mu.Unlock()
}

func (f *fakeAPI) updatedFields(id string) domain.CardFields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated[id]
}

// run executes cardctl with args against a clean flag state.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff\xe0 jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

// TestCommandStructure verifies that all commands are registered
func TestCommandStructure(t *testing.T) {
	commands := [][]string{
		{"list"}, {"show"}, {"add"}, {"edit"}, {"delete"}, {"erase"},
		{"extract"}, {"pick"}, {"key"}, {"key", "set"}, {"key", "status"},
	}
	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			cmd, _, err := rootCmd.Find(path)
			if err != nil {
				t.Fatalf("Command '%v' not found: %v", path, err)
			}
			if cmd.Use == "" {
				t.Errorf("Command '%v' has no Use field", path)
			}
		})
	}
}

// TestCommandsHaveHelp verifies all commands have help text
func TestCommandsHaveHelp(t *testing.T) {
	if rootCmd.Use != "cardctl" {
		t.Errorf("Expected root command Use to be 'cardctl', got '%s'", rootCmd.Use)
	}
	for _, cmd := range rootCmd.Commands() {
		if cmd.Short == "" {
			t.Errorf("Command '%s' has no Short description", cmd.Name())
		}
	}
}

func TestListFiltersByQuery(t *testing.T) {
	_, url := newFakeAPI(t,
		domain.Card{ID: "1718000000002", Name: "Ann", Category: "Work"},
		domain.Card{ID: "1718000000001", Name: "Bob", Company: "Acme"},
	)
	out, err := run(t, "", "list", "--server", url, "-q", "ac")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Bob") || strings.Contains(out, "Ann") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
	if !strings.Contains(out, "Showing 1 of 2 cards") {
		t.Fatalf("missing summary:\n%s", out)
	}
}

func TestListEmpty(t *testing.T) {
	_, url := newFakeAPI(t)
	out, err := run(t, "", "list", "--server", url)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No cards found") {
		t.Fatalf("expected empty message, got:\n%s", out)
	}
}

func TestShowNotFound(t *testing.T) {
	_, url := newFakeAPI(t)
	out, err := run(t, "", "show", "1718000000000", "--server", url)
	if err == nil {
		t.Fatal("expected error for missing card")
	}
	if !strings.Contains(out, "Card not found") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestAddRequiresName(t *testing.T) {
	fake, url := newFakeAPI(t)
	_, err := run(t, "", "add", "--server", url, "--image", writeImage(t), "--company", "Acme")
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected name error, got %v", err)
	}
	if _, created, _, _ := fake.state(); len(created) != 0 {
		t.Fatalf("card should not be created, got %+v", created)
	}
}

func TestAddWithExtractFlagsOverride(t *testing.T) {
	fake, url := newFakeAPI(t)
	fake.setExtracted(domain.ExtractedCard{Name: "Ann Lee", Company: "Old Co", Email: "ann@example.com"})

	out, err := run(t, "", "add", "--server", url, "--image", writeImage(t), "--extract",
		"--company", "Acme", "--category", "Work")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	_, created, _, _ := fake.state()
	if len(created) != 1 {
		t.Fatalf("expected one create, got %d", len(created))
	}
	got := created[0]
	want := domain.CardFields{Name: "Ann Lee", Company: "Acme", Email: "ann@example.com", Category: "Work"}
	if got != want {
		t.Fatalf("created fields = %+v, want %+v", got, want)
	}
	if !strings.Contains(out, url+"/uploads/images/1718000000999.jpg") {
		t.Fatalf("image link missing from output:\n%s", out)
	}
}

func TestEditChangesOnlyGivenFields(t *testing.T) {
	fake, url := newFakeAPI(t, domain.Card{
		ID: "1718000000001", Name: "Bob", Company: "Acme", Phone: "1", ImageURL: "/uploads/images/1718000000001.png",
	})
	if _, err := run(t, "", "edit", "1718000000001", "--server", url, "--phone", "2"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got := fake.updatedFields("1718000000001")
	want := domain.CardFields{Name: "Bob", Company: "Acme", Phone: "2"}
	if got != want {
		t.Fatalf("updated fields = %+v, want %+v", got, want)
	}
	if _, created, _, _ := fake.state(); len(created) != 0 {
		t.Fatal("edit without image must not create a card")
	}
}

func TestEditWithImageCreatesNewCard(t *testing.T) {
	fake, url := newFakeAPI(t, domain.Card{ID: "1718000000001", Name: "Bob"})
	out, err := run(t, "", "edit", "1718000000001", "--server", url, "--image", writeImage(t), "--name", "Robert")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	cards, created, _, _ := fake.state()
	if len(created) != 1 || created[0].Name != "Robert" {
		t.Fatalf("expected new card named Robert, got %+v", created)
	}
	if len(cards) != 2 {
		t.Fatalf("original card should be kept, have %d cards", len(cards))
	}
	if !strings.Contains(out, "Saved as new card") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDeleteCard(t *testing.T) {
	fake, url := newFakeAPI(t, domain.Card{ID: "1718000000001", Name: "Bob"})
	if _, err := run(t, "", "delete", "1718000000001", "--server", url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cards, _, _, _ := fake.state(); len(cards) != 0 {
		t.Fatalf("card not removed: %+v", cards)
	}
}

func TestEraseAsksForConfirmation(t *testing.T) {
	fake, url := newFakeAPI(t, domain.Card{ID: "1718000000001", Name: "Bob"})
	out, err := run(t, "n\n", "erase", "--server", url)
	if err != nil {
		t.Fatalf("erase: %v", err)
	}
	if _, _, erased, _ := fake.state(); erased != 0 {
		t.Fatal("erase ran without confirmation")
	}
	if !strings.Contains(out, "Operation cancelled.") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = run(t, "", "erase", "--yes", "--server", url)
	if err != nil {
		t.Fatalf("erase --yes: %v", err)
	}
	if _, _, erased, _ := fake.state(); erased != 1 || !strings.Contains(out, "All cards deleted successfully.") {
		t.Fatalf("erase not performed, output:\n%s", out)
	}
}

func TestExtractJSON(t *testing.T) {
	fake, url := newFakeAPI(t)
	want := domain.ExtractedCard{Name: "Ann", Phone: "555"}
	fake.setExtracted(want)
	out, err := run(t, "", "extract", writeImage(t), "--json", "--server", url)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var got domain.ExtractedCard
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestKeySetAndStatus(t *testing.T) {
	fake, url := newFakeAPI(t)
	out, err := run(t, "", "key", "status", "--server", url)
	if err != nil {
		t.Fatalf("key status: %v", err)
	}
	if !strings.Contains(out, "No API key configured") {
		t.Fatalf("unexpected status:\n%s", out)
	}

	if _, err := run(t, "", "key", "set", " secret-1234 ", "--server", url); err != nil {
		t.Fatalf("key set: %v", err)
	}
	if _, _, _, key := fake.state(); key != "secret-1234" {
		t.Fatalf("saved key = %q", key)
	}
	out, err = run(t, "", "key", "status", "--server", url)
	if err != nil {
		t.Fatalf("key status: %v", err)
	}
	if !strings.Contains(out, "****1234") || strings.Contains(out, "secret") {
		t.Fatalf("status should show only the masked key:\n%s", out)
	}
}

func TestPickSingleMatchSkipsFinder(t *testing.T) {
	_, url := newFakeAPI(t,
		domain.Card{ID: "1718000000002", Name: "Ann", Email: "ann@example.com"},
		domain.Card{ID: "1718000000001", Name: "Bob", Company: "Acme"},
	)
	out, err := run(t, "", "pick", "acme", "--server", url)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if !strings.Contains(out, "Bob") || strings.Contains(out, "Ann") {
		t.Fatalf("unexpected pick output:\n%s", out)
	}
}

func TestPickRejectsUnknownField(t *testing.T) {
	_, url := newFakeAPI(t)
	if _, err := run(t, "", "pick", "--copy", "fax", "--server", url); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestFieldValue(t *testing.T) {
	card := domain.Card{ID: "1", Name: "Ann", Email: "a@b.c", ImageURL: "/uploads/images/1.png"}
	cases := map[string]string{"name": "Ann", "EMAIL": "a@b.c", "id": "1", "image": "/uploads/images/1.png", "phone": ""}
	for field, want := range cases {
		got, ok := fieldValue(card, field)
		if !ok || got != want {
			t.Errorf("fieldValue(%q) = %q, %v; want %q", field, got, ok, want)
		}
	}
	if _, ok := fieldValue(card, "fax"); ok {
		t.Error("fax should be unknown")
	}
}

func TestTableRenderAndTruncate(t *testing.T) {
	table := ui.NewTable([]ui.TableColumn{{Header: "Name", Width: 4}, {Header: "ID"}})
	table.AddRow([]string{"Zoë", "1"})
	table.AddRow([]string{"Bartholomew", "2"})
	lines := strings.Split(strings.TrimRight(table.Render(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), table.Render())
	}
	if want := "Zoë" + strings.Repeat(" ", 10) + "1"; lines[2] != want {
		t.Errorf("row not padded to widest cell: %q", lines[2])
	}
	if got := ui.Truncate("Bartholomew", 8); got != "Barth..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := ui.Truncate("Zoë", 8); got != "Zoë" {
		t.Errorf("Truncate short = %q", got)
	}
}
