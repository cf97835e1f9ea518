package cardid

import (
	"strings"
	"testing"
	"time"

	"bizcards/pkg/domain"
)

func TestNewEmbedsMillis(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	id := New(now)
	if !strings.HasPrefix(id, "1718000000123-") {
		t.Fatalf("id %q does not start with the timestamp", id)
	}
	if got := Timestamp(id); got != 1718000000123 {
		t.Fatalf("Timestamp(%q) = %d", id, got)
	}
	if !Valid(id) {
		t.Fatalf("generated id %q should be valid", id)
	}
}

func TestTimestamp(t *testing.T) {
	cases := []struct {
		id   string
		want int64
	}{
		{"1700000000000-5", 1700000000000},
		{"1700000000000", 1700000000000},
		{"42abc-1", 42},
		{"abc-1", 0},
		{"", 0},
		{"-17", 0},
	}
	for _, tc := range cases {
		if got := Timestamp(tc.id); got != tc.want {
			t.Fatalf("Timestamp(%q) = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, id := range []string{"1-2", "legacy_card", "ABC-123"} {
		if !Valid(id) {
			t.Fatalf("%q should be valid", id)
		}
	}
	for _, id := range []string{"", "../etc/passwd", "a/b", "a.json", "with space"} {
		if Valid(id) {
			t.Fatalf("%q should be rejected", id)
		}
	}
}

func TestSortNewestFirst(t *testing.T) {
	cards := []domain.Card{
		{ID: "1000-1", Name: "oldest"},
		{ID: "garbage", Name: "no-stamp"},
		{ID: "3000-1", Name: "newest"},
		{ID: "2000-9", Name: "middle"},
	}
	SortNewestFirst(cards)
	want := []string{"newest", "middle", "oldest", "no-stamp"}
	for i, name := range want {
		if cards[i].Name != name {
			t.Fatalf("position %d = %q, want %q (%+v)", i, cards[i].Name, name, cards)
		}
	}
}
