// Package cardid generates and orders card identifiers.
//
// An id has the form "<unix millis>-<random>". It is also the file stem of
// the card's metadata and image, and its leading number is the sort key for
// listings.
package cardid

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"bizcards/pkg/domain"
)

const randomSpan = 1_000_000_000

// New returns a fresh id stamped with now.
func New(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.Itoa(rand.IntN(randomSpan))
}

// Timestamp returns the leading integer of id, or 0 when there is none.
// Like a lenient integer parse, digits are read up to the first non-digit.
func Timestamp(id string) int64 {
	head, _, _ := strings.Cut(strings.TrimSpace(id), "-")
	end := 0
	for end < len(head) && head[end] >= '0' && head[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	ts, err := strconv.ParseInt(head[:end], 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// Valid reports whether id is safe to use as a file stem.
func Valid(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// SortNewestFirst orders cards by descending id timestamp. Cards with equal
// timestamps keep their relative order.
func SortNewestFirst(cards []domain.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return Timestamp(cards[i].ID) > Timestamp(cards[j].ID)
	})
}
