package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
	"bizcards/pkg/domain"
)

var pickCopy string

var pickCmd = &cobra.Command{
	Use:   "pick [query]",
	Short: "Fuzzy-find a card and optionally copy one of its fields",
	Long: `Pick a card interactively. A query narrows the list first; when only
one card matches it is picked directly.

Examples:
  cardctl pick
  cardctl pick acme --copy email`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().StringVar(&pickCopy, "copy", "", "copy this field of the picked card to the clipboard")
}

func runPick(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if pickCopy != "" {
		if _, ok := fieldValue(domain.Card{}, pickCopy); !ok {
			return fmt.Errorf("unknown field %q", pickCopy)
		}
	}

	cache := client.NewCache(api)
	if err := cache.Load(cmd.Context()); err != nil {
		fmt.Fprintln(out, ui.FormatError("Failed to load cards"))
		return err
	}
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	cards := cache.Filter(query)

	var picked domain.Card
	switch len(cards) {
	case 0:
		fmt.Fprintln(out, ui.FormatWarning("No cards found"))
		return nil
	case 1:
		picked = cards[0]
	default:
		idx, err := fuzzyfinder.Find(
			cards,
			func(i int) string {
				return pickLabel(cards[i])
			},
			fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
				if i == -1 {
					return ""
				}
				var b strings.Builder
				printCard(&b, cards[i])
				return b.String()
			}),
		)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				fmt.Fprintln(out, ui.FormatInfo("Operation cancelled."))
				return nil
			}
			return err
		}
		picked = cards[idx]
	}

	printCard(out, picked)
	if pickCopy == "" {
		return nil
	}
	value, _ := fieldValue(picked, pickCopy)
	if value == "" {
		fmt.Fprintln(out, ui.FormatWarning("Card has no "+pickCopy))
		return nil
	}
	if err := clipboard.WriteAll(value); err != nil {
		fmt.Fprintln(out, ui.FormatMuted("(Clipboard access failed, please copy manually)"))
		return nil
	}
	fmt.Fprintln(out, ui.FormatSuccess("Copied "+pickCopy+" to clipboard"))
	return nil
}

func pickLabel(card domain.Card) string {
	parts := []string{card.Name}
	if card.Company != "" {
		parts = append(parts, card.Company)
	}
	if card.Category != "" {
		parts = append(parts, "["+card.Category+"]")
	}
	return strings.Join(parts, "  ")
}
