package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
)

var listQuery string

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored cards, newest first",
	Aliases: []string{"ls"},
	Long: `List stored cards in a table.

Examples:
  cardctl list
  cardctl list -q acme`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "filter by name, company, position or category")
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cards, _, _, err := api.ListCards(cmd.Context(), "")
	if err != nil {
		fmt.Fprintln(out, ui.FormatError("Failed to list cards"))
		return err
	}
	total := len(cards)
	cards = client.Filter(cards, listQuery)

	if len(cards) == 0 {
		if listQuery != "" {
			fmt.Fprintln(out, ui.FormatWarning("No cards match: "+listQuery))
		} else {
			fmt.Fprintln(out, ui.FormatWarning("No cards found"))
			fmt.Fprintln(out, ui.FormatInfo("Add one with: cardctl add --image card.jpg --extract"))
		}
		return nil
	}

	fmt.Fprintln(out, ui.FormatTitle("Cards"))
	fmt.Fprintln(out)
	table := ui.NewTable([]ui.TableColumn{
		{Header: "Name", Width: 24},
		{Header: "Company", Width: 20},
		{Header: "Position", Width: 20},
		{Header: "Category", Width: 16},
		{Header: "ID", Width: 13},
	})
	for _, card := range cards {
		table.AddRow([]string{
			ui.Truncate(card.Name, 30),
			ui.Truncate(card.Company, 24),
			ui.Truncate(card.Position, 24),
			card.Category,
			card.ID,
		})
	}
	fmt.Fprint(out, table.Render())
	fmt.Fprintln(out)
	if listQuery != "" {
		fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("Showing %d of %d cards", len(cards), total)))
	} else {
		fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("Total: %d cards", total)))
	}
	return nil
}
