package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		card, err := api.GetCard(cmd.Context(), args[0])
		if err != nil {
			if client.IsNotFound(err) {
				fmt.Fprintln(out, ui.FormatError("Card not found: "+args[0]))
			}
			return err
		}
		printCard(out, card)
		return nil
	},
}
