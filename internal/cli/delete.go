package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
)

var eraseYes bool

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Short:   "Delete one card and its photo",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if err := api.DeleteCard(cmd.Context(), args[0]); err != nil {
			if client.IsNotFound(err) {
				fmt.Fprintln(out, ui.FormatError("Card not found: "+args[0]))
			}
			return err
		}
		fmt.Fprintln(out, ui.FormatSuccess("Card deleted: "+args[0]))
		return nil
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Delete every card and photo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !eraseYes {
			fmt.Fprint(out, ui.StyleWarning.Render("Delete ALL cards? This cannot be undone. (y/n): "))
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Fprintln(out, ui.FormatInfo("Operation cancelled."))
				return nil
			}
		}
		res, err := api.DeleteAll(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, ui.FormatError("Failed to erase cards"))
			return err
		}
		fmt.Fprintln(out, ui.FormatSuccess(res.Message))
		fmt.Fprintln(out, ui.FormatMuted(fmt.Sprintf("Removed %d cards and %d images", res.Cards, res.Images)))
		return nil
	},
}

func init() {
	eraseCmd.Flags().BoolVarP(&eraseYes, "yes", "y", false, "skip the confirmation prompt")
}
