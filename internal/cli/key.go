package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the extraction API key stored by the service",
}

var keySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Save the API key on the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[0])
		if err := api.SaveAPIKey(cmd.Context(), key); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatError("Failed to save API key"))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatSuccess("API key saved"))
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		status, err := api.APIKeyStatus(cmd.Context())
		if err != nil {
			return err
		}
		if !status.Configured {
			fmt.Fprintln(out, ui.FormatWarning("No API key configured"))
			fmt.Fprintln(out, ui.FormatInfo("Set one with: cardctl key set <key>"))
			return nil
		}
		msg := "API key configured: " + status.APIKey
		if status.Source != "" {
			msg += " (" + status.Source + ")"
		}
		fmt.Fprintln(out, ui.FormatSuccess(msg))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyStatusCmd)
}
