// Package cli implements the cardctl commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
)

var (
	serverURL string

	// api is set by PersistentPreRunE before any command runs.
	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "cardctl",
	Short: "cardctl - manage scanned business cards",
	Long: ui.StyleTitle.Render("cardctl") + " - Business Card Manager\n\n" +
		"Upload card photos, let the model read the contact details,\n" +
		"and browse or edit the stored cards from the terminal.",
	SilenceUsage:      true,
	PersistentPreRunE: initClient,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "card service base URL (env CARDCTL_SERVER)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(keyCmd)
}

func defaultServer() string {
	if v := os.Getenv("CARDCTL_SERVER"); v != "" {
		return v
	}
	return client.DefaultBaseURL
}

func initClient(cmd *cobra.Command, args []string) error {
	api = client.NewClient(serverURL)
	return nil
}
