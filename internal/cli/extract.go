package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Read contact details off a card photo without saving",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		upload, closer, err := openUpload(args[0])
		if err != nil {
			return err
		}
		defer closer.Close()

		extracted, err := api.Extract(cmd.Context(), upload)
		if err != nil {
			fmt.Fprintln(out, ui.FormatError("Extraction failed"))
			return err
		}
		if extractJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(extracted)
		}
		printExtracted(out, extracted)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the result as JSON")
}
