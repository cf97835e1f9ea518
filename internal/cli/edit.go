package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
)

var (
	editImage  string
	editFields *fieldFlags
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a stored card",
	Long: `Change fields of a stored card. Only the flags given are changed.

Passing --image uploads the edited card as a new record with the new
photo; the original record stays until it is deleted.

Examples:
  cardctl edit 1718000000000 --phone "+1 555 0100"
  cardctl edit 1718000000000 --category "Potential Client"`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editImage, "image", "", "replace the photo (stores a new card)")
	editFields = newFieldFlags(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	card, err := api.GetCard(ctx, args[0])
	if err != nil {
		if client.IsNotFound(err) {
			fmt.Fprintln(out, ui.FormatError("Card not found: "+args[0]))
		}
		return err
	}
	fields := card.Fields()
	editFields.apply(cmd, &fields)
	edited := fields.Card(card.ID, card.ImageURL)

	var img *client.Upload
	if editImage != "" {
		upload, closer, err := openUpload(editImage)
		if err != nil {
			return err
		}
		defer closer.Close()
		img = &upload
	}

	saved, err := client.NewCache(api).Save(ctx, edited, img)
	if err != nil {
		fmt.Fprintln(out, ui.FormatError("Failed to save card"))
		return err
	}
	if saved.ID != card.ID {
		fmt.Fprintln(out, ui.FormatSuccess("Saved as new card: "+saved.ID))
		fmt.Fprintln(out, ui.FormatMuted("The previous record "+card.ID+" was kept"))
	} else {
		fmt.Fprintln(out, ui.FormatSuccess("Card updated: "+saved.ID))
	}
	printCard(out, saved)
	return nil
}
