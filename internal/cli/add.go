package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/domain"
)

var (
	addImage   string
	addExtract bool
	addFields  *fieldFlags
)

var addCmd = &cobra.Command{
	Use:   "add --image <file>",
	Short: "Upload a card photo and store its details",
	Long: `Upload a card photo together with its contact fields.

With --extract the fields are first read from the photo by the model;
any field flag given on the command line wins over the extracted value.

Examples:
  cardctl add --image card.jpg --extract
  cardctl add --image card.jpg --name "Ann Lee" --company Acme --category Work`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addImage, "image", "", "card photo to upload")
	addCmd.Flags().BoolVar(&addExtract, "extract", false, "fill fields from the photo before saving")
	_ = addCmd.MarkFlagRequired("image")
	addFields = newFieldFlags(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	var fields domain.CardFields
	if addExtract {
		upload, closer, err := openUpload(addImage)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.FormatInfo("Reading card..."))
		extracted, err := api.Extract(ctx, upload)
		closer.Close()
		if err != nil {
			fmt.Fprintln(out, ui.FormatError("Extraction failed"))
			return err
		}
		fields = fields.Merge(extracted)
	}
	addFields.apply(cmd, &fields)
	if !fields.HasName() {
		return errors.New("name is required: pass --name or use --extract")
	}

	upload, closer, err := openUpload(addImage)
	if err != nil {
		return err
	}
	defer closer.Close()
	card, err := api.CreateCard(ctx, fields, upload)
	if err != nil {
		fmt.Fprintln(out, ui.FormatError("Failed to save card"))
		return err
	}
	fmt.Fprintln(out, ui.FormatSuccess("Card saved: "+card.ID))
	printCard(out, card)
	return nil
}
