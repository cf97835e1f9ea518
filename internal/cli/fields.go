package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bizcards/internal/cli/ui"
	"bizcards/pkg/client"
	"bizcards/pkg/domain"
)

// fieldFlags binds one flag per editable card field.
type fieldFlags struct {
	values map[string]*string
}

var fieldNames = []string{"name", "company", "position", "phone", "email", "website", "address", "category"}

func newFieldFlags(cmd *cobra.Command) *fieldFlags {
	f := &fieldFlags{values: make(map[string]*string, len(fieldNames))}
	for _, name := range fieldNames {
		f.values[name] = cmd.Flags().String(name, "", "card "+name)
	}
	return f
}

// apply copies the flags the user actually set onto fields.
func (f *fieldFlags) apply(cmd *cobra.Command, fields *domain.CardFields) {
	for _, name := range fieldNames {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v := strings.TrimSpace(*f.values[name])
		switch name {
		case "name":
			fields.Name = v
		case "company":
			fields.Company = v
		case "position":
			fields.Position = v
		case "phone":
			fields.Phone = v
		case "email":
			fields.Email = v
		case "website":
			fields.Website = v
		case "address":
			fields.Address = v
		case "category":
			fields.Category = v
		}
	}
}

// fieldValue returns the named field of card, or false for an unknown name.
func fieldValue(card domain.Card, name string) (string, bool) {
	switch strings.ToLower(name) {
	case "id":
		return card.ID, true
	case "name":
		return card.Name, true
	case "company":
		return card.Company, true
	case "position":
		return card.Position, true
	case "phone":
		return card.Phone, true
	case "email":
		return card.Email, true
	case "website":
		return card.Website, true
	case "address":
		return card.Address, true
	case "category":
		return card.Category, true
	case "image", "imageurl":
		return card.ImageURL, true
	}
	return "", false
}

// openUpload opens an image file for sending. The caller closes it.
func openUpload(path string) (client.Upload, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return client.Upload{}, nil, fmt.Errorf("open image: %w", err)
	}
	return client.Upload{Filename: filepath.Base(path), Reader: f}, f, nil
}

// printCard writes the card as labelled lines.
func printCard(w io.Writer, card domain.Card) {
	rows := []struct{ label, value string }{
		{"ID", card.ID},
		{"Name", card.Name},
		{"Company", card.Company},
		{"Position", card.Position},
		{"Phone", card.Phone},
		{"Email", card.Email},
		{"Website", card.Website},
		{"Address", card.Address},
		{"Category", card.Category},
		{"Image", imageLink(card.ImageURL)},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", ui.StyleLabel.Render(fmt.Sprintf("%-9s", row.label+":")), row.value)
	}
}

func printExtracted(w io.Writer, x domain.ExtractedCard) {
	printCard(w, domain.CardFields{}.Merge(x).Card("", ""))
}

// imageLink turns a service-relative image path into a full URL.
func imageLink(imageURL string) string {
	if imageURL == "" || strings.Contains(imageURL, "://") {
		return imageURL
	}
	return api.BaseURL() + imageURL
}
