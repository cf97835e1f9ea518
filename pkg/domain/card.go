package domain

import "strings"

// Category groups cards in the UI. Stores persist any string.
type Category string

const (
	CategoryWork            Category = "Work"
	CategoryPersonal        Category = "Personal"
	CategoryPotentialClient Category = "Potential Client"
	CategoryOther           Category = "Other"
)

// Categories lists the categories offered by the UI, in display order.
func Categories() []Category {
	return []Category{CategoryWork, CategoryPersonal, CategoryPotentialClient, CategoryOther}
}

// Valid reports whether c is one of the offered categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Card is one stored business card.
type Card struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Address  string `json:"address"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

// CardFields is the client-editable part of a card.
type CardFields struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

// ExtractedCard is what an image-understanding model reads off a card photo.
type ExtractedCard struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	Address  string `json:"address"`
}

// Card attaches identity and image location to the fields.
func (f CardFields) Card(id, imageURL string) Card {
	return Card{
		ID:       id,
		Name:     f.Name,
		Company:  f.Company,
		Position: f.Position,
		Phone:    f.Phone,
		Email:    f.Email,
		Website:  f.Website,
		Address:  f.Address,
		Category: f.Category,
		ImageURL: imageURL,
	}
}

// HasName reports whether the required name field is filled in.
func (f CardFields) HasName() bool {
	return strings.TrimSpace(f.Name) != ""
}

// Merge overwrites the contact fields with extracted values. Category is kept.
func (f CardFields) Merge(x ExtractedCard) CardFields {
	f.Name = x.Name
	f.Company = x.Company
	f.Position = x.Position
	f.Phone = x.Phone
	f.Email = x.Email
	f.Website = x.Website
	f.Address = x.Address
	return f
}

// Fields strips identity and image location from the card.
func (c Card) Fields() CardFields {
	return CardFields{
		Name:     c.Name,
		Company:  c.Company,
		Position: c.Position,
		Phone:    c.Phone,
		Email:    c.Email,
		Website:  c.Website,
		Address:  c.Address,
		Category: c.Category,
	}
}
