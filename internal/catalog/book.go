package catalog

import (
	"fmt"
	"strings"
	"time"
)

// BookInput is the create/edit book form.
type BookInput struct {
	ID            int    `json:"id,omitempty"`
	Title         string `json:"title"`
	ISBN          string `json:"isbn"`
	PageCount     int    `json:"pageCount"`
	PublishedDate string `json:"publishedDate"`
	AuthorID      int    `json:"authorId"`
	PublisherID   int    `json:"publisherId"`
}

// BookInputFrom fills the form from an existing book.
func BookInputFrom(b Book) BookInput {
	input := BookInput{
		ID:            b.ID,
		Title:         b.Title,
		ISBN:          b.ISBN,
		PageCount:     b.PageCount,
		PublishedDate: b.PublishedDay(),
	}
	if b.AuthorID != nil {
		input.AuthorID = *b.AuthorID
	}
	if b.PublisherID != nil {
		input.PublisherID = *b.PublisherID
	}
	return input
}

// Normalize trims free-text fields and clamps the page count.
func (in BookInput) Normalize() BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.PublishedDate = strings.TrimSpace(in.PublishedDate)
	if in.PageCount < 0 {
		in.PageCount = 0
	}
	return in
}

// Validate checks the form the same way the editor screen reports it.
func (in BookInput) Validate() error {
	in = in.Normalize()
	if in.Title == "" || in.ISBN == "" || in.PublishedDate == "" {
		return fmt.Errorf("%w: Please fill all required fields.", ErrValidation)
	}
	if in.AuthorID <= 0 || in.PublisherID <= 0 {
		return fmt.Errorf("%w: Please choose an author and a publisher.", ErrValidation)
	}
	if NormalizeISBN(in.ISBN) == "" {
		return fmt.Errorf("%w: ISBN must have 10 or 13 digits.", ErrValidation)
	}
	if _, err := time.Parse(time.DateOnly, in.PublishedDate); err != nil {
		return fmt.Errorf("%w: Published date must be a valid date.", ErrValidation)
	}
	return nil
}

// NormalizeISBN strips separators from an ISBN-10 or ISBN-13. It returns ""
// when value is neither.
func NormalizeISBN(value string) string {
	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if isDigit(r) {
			cleaned = append(cleaned, r)
			continue
		}
		if r == 'X' || r == 'x' {
			cleaned = append(cleaned, 'X')
		}
	}

	switch len(cleaned) {
	case 10:
		for i := 0; i < 9; i++ {
			if !isDigit(cleaned[i]) {
				return ""
			}
		}
	case 13:
		for _, r := range cleaned {
			if !isDigit(r) {
				return ""
			}
		}
	default:
		return ""
	}

	return string(cleaned)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// ValidationMessage strips the ErrValidation prefix for display.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
