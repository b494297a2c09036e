package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// IssueInput saves an external comic issue into the local catalog.
type IssueInput struct {
	ExternalIssueID int      `json:"externalIssueId"`
	Title           string   `json:"title"`
	ReleaseDate     string   `json:"releaseDate"`
	IssueNumber     string   `json:"issueNumber"`
	CoverImageURL   string   `json:"coverImageUrl"`
	Description     string   `json:"description"`
	PageCount       *int     `json:"pageCount"`
	Price           *float64 `json:"price"`
	Stock           int      `json:"stock"`
}

// IssueInputFrom pre-fills the save form from an external issue.
func IssueInputFrom(issue Issue) IssueInput {
	return IssueInput{
		ExternalIssueID: issue.ExternalID,
		Title:           issue.Name,
		ReleaseDate:     issue.CoverDay(),
		IssueNumber:     issue.IssueNumber,
		CoverImageURL:   issue.CoverImageURL,
		Description:     issue.Description,
	}
}

// ParseOptionalInt returns nil for blank input.
func ParseOptionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a whole number.", ErrValidation, raw)
	}
	return &value, nil
}

// ParseOptionalFloat returns nil for blank input.
func ParseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number.", ErrValidation, raw)
	}
	return &value, nil
}

// ParseStock reads the stock field, treating blank as zero.
func ParseStock(raw string) (int, error) {
	value, err := ParseOptionalInt(raw)
	if err != nil || value == nil {
		return 0, err
	}
	if *value < 0 {
		return 0, fmt.Errorf("%w: Stock cannot be negative.", ErrValidation)
	}
	return *value, nil
}

// Validate requires an external issue reference.
func (in IssueInput) Validate() error {
	if in.ExternalIssueID <= 0 {
		return fmt.Errorf("%w: No issue selected.", ErrValidation)
	}
	if in.PageCount != nil && *in.PageCount < 0 {
		return fmt.Errorf("%w: Page count cannot be negative.", ErrValidation)
	}
	if in.Price != nil && *in.Price < 0 {
		return fmt.Errorf("%w: Price cannot be negative.", ErrValidation)
	}
	return nil
}
