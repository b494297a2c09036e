package catalog

import (
	"errors"
	"strings"
)

// ErrValidation indicates a form payload failed client-side validation.
var ErrValidation = errors.New("validation error")

// Book is a catalog book as listed by the API.
type Book struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	ISBN           string `json:"isbn"`
	PageCount      int    `json:"pageCount"`
	PublishedDate  string `json:"publishedDate"`
	AuthorID       *int   `json:"authorId,omitempty"`
	PublisherID    *int   `json:"publisherId,omitempty"`
	AuthorFullName string `json:"authorFullName,omitempty"`
	PublisherName  string `json:"publisherName,omitempty"`
	YearsAgo       *int   `json:"yearsAgo,omitempty"`
}

// PublishedDay returns the yyyy-mm-dd prefix of PublishedDate.
func (b Book) PublishedDay() string {
	return datePrefix(b.PublishedDate)
}

// Author is a catalog author.
type Author struct {
	ID          int    `json:"id"`
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Biography   string `json:"biography,omitempty"`
}

// Birthday returns the yyyy-mm-dd prefix of DateOfBirth.
func (a Author) Birthday() string {
	return datePrefix(a.DateOfBirth)
}

// AuthorPage is one page of the paginated author listing.
type AuthorPage struct {
	Items      []Author `json:"items"`
	PageNumber int      `json:"pageNumber"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
	TotalCount int      `json:"totalCount"`
}

// HasPrev reports whether an earlier page exists.
func (p AuthorPage) HasPrev() bool {
	return p.PageNumber > 1
}

// HasNext reports whether a later page exists.
func (p AuthorPage) HasNext() bool {
	return p.PageNumber < p.TotalPages
}

// PrevPage returns the previous page number, clamped to 1.
func (p AuthorPage) PrevPage() int {
	if p.PageNumber <= 1 {
		return 1
	}
	return p.PageNumber - 1
}

// NextPage returns the next page number, clamped to TotalPages.
func (p AuthorPage) NextPage() int {
	if p.PageNumber >= p.TotalPages {
		return p.PageNumber
	}
	return p.PageNumber + 1
}

// Publisher is a catalog publisher.
type Publisher struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// Volume is a comic volume returned by the external comics search.
type Volume struct {
	ExternalID int    `json:"externalId"`
	Name       string `json:"name"`
	Publisher  string `json:"publisher,omitempty"`
	StartYear  *int   `json:"startYear,omitempty"`
}

// Issue is a single comic issue of a Volume.
type Issue struct {
	ExternalID    int    `json:"externalId"`
	Name          string `json:"name"`
	IssueNumber   string `json:"issueNumber"`
	CoverDate     string `json:"coverDate,omitempty"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
	Description   string `json:"description,omitempty"`
}

// CoverDay returns the yyyy-mm-dd prefix of CoverDate.
func (i Issue) CoverDay() string {
	return datePrefix(i.CoverDate)
}

func datePrefix(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 10 {
		return value[:10]
	}
	return value
}
