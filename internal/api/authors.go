package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"bookstore/internal/catalog"
)

// DefaultAuthorPageSize matches the page size of the authors screen.
const DefaultAuthorPageSize = 5

// AuthorInput creates an author.
type AuthorInput struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Biography   string `json:"biography,omitempty"`
}

// Authors lists every author.
func (c *Client) Authors(ctx context.Context) ([]catalog.Author, error) {
	var authors []catalog.Author
	if err := c.do(ctx, http.MethodGet, "/api/Authors", nil, nil, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// Author fetches a single author.
func (c *Client) Author(ctx context.Context, id int) (catalog.Author, error) {
	var author catalog.Author
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/Authors/%d", id), nil, nil, &author); err != nil {
		return catalog.Author{}, err
	}
	return author, nil
}

// CreateAuthor creates an author.
func (c *Client) CreateAuthor(ctx context.Context, input AuthorInput) error {
	return c.do(ctx, http.MethodPost, "/api/Authors", nil, input, nil)
}

// AuthorPage fetches one page of authors. Non-positive arguments fall back
// to the first page and the default size.
func (c *Client) AuthorPage(ctx context.Context, pageNumber, pageSize int) (catalog.AuthorPage, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = DefaultAuthorPageSize
	}
	query := url.Values{
		"pageNumber": []string{strconv.Itoa(pageNumber)},
		"pageSize":   []string{strconv.Itoa(pageSize)},
	}

	var page catalog.AuthorPage
	if err := c.do(ctx, http.MethodGet, "/api/Authors/page", query, nil, &page); err != nil {
		return catalog.AuthorPage{}, err
	}
	return page, nil
}
