package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"bookstore/internal/catalog"
)

// BookSearch is the body of a book search request. Empty fields are not
// sent.
type BookSearch struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	Sort      string `json:"sort,omitempty"`
}

// Books lists books in the given order. An empty sort uses the server
// default.
func (c *Client) Books(ctx context.Context, sort string) ([]catalog.Book, error) {
	var query url.Values
	if sort != "" {
		query = url.Values{"sort": []string{sort}}
	}
	var books []catalog.Book
	if err := c.do(ctx, http.MethodGet, "/api/Books", query, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// SearchBooks runs a filtered book search.
func (c *Client) SearchBooks(ctx context.Context, search BookSearch) ([]catalog.Book, error) {
	var books []catalog.Book
	if err := c.do(ctx, http.MethodPost, "/api/Books/search", nil, search, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Book fetches a single book.
func (c *Client) Book(ctx context.Context, id int) (catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/Books/%d", id), nil, nil, &book); err != nil {
		return catalog.Book{}, err
	}
	return book, nil
}

// CreateBook creates a book. The ID of input is not sent.
func (c *Client) CreateBook(ctx context.Context, input catalog.BookInput) error {
	input = input.Normalize()
	input.ID = 0
	return c.do(ctx, http.MethodPost, "/api/Books", nil, input, nil)
}

// UpdateBook replaces the book identified by input.ID.
func (c *Client) UpdateBook(ctx context.Context, input catalog.BookInput) error {
	input = input.Normalize()
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/Books/%d", input.ID), nil, input, nil)
}

// DeleteBook removes a book.
func (c *Client) DeleteBook(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/Books/%d", id), nil, nil, nil)
}

// BookFormOptions are the choices offered by the book editor.
type BookFormOptions struct {
	Authors    []catalog.Author
	Publishers []catalog.Publisher
}

// LoadBookFormOptions loads authors and publishers concurrently. If either
// request fails the other is cancelled and no partial result is returned.
func (c *Client) LoadBookFormOptions(ctx context.Context) (BookFormOptions, error) {
	g, gctx := errgroup.WithContext(ctx)
	var authors []catalog.Author
	var publishers []catalog.Publisher

	g.Go(func() error {
		list, err := c.Authors(gctx)
		if err != nil {
			return fmt.Errorf("load authors: %w", err)
		}
		authors = list
		return nil
	})

	g.Go(func() error {
		list, err := c.Publishers(gctx, "")
		if err != nil {
			return fmt.Errorf("load publishers: %w", err)
		}
		publishers = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return BookFormOptions{}, err
	}
	return BookFormOptions{Authors: authors, Publishers: publishers}, nil
}
