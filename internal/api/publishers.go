package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bookstore/internal/catalog"
)

// PublisherInput creates a publisher.
type PublisherInput struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// Publishers lists publishers in the given order. An empty sort uses the
// server default.
func (c *Client) Publishers(ctx context.Context, sort string) ([]catalog.Publisher, error) {
	var query url.Values
	if sort != "" {
		query = url.Values{"sort": []string{sort}}
	}
	var publishers []catalog.Publisher
	if err := c.do(ctx, http.MethodGet, "/api/Publishers", query, nil, &publishers); err != nil {
		return nil, err
	}
	return publishers, nil
}

// Publisher fetches a single publisher.
func (c *Client) Publisher(ctx context.Context, id int) (catalog.Publisher, error) {
	var publisher catalog.Publisher
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/Publishers/%d", id), nil, nil, &publisher); err != nil {
		return catalog.Publisher{}, err
	}
	return publisher, nil
}

// CreatePublisher creates a publisher.
func (c *Client) CreatePublisher(ctx context.Context, input PublisherInput) error {
	return c.do(ctx, http.MethodPost, "/api/Publishers", nil, input, nil)
}
