package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bookstore/internal/catalog"
)

// SearchVolumes searches the external comics catalog. A blank query returns
// no results without calling the API.
func (c *Client) SearchVolumes(ctx context.Context, q string) ([]catalog.Volume, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	var volumes []catalog.Volume
	if err := c.do(ctx, http.MethodGet, "/api/comics/volumes", url.Values{"q": []string{q}}, nil, &volumes); err != nil {
		return nil, err
	}
	return volumes, nil
}

// VolumeIssues lists the issues of an external volume.
func (c *Client) VolumeIssues(ctx context.Context, volumeID int) ([]catalog.Issue, error) {
	var issues []catalog.Issue
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/comics/volumes/%d/issues", volumeID), nil, nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// SaveIssue stores an external issue in the local catalog.
func (c *Client) SaveIssue(ctx context.Context, input catalog.IssueInput) error {
	return c.do(ctx, http.MethodPost, "/api/comic-issues", nil, input, nil)
}
