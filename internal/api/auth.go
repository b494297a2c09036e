package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LoginResponse is the raw login body. The token field casing differs
// between API versions, so callers pick the field themselves.
type LoginResponse map[string]json.RawMessage

// Profile is the user profile returned by the API. Its shape is owned by the
// server, so it is kept as a generic map.
type Profile map[string]any

// DisplayName returns the most readable identifier in the profile.
func (p Profile) DisplayName() string {
	for _, key := range []string{"fullName", "displayName", "userName", "username", "name", "email"} {
		if value, ok := p[key].(string); ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts credentials to the auth endpoint.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Profile fetches the profile of the bearer of the current token.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, nil, &profile); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile response was empty")
	}
	return profile, nil
}
