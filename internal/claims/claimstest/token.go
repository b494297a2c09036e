// Package claimstest builds unsigned bearer tokens for tests.
package claimstest

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// Token returns a three-segment token whose payload is payload encoded as JSON.
func Token(t testing.TB, payload map[string]any) string {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal token payload: %v", err)
	}
	return Raw(`{"alg":"HS256","typ":"JWT"}`, string(body))
}

// Raw assembles a token from literal header and payload text.
func Raw(header, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2lnbmF0dXJl"
}
