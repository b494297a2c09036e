// Package claims reads bearer token payloads without verifying them. The
// issuing API is trusted; a token that cannot be read simply has no claims.
package claims

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// RoleClaim is the short role claim name.
	RoleClaim = "role"
	// RoleClaimURI is the long-form role claim emitted by ASP.NET identity.
	RoleClaimURI = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	// NameClaimURI is the long-form name claim emitted by ASP.NET identity.
	NameClaimURI = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"

	expiryClaim = "exp"
)

// Claims is a decoded token payload.
type Claims map[string]any

// Expiry returns the exp claim in seconds since the epoch.
func (c Claims) Expiry() (float64, bool) {
	raw, ok := c[expiryClaim]
	if !ok || raw == nil {
		return 0, false
	}
	value, ok := numeric(raw)
	if !ok {
		return math.NaN(), true
	}
	return value, true
}

// Expired reports whether the claims expired at or before now. Claims without
// exp never expire, and neither do claims whose exp is not a number.
func (c Claims) Expired(now time.Time) bool {
	if c == nil {
		return false
	}
	exp, ok := c.Expiry()
	if !ok {
		return false
	}
	if math.IsNaN(exp) {
		return false
	}
	return exp <= float64(now.Unix())
}

// ExpiresAt returns the expiry as a time, or the zero time when absent.
func (c Claims) ExpiresAt() time.Time {
	exp, ok := c.Expiry()
	if !ok || math.IsNaN(exp) {
		return time.Time{}
	}
	sec, frac := math.Modf(exp)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// Roles returns the role set carried by the claims. The short "role" claim
// wins; the URI-qualified claim is consulted only when it is absent.
func (c Claims) Roles() []string {
	if c == nil {
		return nil
	}
	raw := c[RoleClaim]
	if raw == nil {
		raw = c[RoleClaimURI]
	}

	switch value := raw.(type) {
	case string:
		if value == "" {
			return nil
		}
		return []string{value}
	case []any:
		roles := make([]string, 0, len(value))
		for _, item := range value {
			if role, ok := item.(string); ok {
				roles = append(roles, role)
			}
		}
		return roles
	case []string:
		return append([]string(nil), value...)
	default:
		return nil
	}
}

// HasRole reports whether role is in the role set.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Subject returns the sub claim.
func (c Claims) Subject() string {
	return c.stringClaim("sub")
}

// Name returns the best available display name claim.
func (c Claims) Name() string {
	for _, key := range []string{"unique_name", "name", NameClaimURI, "email", "sub"} {
		if value := c.stringClaim(key); value != "" {
			return value
		}
	}
	return ""
}

func (c Claims) stringClaim(key string) string {
	value, _ := c[key].(string)
	return strings.TrimSpace(value)
}

func numeric(raw any) (float64, bool) {
	switch value := raw.(type) {
	case json.Number:
		f, err := value.Float64()
		return f, err == nil
	case float64:
		return value, true
	case int64:
		return float64(value), true
	case int:
		return float64(value), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
