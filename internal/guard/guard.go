// Package guard decides whether a protected view may render for a session.
package guard

// Default navigation targets.
const (
	LoginPath     = "/login"
	ForbiddenPath = "/forbidden"
)

// Session is the authorization view of a session.
type Session interface {
	IsAuthenticated() bool
	HasRole(role string) bool
}

// Navigator moves to another view, replacing the current history entry.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Replace implements Navigator.
func (f NavigatorFunc) Replace(path string) {
	f(path)
}

// Decision is the outcome of a guard check.
type Decision int

const (
	// Render lets the protected content render.
	Render Decision = iota
	// RedirectLogin sends the user to the login view.
	RedirectLogin
	// RedirectForbidden sends the user to the forbidden view.
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectForbidden:
		return "redirect_forbidden"
	default:
		return "unknown"
	}
}

// Guard gates a view. The zero value only requires authentication.
type Guard struct {
	role          string
	loginPath     string
	forbiddenPath string
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath overrides the login redirect target.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithForbiddenPath overrides the forbidden redirect target.
func WithForbiddenPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.forbiddenPath = path
		}
	}
}

// Authenticated requires a signed-in, unexpired session.
func Authenticated(opts ...Option) Guard {
	return newGuard("", opts)
}

// RequireRole requires authentication and membership in role.
func RequireRole(role string, opts ...Option) Guard {
	return newGuard(role, opts)
}

func newGuard(role string, opts []Option) Guard {
	g := Guard{role: role, loginPath: LoginPath, forbiddenPath: ForbiddenPath}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// Role returns the required role, or "" for an authentication-only guard.
func (g Guard) Role() string {
	return g.role
}

// Check evaluates the guard against the current session. Nothing is cached;
// every call reads the session afresh.
func (g Guard) Check(s Session) Decision {
	if s == nil || !s.IsAuthenticated() {
		return RedirectLogin
	}
	if g.role != "" && !s.HasRole(g.role) {
		return RedirectForbidden
	}
	return Render
}

// Target returns where d navigates to, or "" for Render.
func (g Guard) Target(d Decision) string {
	switch d {
	case RedirectLogin:
		return g.pathOr(g.loginPath, LoginPath)
	case RedirectForbidden:
		return g.pathOr(g.forbiddenPath, ForbiddenPath)
	default:
		return ""
	}
}

func (g Guard) pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}

// Enforce applies the decision through nav and reports whether the
// protected content may render.
func (g Guard) Enforce(s Session, nav Navigator) bool {
	decision := g.Check(s)
	if decision == Render {
		return true
	}
	nav.Replace(g.Target(decision))
	return false
}
