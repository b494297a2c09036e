package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookstore/internal/guard"
	"bookstore/internal/session"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration", duration.String())
		})
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the session manager resolved for the request,
// or nil outside the session middleware.
func SessionFromContext(ctx context.Context) *session.Manager {
	m, _ := ctx.Value(sessionContextKey).(*session.Manager)
	return m
}

// WithSession stores m in ctx.
func WithSession(ctx context.Context, m *session.Manager) context.Context {
	return context.WithValue(ctx, sessionContextKey, m)
}

// newSessionMiddleware resolves the browser session from its cookie, issuing
// a fresh id when the cookie is missing or malformed.
func newSessionMiddleware(registry *session.Registry, cookies cookieFactory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := browserSessionID(r)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, cookies.session(id, sessionCookieTTL))
			}

			m, err := registry.Get(r.Context(), id)
			if err != nil {
				logger.Error("resolve browser session", "error", err)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), m)))
		})
	}
}

func browserSessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// httpNavigator redirects with 303 See Other so the redirect replaces the
// request in the browser history instead of adding an entry.
type httpNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

func (n httpNavigator) Replace(path string) {
	http.Redirect(n.w, n.r, path, http.StatusSeeOther)
}

// newGuardMiddleware evaluates g on every request.
func newGuardMiddleware(g guard.Guard, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current guard.Session
			if m := SessionFromContext(r.Context()); m != nil {
				current = m
			}

			if !g.Enforce(current, httpNavigator{w: w, r: r}) {
				logger.Debug("navigation blocked", "path", r.URL.Path, "decision", g.Check(current).String(), "role", g.Role())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newSecurityHeadersMiddleware(environment string) func(http.Handler) http.Handler {
	isDev := strings.EqualFold(environment, "development")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
