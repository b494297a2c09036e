package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/api"
	"bookstore/internal/session"
)

const (
	sessionCookieName = "bookstore_session"
	sessionCookieTTL  = 7 * 24 * time.Hour
)

type cookieFactory struct {
	secure bool
}

func newCookieFactory(env string) cookieFactory {
	return cookieFactory{secure: !strings.EqualFold(env, "development")}
}

func (f cookieFactory) session(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   f.secure,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

// SessionHandler serves sign-in, sign-out and the session status endpoint.
type SessionHandler struct {
	views       *views
	registry    *session.Registry
	landingPath string
	logger      *slog.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(v *views, registry *session.Registry, landingPath string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{views: v, registry: registry, landingPath: landingPath, logger: logger}
}

type loginView struct {
	Username       string
	GoogleLoginURL string
}

// LoginPage handles GET /login.
func (h *SessionHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	var message string
	if r.URL.Query().Get("err") == "no_token" {
		message = "Google sign-in did not return a token."
	}
	h.renderLogin(w, r, http.StatusOK, "", message)
}

// Login handles POST /login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	m := SessionFromContext(r.Context())
	if m == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if err := m.Login(r.Context(), username, password); err != nil {
		status := http.StatusUnauthorized
		var apiErr *api.Error
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == 0:
			h.logger.Warn("login request failed", "error", err)
			status = http.StatusBadGateway
		case !errors.Is(err, session.ErrAuthentication):
			h.logger.Error("login failed", "error", err)
			status = http.StatusInternalServerError
		}
		h.renderLogin(w, r, status, username, api.UserMessage(err, "Login failed."))
		return
	}

	http.Redirect(w, r, h.landingPath, http.StatusSeeOther)
}

func (h *SessionHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, message string) {
	h.views.render(w, r, status, "login", "Login", message, loginView{
		Username:       username,
		GoogleLoginURL: "/login/google",
	})
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if m := SessionFromContext(r.Context()); m != nil {
		m.Logout(r.Context())
	}
	if id := browserSessionID(r); id != "" {
		h.registry.Forget(id)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type sessionStatus struct {
	Authenticated bool           `json:"authenticated"`
	Name          string         `json:"name,omitempty"`
	Roles         []string       `json:"roles"`
	Profile       map[string]any `json:"profile,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
}

// Status handles GET /api/session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	m := SessionFromContext(r.Context())
	if m == nil {
		writeJSON(w, http.StatusOK, sessionStatus{Roles: []string{}})
		return
	}

	state := m.State()
	status := sessionStatus{
		Authenticated: state.Authenticated,
		Name:          state.Claims.Name(),
		Roles:         state.Roles,
		Profile:       state.Profile,
	}
	if status.Roles == nil {
		status.Roles = []string{}
	}
	if !state.ExpiresAt.IsZero() {
		expires := state.ExpiresAt
		status.ExpiresAt = &expires
	}
	writeJSON(w, http.StatusOK, status)
}
