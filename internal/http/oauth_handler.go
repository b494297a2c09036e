package http

import (
	"log/slog"
	"net/http"

	"bookstore/internal/api"
	"bookstore/internal/oauth"
)

const oauthCompletePath = "/oauth/complete"

// OAuthHandler handles the Google sign-in round trip. The remote API runs
// the provider exchange and hands the token back in the URL fragment.
type OAuthHandler struct {
	views       *views
	client      *api.Client
	landingPath string
	logger      *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(v *views, client *api.Client, landingPath string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{views: v, client: client, landingPath: landingPath, logger: logger}
}

// GoogleLogin handles GET /login/google
// Sends the browser to the API's external sign-in endpoint.
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.client.ExternalLoginURL(), http.StatusFound)
}

type callbackView struct {
	CompletePath string
}

// Callback handles GET /oauth/callback
// The fragment never reaches the server, so the page forwards it.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, "oauth_callback", "Signing in", "", callbackView{CompletePath: oauthCompletePath})
}

// Complete handles GET /oauth/complete?fragment=
// Stores the token, reloads the session and lands on the catalog.
func (h *OAuthHandler) Complete(w http.ResponseWriter, r *http.Request) {
	m := SessionFromContext(r.Context())
	if m == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	completer := oauth.NewCompleter(m.Store(), m.Reload,
		oauth.WithLandingPath(h.landingPath),
		oauth.WithLogger(h.logger),
	)
	if err := completer.Complete(r.Context(), r.URL.Query().Get("fragment"), httpNavigator{w: w, r: r}); err != nil {
		h.logger.Error("oauth completion failed", "error", err)
		h.views.render(w, r, http.StatusInternalServerError, "error", "Sign-in failed", "Sign-in could not be completed.", nil)
		return
	}

	h.logger.Info("oauth login successful", "authenticated", m.IsAuthenticated())
}
