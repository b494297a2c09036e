package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bookstore/internal/api"
	"bookstore/internal/config"
	"bookstore/internal/guard"
	"bookstore/internal/session"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, registry *session.Registry, client *api.Client, renderer *Renderer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	v := &views{renderer: renderer, editorRole: cfg.EditorRole}
	sessionHandler := NewSessionHandler(v, registry, cfg.LandingPath, logger)
	oauthHandler := NewOAuthHandler(v, client, cfg.LandingPath, logger)
	catalogHandler := NewCatalogHandler(v, client, logger)
	comicsHandler := NewComicsHandler(v, client, logger)

	authenticated := guard.Authenticated()
	editor := guard.RequireRole(cfg.EditorRole)

	r.Group(func(r chi.Router) {
		r.Use(newSessionMiddleware(registry, newCookieFactory(cfg.Environment), logger))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, cfg.LandingPath, http.StatusFound)
		})
		r.Get("/login", sessionHandler.LoginPage)
		r.Post("/login", sessionHandler.Login)
		r.Post("/logout", sessionHandler.Logout)
		r.Get("/login/google", oauthHandler.GoogleLogin)
		r.Get("/oauth/callback", oauthHandler.Callback)
		r.Get(oauthCompletePath, oauthHandler.Complete)
		r.Get(guard.ForbiddenPath, func(w http.ResponseWriter, r *http.Request) {
			v.render(w, r, http.StatusForbidden, "forbidden", "Forbidden", "", nil)
		})

		r.With(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		})).Get("/api/session", sessionHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(newGuardMiddleware(authenticated, logger))
			r.Get("/books", catalogHandler.Books)
			r.Get("/authors", catalogHandler.Authors)
			r.Get("/publishers", catalogHandler.Publishers)
			r.Get("/comics/volumes", comicsHandler.Volumes)
			r.Get("/comics/volumes/{id}/issues", comicsHandler.Issues)
		})

		r.Group(func(r chi.Router) {
			r.Use(newGuardMiddleware(editor, logger))
			r.Get("/books/create", catalogHandler.NewBook)
			r.Post("/books/create", catalogHandler.CreateBook)
			r.Get("/books/{id}/edit", catalogHandler.EditBook)
			r.Post("/books/{id}/edit", catalogHandler.UpdateBook)
			r.Post("/books/{id}/delete", catalogHandler.DeleteBook)
			r.Get("/comics/issues/create", comicsHandler.NewIssue)
			r.Post("/comics/issues/create", comicsHandler.CreateIssue)
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
