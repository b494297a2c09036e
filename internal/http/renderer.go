package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.tmpl templates/pages/*.tmpl
var templateFS embed.FS

// Renderer renders embedded HTML pages inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses the layout and every page template.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"deref": func(p *int) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprint(*p)
		},
		"selected": func(a, b int) bool { return a == b },
	}

	base, err := template.New("root").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		page, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = page
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes page name into a buffer and writes it with status. A
// template failure produces a 500 without partial output.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	page, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown page template", "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type navView struct {
	Authenticated bool
	Name          string
	Editor        bool
	Path          string
}

type pageData struct {
	Title   string
	Nav     navView
	Error   string
	Content any
}

// views couples the renderer with the per-request session view.
type views struct {
	renderer   *Renderer
	editorRole string
}

func (v *views) nav(r *http.Request) navView {
	nav := navView{Path: r.URL.Path}
	m := SessionFromContext(r.Context())
	if m == nil {
		return nav
	}

	state := m.State()
	nav.Authenticated = state.Authenticated
	if !nav.Authenticated {
		return nav
	}
	nav.Editor = m.HasRole(v.editorRole)
	if state.Profile != nil {
		nav.Name = state.Profile.DisplayName()
	}
	if nav.Name == "" {
		nav.Name = state.Claims.Name()
	}
	return nav
}

// render writes page name. An empty errMsg falls back to the error query
// parameter set by redirects.
func (v *views) render(w http.ResponseWriter, r *http.Request, status int, name, title, errMsg string, content any) {
	if errMsg == "" {
		errMsg = r.URL.Query().Get("error")
	}
	v.renderer.Render(w, status, name, pageData{
		Title:   title,
		Nav:     v.nav(r),
		Error:   errMsg,
		Content: content,
	})
}
