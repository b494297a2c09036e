package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookstore/internal/api"
	"bookstore/internal/claims/claimstest"
	"bookstore/internal/config"
	"bookstore/internal/session"
	"bookstore/internal/tokenstore"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeAPI records calls against the remote bookstore API.
type fakeAPI struct {
	mu    sync.Mutex
	token string
	calls []string
	auths []string
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.RequestURI())
	f.auths = append(f.auths, r.Header.Get("Authorization"))
}

func (f *fakeAPI) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (f *fakeAPI) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auths) == 0 {
		return ""
	}
	return f.auths[len(f.auths)-1]
}

func apiJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type testApp struct {
	t        *testing.T
	handler  http.Handler
	api      *fakeAPI
	registry *session.Registry
	cookie   *http.Cookie
}

func newTestApp(t *testing.T, token string, routes map[string]http.HandlerFunc) *testApp {
	t.Helper()

	fake := &fakeAPI{token: token}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			apiJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username or password."})
			return
		}
		apiJSON(w, http.StatusOK, map[string]string{"token": fake.token})
	})
	mux.HandleFunc("GET /api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, map[string]string{"fullName": "Ana Anić"})
	})
	mux.HandleFunc("GET /api/Authors", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, []map[string]any{{"id": 1, "fullName": "Frank Herbert"}})
	})
	mux.HandleFunc("GET /api/Publishers", func(w http.ResponseWriter, r *http.Request) {
		apiJSON(w, http.StatusOK, []map[string]any{{"id": 2, "name": "Chilton"}})
	})
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	logger := newTestLogger()
	client, err := api.NewClient(server.URL, api.WithTransport(server.Client().Transport), api.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	backend := tokenstore.NewMemoryBackend()
	registry := session.NewRegistry(func(ctx context.Context, id string) (*session.Manager, error) {
		store := tokenstore.New(backend, id)
		return session.NewManager(ctx, store, client.WithTokens(store), session.WithLogger(logger))
	})
	t.Cleanup(registry.Close)

	renderer, err := NewRenderer(logger)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	cfg := config.Config{
		Environment:    "development",
		AllowedOrigins: []string{"http://localhost:5173"},
		EditorRole:     "Urednik",
		LandingPath:    "/books",
	}

	return &testApp{
		t:        t,
		handler:  NewRouter(cfg, registry, client, renderer, logger),
		api:      fake,
		registry: registry,
	}
}

func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			a.cookie = c
		}
	}
	return rr
}

func (a *testApp) login() {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/login", url.Values{"username": {"ana"}, "password": {"secret"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/books" {
		a.t.Fatalf("expected login redirect to /books, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func editorToken(t *testing.T) string {
	return claimstest.Token(t, map[string]any{
		"name": "ana",
		"role": "Urednik",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func readerToken(t *testing.T) string {
	return claimstest.Token(t, map[string]any{
		"name": "ivo",
		"role": "Citatelj",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func booksRoute(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, http.StatusOK, []map[string]any{{
		"id": 7, "title": "Dune", "isbn": "9780441013593", "authorFullName": "Frank Herbert", "publisherName": "Chilton", "yearsAgo": 60,
	}})
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, "", nil)

	rr := app.do(http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestProtectedPageRedirectsAnonymousToLogin(t *testing.T) {
	app := newTestApp(t, "", nil)

	rr := app.do(http.MethodGet, "/books", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if app.cookie == nil {
		t.Fatal("expected a browser session cookie to be issued")
	}
	if app.api.called("GET /api/Books?sort=title_asc") {
		t.Fatal("guarded page must not call the API")
	}
}

func TestLoginBrowseLogout(t *testing.T) {
	token := editorToken(t)
	app := newTestApp(t, token, map[string]http.HandlerFunc{"GET /api/Books": booksRoute})

	app.login()

	rr := app.do(http.MethodGet, "/books?sort=bogus", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Dune") || !strings.Contains(body, "/books/7/edit") {
		t.Fatalf("expected book row with editor controls, got %s", body)
	}
	if !app.api.called("GET /api/Books?sort=title_asc") {
		t.Fatalf("expected invalid sort to fall back to title_asc, calls %v", app.api.snapshot())
	}
	if got := app.api.lastAuth(); got != "Bearer "+token {
		t.Fatalf("expected bearer token on API call, got %q", got)
	}

	rr = app.do(http.MethodPost, "/logout", url.Values{})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected logout redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = app.do(http.MethodGet, "/books", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect after logout, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestLoginFailureShowsAPIMessage(t *testing.T) {
	app := newTestApp(t, editorToken(t), nil)

	rr := app.do(http.MethodPost, "/login", url.Values{"username": {" ana "}, "password": {"nope"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Invalid username or password.") {
		t.Fatalf("expected API message, got %s", body)
	}
	if !strings.Contains(body, `value="ana"`) {
		t.Fatalf("expected trimmed username to be kept, got %s", body)
	}
}

func TestLoginPageNoTokenMessage(t *testing.T) {
	app := newTestApp(t, "", nil)

	rr := app.do(http.MethodGet, "/login?err=no_token", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Google sign-in did not return a token.") {
		t.Fatalf("expected no-token message, got %s", rr.Body.String())
	}
}

func TestEditorRouteForbiddenForReader(t *testing.T) {
	app := newTestApp(t, readerToken(t), map[string]http.HandlerFunc{"GET /api/Books": booksRoute})
	app.login()

	rr := app.do(http.MethodGet, "/books/create", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/forbidden" {
		t.Fatalf("expected redirect to /forbidden, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = app.do(http.MethodGet, "/books", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "/books/7/edit") {
		t.Fatal("reader must not see editor controls")
	}
}

func TestCreateBookValidation(t *testing.T) {
	app := newTestApp(t, editorToken(t), nil)
	app.login()

	rr := app.do(http.MethodPost, "/books/create", url.Values{"title": {"Dune"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Please fill all required fields.") {
		t.Fatalf("expected validation message, got %s", body)
	}
	if !strings.Contains(body, "Frank Herbert") || !strings.Contains(body, "Chilton") {
		t.Fatalf("expected form options to be rendered, got %s", body)
	}
	if app.api.called("POST /api/Books") {
		t.Fatal("invalid form must not reach the API")
	}
}

func TestCreateBookPostsNormalizedInput(t *testing.T) {
	posted := make(chan map[string]any, 1)
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"POST /api/Books": func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			posted <- payload
			w.WriteHeader(http.StatusCreated)
		},
	})
	app.login()

	rr := app.do(http.MethodPost, "/books/create", url.Values{
		"title":         {"  Dune "},
		"isbn":          {"978-0-441-01359-3"},
		"pageCount":     {"412"},
		"publishedDate": {"1965-08-01"},
		"authorId":      {"1"},
		"publisherId":   {"2"},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/books" {
		t.Fatalf("expected redirect to /books, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	got := <-posted
	if got["title"] != "Dune" {
		t.Fatalf("expected trimmed title, got %v", got["title"])
	}
	if got["authorId"] != float64(1) || got["publisherId"] != float64(2) {
		t.Fatalf("unexpected ids %v %v", got["authorId"], got["publisherId"])
	}
}

func TestDeleteBookFailureRedirectsWithMessage(t *testing.T) {
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"DELETE /api/Books/{id}": func(w http.ResponseWriter, r *http.Request) {
			apiJSON(w, http.StatusConflict, map[string]string{"detail": "Book has reviews."})
		},
	})
	app.login()

	rr := app.do(http.MethodPost, "/books/5/delete", url.Values{})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/books?error=Book+has+reviews." {
		t.Fatalf("unexpected redirect %q", got)
	}
	if !app.api.called("DELETE /api/Books/5") {
		t.Fatalf("expected delete call, got %v", app.api.snapshot())
	}
}

func TestBooksListEmptyAndFailure(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"GET /api/Books": func(w http.ResponseWriter, r *http.Request) {
			if failing.Load() {
				apiJSON(w, http.StatusInternalServerError, map[string]string{"title": "Database offline"})
				return
			}
			apiJSON(w, http.StatusOK, []any{})
		},
	})
	app.login()

	rr := app.do(http.MethodGet, "/books", nil)
	if !strings.Contains(rr.Body.String(), "Error: Database offline") {
		t.Fatalf("expected load error, got %s", rr.Body.String())
	}

	failing.Store(false)
	rr = app.do(http.MethodGet, "/books", nil)
	if !strings.Contains(rr.Body.String(), "No data.") {
		t.Fatalf("expected empty marker, got %s", rr.Body.String())
	}
}

func TestBooksListShowsStatusWithoutBody(t *testing.T) {
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"GET /api/Books": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})
	app.login()

	rr := app.do(http.MethodGet, "/books", nil)
	if !strings.Contains(rr.Body.String(), "Error: GET /api/Books: status 502") {
		t.Fatalf("expected transport error text, got %s", rr.Body.String())
	}
}

func TestAuthorsPagination(t *testing.T) {
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"GET /api/Authors/page": func(w http.ResponseWriter, r *http.Request) {
			apiJSON(w, http.StatusOK, map[string]any{
				"items":      []map[string]any{{"id": 1, "fullName": "Frank Herbert", "dateOfBirth": "1920-10-08T00:00:00"}},
				"pageNumber": 2,
				"pageSize":   5,
				"totalPages": 3,
				"totalCount": 11,
			})
		},
	})
	app.login()

	rr := app.do(http.MethodGet, "/authors?page=2&size=0", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !app.api.called("GET /api/Authors/page?pageNumber=2&pageSize=5") {
		t.Fatalf("expected clamped page size, got %v", app.api.snapshot())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "1920-10-08") || strings.Contains(body, "1920-10-08T") {
		t.Fatalf("expected date-only birthday, got %s", body)
	}
	if !strings.Contains(body, "page=1&size=5") || !strings.Contains(body, "page=3&size=5") {
		t.Fatalf("expected prev and next links, got %s", body)
	}
}

func TestPublishersSortFallsBack(t *testing.T) {
	app := newTestApp(t, editorToken(t), nil)
	app.login()

	rr := app.do(http.MethodGet, "/publishers?sort=Random", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !app.api.called("GET /api/Publishers?sort=NameAsc") {
		t.Fatalf("expected default sort, got %v", app.api.snapshot())
	}
	if !strings.Contains(rr.Body.String(), "Chilton") {
		t.Fatalf("expected publisher row, got %s", rr.Body.String())
	}
}

func TestOAuthCompleteSignsIn(t *testing.T) {
	token := editorToken(t)
	app := newTestApp(t, "", map[string]http.HandlerFunc{"GET /api/Books": booksRoute})

	rr := app.do(http.MethodGet, "/oauth/complete?fragment="+url.QueryEscape("#token="+token), nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/books" {
		t.Fatalf("expected redirect to landing page, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = app.do(http.MethodGet, "/books", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected signed-in session, got %d", rr.Code)
	}
}

func TestOAuthCompleteWithoutToken(t *testing.T) {
	app := newTestApp(t, "", nil)

	rr := app.do(http.MethodGet, "/oauth/complete?fragment="+url.QueryEscape("#error=denied"), nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login?err=no_token" {
		t.Fatalf("expected no-token redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestGoogleLoginRedirectsToAPI(t *testing.T) {
	app := newTestApp(t, "", nil)

	rr := app.do(http.MethodGet, "/login/google", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rr.Code)
	}
	if !strings.HasSuffix(rr.Header().Get("Location"), "/api/ExternalAuth/google") {
		t.Fatalf("unexpected location %q", rr.Header().Get("Location"))
	}
}

func TestSessionStatusJSON(t *testing.T) {
	app := newTestApp(t, editorToken(t), nil)

	rr := app.do(http.MethodGet, "/api/session", nil)
	var anonymous sessionStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &anonymous); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if anonymous.Authenticated || anonymous.Roles == nil {
		t.Fatalf("expected anonymous status with empty roles, got %+v", anonymous)
	}

	app.login()
	rr = app.do(http.MethodGet, "/api/session", nil)
	var signedIn sessionStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &signedIn); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !signedIn.Authenticated || len(signedIn.Roles) != 1 || signedIn.Roles[0] != "Urednik" {
		t.Fatalf("unexpected status %+v", signedIn)
	}
	if signedIn.ExpiresAt == nil {
		t.Fatal("expected expiry to be reported")
	}
}

func TestSaveComicIssue(t *testing.T) {
	posted := make(chan map[string]any, 1)
	app := newTestApp(t, editorToken(t), map[string]http.HandlerFunc{
		"GET /api/comics/volumes/{id}/issues": func(w http.ResponseWriter, r *http.Request) {
			apiJSON(w, http.StatusOK, []map[string]any{{
				"externalId": 42, "name": "Amazing", "issueNumber": "1", "coverDate": "1963-03-01T00:00:00",
			}})
		},
		"POST /api/comic-issues": func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			posted <- payload
			w.WriteHeader(http.StatusCreated)
		},
	})
	app.login()

	rr := app.do(http.MethodGet, "/comics/issues/create?volume=9&issue=42", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="1963-03-01"`) {
		t.Fatalf("expected prefilled release date, got %s", rr.Body.String())
	}

	rr = app.do(http.MethodPost, "/comics/issues/create", url.Values{
		"volume": {"9"}, "externalIssueId": {"42"}, "title": {"Amazing"}, "price": {"abc"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for bad price, got %d", rr.Code)
	}

	rr = app.do(http.MethodPost, "/comics/issues/create", url.Values{
		"volume": {"9"}, "externalIssueId": {"42"}, "title": {"Amazing"}, "price": {"3.99"}, "stock": {""},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rr.Code)
	}
	saved := <-posted
	if saved["externalIssueId"] != float64(42) || saved["price"] != 3.99 || saved["pageCount"] != nil || saved["stock"] != float64(0) {
		t.Fatalf("unexpected saved payload %v", saved)
	}
}

func TestVolumesBlankQuerySkipsAPI(t *testing.T) {
	app := newTestApp(t, editorToken(t), nil)
	app.login()

	rr := app.do(http.MethodGet, "/comics/volumes?q=+", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	for _, call := range app.api.snapshot() {
		if strings.HasPrefix(call, "GET /api/comics/volumes") {
			t.Fatalf("blank query must not call the API, got %v", app.api.snapshot())
		}
	}
}
