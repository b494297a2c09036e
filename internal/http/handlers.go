package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookstore/internal/api"
)

const maxFormBodyBytes int64 = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseForm reads a size-limited urlencoded body. It writes the failure
// response itself and reports whether the handler should continue.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodyBytes)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return false
	}
	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || id <= 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// formInt reads an optional integer form field, treating blank or garbage
// as zero. Validation reports the missing value.
func formInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.PostFormValue(key))
	if err != nil {
		return 0
	}
	return value
}

// clientFor binds the API client to the token store of the request session.
func clientFor(r *http.Request, client *api.Client) *api.Client {
	if m := SessionFromContext(r.Context()); m != nil {
		return client.WithTokens(m.Store())
	}
	return client
}

// redirectWithError sends the browser to target with a flash message.
func redirectWithError(w http.ResponseWriter, r *http.Request, target, message string) {
	http.Redirect(w, r, target+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}
