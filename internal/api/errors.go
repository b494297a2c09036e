package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error describes a failed API call. Either StatusCode is set (the server
// answered with a non-2xx status) or Err holds the network failure.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Title      string
	ErrorText  string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if text := e.message(); text != "" {
		msg += ": " + text
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) message() string {
	for _, candidate := range []string{e.Detail, e.Title, e.ErrorText} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Message picks the text to show for a failed call: the problem detail, then
// its title, then an {error} body, then the raw transport error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if text := apiErr.message(); text != "" {
			return text
		}
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
	}
	return err.Error()
}

// UserMessage is Message with a fixed fallback in place of the raw error
// text for API failures that carry no body. Only the login form uses it.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if text := apiErr.message(); text != "" {
			return text
		}
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}

type problemBody struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
	Error  string `json:"error"`
}

func parseError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body problemBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}
	apiErr.Detail = strings.TrimSpace(body.Detail)
	apiErr.Title = strings.TrimSpace(body.Title)
	apiErr.ErrorText = strings.TrimSpace(body.Error)
	return apiErr
}
