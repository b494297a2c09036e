package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeError describes why a token payload could not be read.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode token: " + e.Stage
	}
	return fmt.Sprintf("decode token: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode returns the claims carried in token's payload segment. It reports
// false for any malformed token and never verifies the signature.
func Decode(token string) (Claims, bool) {
	c, err := Parse(token)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Parse is Decode with the failure reason exposed as a *DecodeError.
func Parse(token string) (Claims, error) {
	segments := strings.Split(strings.TrimSpace(token), ".")
	if len(segments) != 3 {
		return nil, &DecodeError{Stage: "structure", Err: fmt.Errorf("expected 3 segments, got %d", len(segments))}
	}

	// Accept the standard alphabet too; the payload is read the same either way.
	payload := strings.NewReplacer("+", "-", "/", "_").Replace(segments[1])
	raw, err := segmentParser.DecodeSegment(payload)
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}

	if !utf8.Valid(raw) {
		return nil, &DecodeError{Stage: "utf-8", Err: errors.New("payload is not valid UTF-8")}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var c Claims
	if err := decoder.Decode(&c); err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	if c == nil {
		return nil, &DecodeError{Stage: "json", Err: errors.New("payload is not an object")}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Stage: "json", Err: errors.New("trailing data after payload")}
	}
	return c, nil
}
