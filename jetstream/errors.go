package jetstream

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrArgumentNil matches every *ArgumentError via errors.Is.
var ErrArgumentNil = errors.New("jetstream: required argument missing")

// ArgumentError reports a required request field that was left empty.
type ArgumentError struct {
	Field string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("jetstream: %s is required", e.Field)
}

// Is makes errors.Is(err, ErrArgumentNil) true.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgumentNil
}

// Require returns an *ArgumentError for the first empty value. Pairs are
// (field name, value).
func Require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &ArgumentError{Field: pairs[i]}
		}
	}
	return nil
}

// Error is returned when Jetstream answers with a non-success status code.
// URL has the access key removed.
type Error struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Body       []byte
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if msg == "" {
		return fmt.Sprintf("jetstream: %s %s returned %s", e.Method, e.URL, status)
	}
	return fmt.Sprintf("jetstream: %s %s returned %s: %s", e.Method, e.URL, status, msg)
}

// IsNotFound reports whether err is a Jetstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var jerr *Error
	if errors.As(err, &jerr) {
		return jerr.StatusCode
	}
	return 0
}

// RedactURL drops credentials from a request URL so it can be logged: the
// accesskey query parameter (any case) and userinfo.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.User = nil
	q := u.Query()
	changed := false
	for k := range q {
		if strings.EqualFold(k, "accesskey") {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
