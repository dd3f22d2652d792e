package telegram

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBadResponse means the reply was not a Bot API JSON envelope
	// (for example an HTML error page from a proxy).
	ErrBadResponse = errors.New("telegram: malformed response")

	ErrEmptyToken = errors.New("telegram: bot token is empty")
)

// APIError is a structured failure returned by the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %s (code=%d)", e.Method, e.Description, e.Code)
}

// Temporary reports whether the API refused because of load rather than
// content: flood control (429) and server-side failures (5xx).
func (e *APIError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// IsRejection reports whether err is a definitive content rejection.
// Retrying a rejection cannot succeed.
func IsRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return !apiErr.Temporary()
}
