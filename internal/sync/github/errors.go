package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for the remote API's failure modes. Callers branch on
// these to produce distinct user-facing messages.
var (
	// ErrUnauthorized means the credential is invalid or expired (401).
	ErrUnauthorized = errors.New("github: invalid or expired token")
	// ErrForbidden means the request was denied: rate limit or missing
	// permissions (403).
	ErrForbidden = errors.New("github: access denied or rate limited")
	// ErrNotFound means the resource does not exist (404). For the snapshot
	// file this is not a failure; a fresh repo has no snapshot yet.
	ErrNotFound = errors.New("github: not found")
	// ErrConflict means the version token was stale: the remote file changed
	// since it was last read (409).
	ErrConflict = errors.New("github: version token conflict")
)

// APIError is any other non-success response, carrying the status code.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error (status %d)", e.Status)
}

// IsTimeout reports whether the error came from a deadline or network
// timeout rather than a remote rejection.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusError maps a non-2xx response status to the error taxonomy.
func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return &APIError{Status: status}
	}
}
