package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every pipeline stage. Stages validate inputs and
// ownership before touching any upstream service, so these surface early.
var (
	// ErrNotConfigured means a required credential is absent from the
	// user's settings. Terminal until the user fixes settings.
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalid means a required input is missing or malformed.
	ErrInvalid = errors.New("invalid request")

	// ErrNotFound means a referenced parent entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the entity exists but belongs to another user.
	ErrForbidden = errors.New("forbidden")
)

// UpstreamError carries the status and body of a non-2xx reply from an
// external service. Never retried automatically; callers surface it.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Service, e.Status, e.Body)
}

// NewUpstreamError trims the body to keep error strings loggable.
func NewUpstreamError(service string, status int, body []byte) *UpstreamError {
	const maxBody = 512
	b := string(body)
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &UpstreamError{Service: service, Status: status, Body: b}
}
