package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates the record does not exist on the server.
// A hard error for get/update; the controller coerces it to success for
// delete (racing deleters are tolerated).
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("record %s not found", e.ID)
}

// ErrConflict indicates a duplicate unique field, e.g. an email that
// already belongs to another user. Field names the offending form field so
// the error can be surfaced next to it.
type ErrConflict struct {
	Field   string
	Message string
}

func (e ErrConflict) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("conflict: %s", e.Message)
}

// ErrServer indicates a non-2xx response with a structured error body.
type ErrServer struct {
	Status  int
	Message string
}

func (e ErrServer) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}

// ErrNetwork indicates a transport failure or an unparseable body. It wraps
// the underlying error so callers can still errors.As into url.Error etc.
type ErrNetwork struct {
	Err error
}

func (e ErrNetwork) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e ErrNetwork) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsConflict returns the conflict if err is an ErrConflict.
func IsConflict(err error) (ErrConflict, bool) {
	var c ErrConflict
	ok := errors.As(err, &c)
	return c, ok
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var n ErrNetwork
	return errors.As(err, &n)
}

// conflictField maps a server conflict message to the form field it
// concerns. The original API reports duplicates as plain english
// ("Email already exists"), so the leading word identifies the field.
func conflictField(msg string) string {
	switch {
	case strings.HasPrefix(strings.ToLower(msg), "email"):
		return "email"
	case strings.HasPrefix(strings.ToLower(msg), "phone"):
		return "phone"
	default:
		return ""
	}
}

// isConflictMessage reports whether a 400-level error body describes a
// duplicate unique field rather than a generic validation failure.
func isConflictMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already exists")
}
