package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated covers every missing, malformed, unknown or revoked
	// credential as well as credentials bound to inactive identities.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a live identity lacking the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed or conflicting input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a unique identifier is already taken.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrDependencyUnavailable indicates a backing store could not be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// UserSafeMessage maps internal errors to messages that can be shown to callers.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return "authentication required"
	case errors.Is(err, ErrForbidden):
		return "insufficient permissions"
	case errors.Is(err, ErrDependencyUnavailable):
		return "service temporarily unavailable"
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate):
		return err.Error()
	default:
		return "internal error"
	}
}
