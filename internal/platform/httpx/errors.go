package httpx

import (
	"errors"
	"net/http"

	"github.com/modcat/modcat/internal/shared"
)

// StatusFor maps the shared error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses. Internal errors never
// leak their message.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	JSON(w, status, Message{Message: shared.UserSafeMessage(err)})
}
