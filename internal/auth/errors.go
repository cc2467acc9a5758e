package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/shared"
)

var (
	// ErrMissingCredential is returned when no bearer token was presented.
	ErrMissingCredential = fmt.Errorf("auth: missing credential: %w", shared.ErrUnauthenticated)
	// ErrInvalidCredential is returned for malformed, unknown or revoked tokens
	// and for tokens bound to missing or inactive identities.
	ErrInvalidCredential = fmt.Errorf("auth: invalid credential: %w", shared.ErrUnauthenticated)
)

// Error codes reported in registration failures.
const (
	CodeValidation  = "ValidationError"
	CodeUnknownRole = "UnknownRole"
)

// ValidationError reports field-level input problems.
type ValidationError struct {
	Fields      map[string]string
	UnknownRole bool
}

func (e *ValidationError) Error() string {
	if e.UnknownRole {
		return "unknown role"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Unwrap exposes both taxonomy sentinels so callers can match either.
func (e *ValidationError) Unwrap() []error {
	if e.UnknownRole {
		return []error{shared.ErrValidation, access.ErrUnknownRole}
	}
	return []error{shared.ErrValidation}
}

// Code returns the machine-readable error code.
func (e *ValidationError) Code() string {
	if e.UnknownRole {
		return CodeUnknownRole
	}
	return CodeValidation
}
