package identity

import (
	"fmt"
	"time"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/shared"
)

// ErrNotFound indicates that no identity matched the lookup.
var ErrNotFound = fmt.Errorf("identity: %w", shared.ErrNotFound)

// Identity is a registered actor.
type Identity struct {
	ID           int64
	Username     string
	Email        string
	DisplayName  string
	Organization string
	Role         access.Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewIdentity carries the fields required to create an identity.
type NewIdentity struct {
	Username     string
	Email        string
	DisplayName  string
	Organization string
	Role         access.Role
	PasswordHash string
}
