package users

import (
	"time"

	"github.com/modcat/modcat/internal/access"
)

// User represents an identity as shown to administrators.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"displayName"`
	Organization string      `json:"organization"`
	Role         access.Role `json:"role"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
