package auth

import (
	"time"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/identity"
)

// Token is an issued bearer credential. Value is only ever returned to the
// caller at issuance; stores keep its hash.
type Token struct {
	Value      string
	Handle     string
	IdentityID int64
	IssuedAt   time.Time
}

// UserView is the public representation of an identity with its permissions.
type UserView struct {
	ID           int64                `json:"id"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	DisplayName  string               `json:"displayName"`
	Organization string               `json:"organization"`
	Role         access.Role          `json:"role"`
	Permissions  access.PermissionSet `json:"permissions"`
	IsActive     bool                 `json:"isActive"`
}

// Session is returned by login and registration.
type Session struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,min=8,max=72,bcrypt_len"`
	DisplayName  string `json:"displayName" validate:"max=128"`
	Organization string `json:"organization" validate:"max=128"`
	Role         string `json:"role" validate:"required,modcat_role"`
}

// LoginInput carries the login payload. Identifier matches username or email.
type LoginInput struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func viewOf(ident identity.Identity, perms access.PermissionSet) UserView {
	return UserView{
		ID:           ident.ID,
		Username:     ident.Username,
		Email:        ident.Email,
		DisplayName:  ident.DisplayName,
		Organization: ident.Organization,
		Role:         ident.Role,
		Permissions:  perms,
		IsActive:     ident.IsActive,
	}
}
