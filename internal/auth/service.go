package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
)

// IdentityStore is the slice of the identity repository the auth service needs.
type IdentityStore interface {
	FindByID(ctx context.Context, id int64) (identity.Identity, error)
	Create(ctx context.Context, in identity.NewIdentity) (identity.Identity, error)
}

// CredentialVerifier checks and derives login secrets.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, secret string) (identity.Identity, error)
	Hash(ctx context.Context, secret string) (string, error)
}

// Service wraps authentication business rules.
type Service struct {
	identities IdentityStore
	verifier   CredentialVerifier
	tokens     TokenStore
	registry   *access.Registry
	resolver   *Resolver
	validate   *validator.Validate
	logger     *slog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Identities IdentityStore
	Verifier   CredentialVerifier
	Tokens     TokenStore
	Registry   *access.Registry
	Resolver   *Resolver
	Logger     *slog.Logger
}

// NewService constructs a new Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		identities: cfg.Identities,
		verifier:   cfg.Verifier,
		tokens:     cfg.Tokens,
		registry:   cfg.Registry,
		resolver:   cfg.Resolver,
		validate:   NewValidator(cfg.Registry),
		logger:     cfg.Logger,
	}
}

// maxSecretBytes is the longest secret bcrypt accepts. It counts bytes, not runes.
const maxSecretBytes = 72

// NewValidator returns a validator that understands the modcat_role and
// bcrypt_len tags.
func NewValidator(registry *access.Registry) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxSecretBytes
	})
	_ = v.RegisterValidation("modcat_role", func(fl validator.FieldLevel) bool {
		role, ok := access.ParseRole(fl.Field().String())
		return ok && registry.IsKnownRole(role)
	})
	return v
}

// Register creates an identity and issues its first token. Input is fully
// validated before anything is persisted.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := s.check(in); err != nil {
		return Session{}, err
	}
	role, _ := access.ParseRole(in.Role)
	perms, err := s.registry.PermissionsFor(role)
	if err != nil {
		return Session{}, &ValidationError{UnknownRole: true, Fields: map[string]string{"role": "unknown role"}}
	}

	hash, err := s.verifier.Hash(ctx, in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("auth: hash secret: %w", err)
	}
	ident, err := s.identities.Create(ctx, identity.NewIdentity{
		Username:     in.Username,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		Organization: in.Organization,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Session{}, &ValidationError{Fields: map[string]string{"identifier": "username or email already registered"}}
		}
		return Session{}, fmt.Errorf("%w: create identity: %v", shared.ErrDependencyUnavailable, err)
	}

	tok, err := s.tokens.Issue(ctx, ident.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", shared.ErrDependencyUnavailable, err)
	}
	s.info("identity registered", ident, tok)
	return Session{Token: tok.Value, User: viewOf(ident, perms)}, nil
}

// Login verifies credentials and issues a new token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := s.check(in); err != nil {
		return Session{}, err
	}
	ident, err := s.verifier.Verify(ctx, in.Identifier, in.Password)
	if err != nil {
		return Session{}, err
	}
	perms, err := s.registry.PermissionsFor(ident.Role)
	if err != nil {
		return Session{}, fmt.Errorf("auth: login identity %d: %w", ident.ID, err)
	}
	tok, err := s.tokens.Issue(ctx, ident.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", shared.ErrDependencyUnavailable, err)
	}
	s.info("login succeeded", ident, tok)
	return Session{Token: tok.Value, User: viewOf(ident, perms)}, nil
}

// Logout revokes token. Unknown or already revoked tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDependencyUnavailable, err)
	}
	return nil
}

// Me returns the identity behind an already resolved principal.
func (s *Service) Me(ctx context.Context, p access.Principal) (UserView, error) {
	ident, err := s.resolver.Identity(ctx, p.ID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return UserView{}, ErrInvalidCredential
		}
		return UserView{}, fmt.Errorf("%w: %v", shared.ErrDependencyUnavailable, err)
	}
	return viewOf(ident, p.Permissions), nil
}

// Roles lists every role with its permission set.
func (s *Service) Roles() []access.RoleGrant {
	return s.registry.Grants()
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "modcat_role":
			verr.UnknownRole = true
			verr.Fields[fe.Field()] = "unknown role"
			continue
		case "bcrypt_len":
			verr.Fields[fe.Field()] = "must be at most 72 bytes"
			continue
		}
		verr.Fields[fe.Field()] = fe.Error()
	}
	return verr
}

func (s *Service) info(msg string, ident identity.Identity, tok Token) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg,
		slog.Int64("identity_id", ident.ID),
		slog.String("role", string(ident.Role)),
		slog.String("token_handle", tok.Handle),
	)
}
