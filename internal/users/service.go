package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]identity.Identity, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// TokenRevoker invalidates every token bound to an identity.
type TokenRevoker interface {
	RevokeAll(ctx context.Context, identityID int64) (int, error)
}

// Service handles administrative identity operations.
type Service struct {
	repo   RepositoryPort
	tokens TokenRevoker
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, tokens TokenRevoker, logger *slog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", shared.ErrDependencyUnavailable, err)
	}
	users := make([]User, len(rows))
	for i, row := range rows {
		users[i] = User{
			ID:           row.ID,
			Username:     row.Username,
			Email:        row.Email,
			DisplayName:  row.DisplayName,
			Organization: row.Organization,
			Role:         row.Role,
			IsActive:     row.IsActive,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		}
	}
	return users, nil
}

// Deactivate marks the identity inactive and revokes its tokens. The
// resolver rejects inactive identities even if revocation fails.
func (s *Service) Deactivate(ctx context.Context, id int64) (int, error) {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return 0, s.wrap("deactivate", err)
	}
	n, err := s.tokens.RevokeAll(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke tokens: %v", shared.ErrDependencyUnavailable, err)
	}
	s.info("identity deactivated", id, n)
	return n, nil
}

// Activate marks the identity active again. Revoked tokens stay revoked.
func (s *Service) Activate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return s.wrap("activate", err)
	}
	s.info("identity activated", id, 0)
	return nil
}

// RevokeTokens invalidates every live token for the identity.
func (s *Service) RevokeTokens(ctx context.Context, id int64) (int, error) {
	n, err := s.tokens.RevokeAll(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke tokens: %v", shared.ErrDependencyUnavailable, err)
	}
	s.info("identity tokens revoked", id, n)
	return n, nil
}

func (s *Service) wrap(op string, err error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrDependencyUnavailable, op, err)
}

func (s *Service) info(msg string, id int64, revoked int) {
	if s.logger != nil {
		s.logger.Info(msg, slog.Int64("identity_id", id), slog.Int("tokens_revoked", revoked))
	}
}
