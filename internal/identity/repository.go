package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for identities.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Identity, error)
	FindByIdentifier(ctx context.Context, identifier string) (Identity, error)
	Create(ctx context.Context, in NewIdentity) (Identity, error)
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context) ([]Identity, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectColumns = `id, username, email, display_name, organization, role, password_hash, is_active, created_at, updated_at`

// FindByID fetches an identity by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id)
	return scanIdentity(row)
}

// FindByIdentifier fetches an identity whose username or email matches.
func (r *PGRepository) FindByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	key := NormalizeIdentifier(identifier)
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, key)
	return scanIdentity(row)
}

// Create inserts a new identity. Username and email are stored normalised.
func (r *PGRepository) Create(ctx context.Context, in NewIdentity) (Identity, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (username, email, display_name, organization, role, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
RETURNING `+selectColumns,
		NormalizeIdentifier(in.Username),
		NormalizeIdentifier(in.Email),
		strings.TrimSpace(in.DisplayName),
		strings.TrimSpace(in.Organization),
		string(in.Role),
		in.PasswordHash,
	)
	ident, err := scanIdentity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Identity{}, fmt.Errorf("%w: username or email already registered", shared.ErrDuplicate)
		}
		return Identity{}, err
	}
	return ident, nil
}

// SetActive toggles the active flag. Returns ErrNotFound if no row matched.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every identity ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		ident Identity
		role  string
	)
	err := row.Scan(
		&ident.ID,
		&ident.Username,
		&ident.Email,
		&ident.DisplayName,
		&ident.Organization,
		&role,
		&ident.PasswordHash,
		&ident.IsActive,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	ident.Role = access.Role(role)
	return ident, nil
}

var _ Repository = (*PGRepository)(nil)
