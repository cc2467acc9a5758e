package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modcat/modcat/internal/platform/db"
)

// Repository defines catalog persistence.
type Repository interface {
	ListProjects(ctx context.Context, filters ListFilters) ([]Project, int, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	CreateProject(ctx context.Context, p Project) (Project, error)
	UpdateProject(ctx context.Context, id int64, p Project) (Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ListUnits(ctx context.Context, projectID int64) ([]Unit, error)
	CreateUnit(ctx context.Context, u Unit) (Unit, error)
	DeleteUnit(ctx context.Context, id int64) error
	ListModules(ctx context.Context, unitID int64) ([]Module, error)
	CreateModule(ctx context.Context, m Module) (Module, error)
	DeleteModule(ctx context.Context, id int64) error
	ListComments(ctx context.Context, projectID int64) ([]Comment, error)
	AddComment(ctx context.Context, c Comment) (Comment, error)
	Summary(ctx context.Context, projectID int64) (Summary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListProjects(ctx context.Context, filters ListFilters) ([]Project, int, error) {
	where := ``
	args := []any{}
	if filters.Search != "" {
		where = ` WHERE name ILIKE $1 OR location ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, description, location, created_by, created_at, updated_at FROM projects` + where + ` ORDER BY id`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Location, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

func (r *repository) GetProject(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, location, created_by, created_at, updated_at FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Location, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

func (r *repository) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO projects (name, description, location, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Location, p.CreatedBy).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) UpdateProject(ctx context.Context, id int64, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `UPDATE projects SET name = $2, description = $3, location = $4, updated_at = NOW()
WHERE id = $1 RETURNING id, created_by, created_at, updated_at`,
		id, p.Name, p.Description, p.Location).Scan(&p.ID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, notFound(err)
}

// DeleteProject removes the project together with its units, modules and
// comments in one transaction.
func (r *repository) DeleteProject(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM modules WHERE unit_id IN (SELECT id FROM units WHERE project_id = $1)`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM units WHERE project_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM project_comments WHERE project_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteUnit removes the unit and its modules.
func (r *repository) DeleteUnit(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM modules WHERE unit_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM units WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) ListUnits(ctx context.Context, projectID int64) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, name, description, created_at FROM units WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Unit, error) {
		var u Unit
		err := row.Scan(&u.ID, &u.ProjectID, &u.Name, &u.Description, &u.CreatedAt)
		return u, err
	})
}

func (r *repository) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO units (project_id, name, description, created_at)
SELECT id, $2, $3, NOW() FROM projects WHERE id = $1 RETURNING id, created_at`,
		u.ProjectID, u.Name, u.Description).Scan(&u.ID, &u.CreatedAt)
	return u, notFound(err)
}

func (r *repository) ListModules(ctx context.Context, unitID int64) ([]Module, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, unit_id, name, module_type, model_url, attributes, created_at FROM modules WHERE unit_id = $1 ORDER BY id`, unitID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Module, error) {
		var m Module
		err := row.Scan(&m.ID, &m.UnitID, &m.Name, &m.ModuleType, &m.ModelURL, &m.Attributes, &m.CreatedAt)
		return m, err
	})
}

func (r *repository) CreateModule(ctx context.Context, m Module) (Module, error) {
	attrs := m.Attributes
	if len(attrs) == 0 {
		attrs = []byte(`{}`)
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO modules (unit_id, name, module_type, model_url, attributes, created_at)
SELECT id, $2, $3, $4, $5, NOW() FROM units WHERE id = $1 RETURNING id, created_at`,
		m.UnitID, m.Name, m.ModuleType, m.ModelURL, attrs).Scan(&m.ID, &m.CreatedAt)
	m.Attributes = attrs
	return m, notFound(err)
}

func (r *repository) DeleteModule(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM modules WHERE id = $1`, id)
}

func (r *repository) ListComments(ctx context.Context, projectID int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, project_id, author_id, body, created_at FROM project_comments WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Comment, error) {
		var c Comment
		err := row.Scan(&c.ID, &c.ProjectID, &c.AuthorID, &c.Body, &c.CreatedAt)
		return c, err
	})
}

func (r *repository) AddComment(ctx context.Context, c Comment) (Comment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO project_comments (project_id, author_id, body, created_at)
SELECT id, $2, $3, NOW() FROM projects WHERE id = $1 RETURNING id, created_at`,
		c.ProjectID, c.AuthorID, c.Body).Scan(&c.ID, &c.CreatedAt)
	return c, notFound(err)
}

func (r *repository) Summary(ctx context.Context, projectID int64) (Summary, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return Summary{}, err
	}
	s := Summary{ProjectID: projectID, ModulesByType: map[string]int{}}
	err := r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM units WHERE project_id = $1),
  (SELECT COUNT(*) FROM project_comments WHERE project_id = $1)`, projectID).Scan(&s.Units, &s.Comments)
	if err != nil {
		return Summary{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT m.module_type, COUNT(*) FROM modules m
JOIN units u ON u.id = m.unit_id WHERE u.project_id = $1 GROUP BY m.module_type`, projectID)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return Summary{}, err
		}
		s.ModulesByType[kind] = count
		s.Modules += count
	}
	return s, rows.Err()
}

func (r *repository) deleteByID(ctx context.Context, query string, id int64) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
