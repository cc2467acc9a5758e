package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/modcat/modcat/internal/shared"
)

const maxPageSize = 100

// Service coordinates catalog use cases.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a catalog service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: v, logger: logger}
}

// ListProjects returns a page of projects and the total count.
func (s *Service) ListProjects(ctx context.Context, filters ListFilters) ([]Project, int, error) {
	if filters.Limit <= 0 || filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	filters.Search = strings.TrimSpace(filters.Search)
	return s.repo.ListProjects(ctx, filters)
}

// GetProject returns a single project.
func (s *Service) GetProject(ctx context.Context, id int64) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// CreateProject stores a project owned by the acting identity.
func (s *Service) CreateProject(ctx context.Context, actorID int64, p Project) (Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := s.check(p); err != nil {
		return Project{}, err
	}
	p.CreatedBy = actorID
	created, err := s.repo.CreateProject(ctx, p)
	if err != nil {
		return Project{}, err
	}
	s.logger.Info("project created", slog.Int64("project_id", created.ID), slog.Int64("actor_id", actorID))
	return created, nil
}

// UpdateProject replaces the editable fields of a project.
func (s *Service) UpdateProject(ctx context.Context, id int64, p Project) (Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := s.check(p); err != nil {
		return Project{}, err
	}
	return s.repo.UpdateProject(ctx, id, p)
}

// DeleteProject removes a project and everything beneath it.
func (s *Service) DeleteProject(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.Int64("project_id", id), slog.Int64("actor_id", actorID))
	return nil
}

// ListUnits returns the units of a project.
func (s *Service) ListUnits(ctx context.Context, projectID int64) ([]Unit, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListUnits(ctx, projectID)
}

// CreateUnit adds a unit to a project.
func (s *Service) CreateUnit(ctx context.Context, projectID int64, u Unit) (Unit, error) {
	u.Name = strings.TrimSpace(u.Name)
	if err := s.check(u); err != nil {
		return Unit{}, err
	}
	u.ProjectID = projectID
	return s.repo.CreateUnit(ctx, u)
}

// DeleteUnit removes a unit and its modules.
func (s *Service) DeleteUnit(ctx context.Context, id int64) error {
	return s.repo.DeleteUnit(ctx, id)
}

// ListModules returns the modules of a unit.
func (s *Service) ListModules(ctx context.Context, unitID int64) ([]Module, error) {
	return s.repo.ListModules(ctx, unitID)
}

// CreateModule adds a module to a unit. Attributes must be a JSON object.
func (s *Service) CreateModule(ctx context.Context, unitID int64, m Module) (Module, error) {
	m.Name = strings.TrimSpace(m.Name)
	if err := s.check(m); err != nil {
		return Module{}, err
	}
	if len(m.Attributes) > 0 {
		var attrs map[string]any
		if err := json.Unmarshal(m.Attributes, &attrs); err != nil {
			return Module{}, fmt.Errorf("%w: attributes must be an object", shared.ErrValidation)
		}
	}
	m.UnitID = unitID
	return s.repo.CreateModule(ctx, m)
}

// DeleteModule removes a module.
func (s *Service) DeleteModule(ctx context.Context, id int64) error {
	return s.repo.DeleteModule(ctx, id)
}

// Summary returns aggregate counts for a project.
func (s *Service) Summary(ctx context.Context, projectID int64) (Summary, error) {
	return s.repo.Summary(ctx, projectID)
}

// ListComments returns the comments on a project, oldest first.
func (s *Service) ListComments(ctx context.Context, projectID int64) ([]Comment, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, projectID)
}

// AddComment records a comment authored by the acting identity.
func (s *Service) AddComment(ctx context.Context, actorID, projectID int64, body string) (Comment, error) {
	c := Comment{ProjectID: projectID, AuthorID: actorID, Body: strings.TrimSpace(body)}
	if err := s.check(c); err != nil {
		return Comment{}, err
	}
	return s.repo.AddComment(ctx, c)
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return fmt.Errorf("%w: invalid %s", shared.ErrValidation, strings.Join(fields, ", "))
	}
	return nil
}
