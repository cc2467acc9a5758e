package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/modcat/modcat/internal/shared"
)

// ErrNotFound indicates the catalog record does not exist.
var ErrNotFound = fmt.Errorf("catalog: %w", shared.ErrNotFound)

// Project groups units of a modular-construction scheme.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	Location    string    `json:"location" validate:"max=200"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Unit is a buildable unit within a project.
type Unit struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Module is a prefabricated component of a unit. Attributes hold free-form
// key/value data.
type Module struct {
	ID         int64           `json:"id"`
	UnitID     int64           `json:"unitId"`
	Name       string          `json:"name" validate:"required,max=200"`
	ModuleType string          `json:"moduleType" validate:"max=100"`
	ModelURL   string          `json:"modelUrl" validate:"omitempty,url"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Comment is a remark left on a project.
type Comment struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"projectId"`
	AuthorID  int64     `json:"authorId"`
	Body      string    `json:"body" validate:"required,max=4000"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary aggregates counts for a project.
type Summary struct {
	ProjectID     int64          `json:"projectId"`
	Units         int            `json:"units"`
	Modules       int            `json:"modules"`
	ModulesByType map[string]int `json:"modulesByType"`
	Comments      int            `json:"comments"`
}

// ListFilters narrows project listings.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
