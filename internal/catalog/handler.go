package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/platform/httpx"
	"github.com/modcat/modcat/internal/shared"
)

// Handler exposes catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guards  access.Middleware
}

// NewHandler constructs a catalog handler.
func NewHandler(logger *slog.Logger, service *Service, guards access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guards: guards}
}

// MountRoutes registers catalog routes under /api. An authenticator must run
// before these routes.
func (h *Handler) MountRoutes(r chi.Router) {
	read := h.guards.RequirePermission(access.PermRead)
	write := h.guards.RequireAnyPermission(access.PermModify, access.PermDataInput)
	remove := h.guards.RequireAllPermissions(access.PermModify, access.PermDataInput)

	r.With(read).Get("/projects", h.listProjects)
	r.With(h.guards.RequirePermission(access.PermSearch)).Get("/projects/search", h.searchProjects)
	r.With(write).Post("/projects", h.createProject)
	r.With(read).Get("/projects/{id}", h.getProject)
	r.With(write).Put("/projects/{id}", h.updateProject)
	r.With(remove).Delete("/projects/{id}", h.deleteProject)
	r.With(h.guards.RequirePermission(access.PermAnalyze)).Get("/projects/{id}/summary", h.summary)
	r.With(read).Get("/projects/{id}/comments", h.listComments)
	r.With(h.guards.RequirePermission(access.PermComment)).Post("/projects/{id}/comments", h.addComment)

	r.With(read).Get("/projects/{id}/units", h.listUnits)
	r.With(write).Post("/projects/{id}/units", h.createUnit)
	r.With(remove).Delete("/units/{id}", h.deleteUnit)

	r.With(read).Get("/units/{id}/modules", h.listModules)
	r.With(write).Post("/units/{id}/modules", h.createModule)
	r.With(remove).Delete("/modules/{id}", h.deleteModule)
}

type projectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

type unitInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type moduleInput struct {
	Name       string          `json:"name"`
	ModuleType string          `json:"moduleType"`
	ModelURL   string          `json:"modelUrl"`
	Attributes json.RawMessage `json:"attributes"`
}

type commentInput struct {
	Body string `json:"body"`
}

type projectPage struct {
	Projects   []Project         `json:"projects"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	h.pageProjects(w, r, "")
}

func (h *Handler) searchProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		httpx.JSON(w, http.StatusBadRequest, httpx.Message{Message: "query parameter q is required"})
		return
	}
	h.pageProjects(w, r, q)
}

func (h *Handler) pageProjects(w http.ResponseWriter, r *http.Request, search string) {
	filters := ListFilters{Search: search}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	projects, total, err := h.service.ListProjects(r.Context(), filters)
	if err != nil {
		h.fail(w, "list projects failed", err)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	httpx.JSON(w, http.StatusOK, projectPage{
		Projects:   projects,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total, maxPageSize),
	})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		h.fail(w, "get project failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var in projectInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.fail(w, "decode project", err)
		return
	}
	project, err := h.service.CreateProject(r.Context(), actorID(r), Project{Name: in.Name, Description: in.Description, Location: in.Location})
	if err != nil {
		h.fail(w, "create project failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in projectInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.fail(w, "decode project", err)
		return
	}
	project, err := h.service.UpdateProject(r.Context(), id, Project{Name: in.Name, Description: in.Description, Location: in.Location})
	if err != nil {
		h.fail(w, "update project failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), actorID(r), id); err != nil {
		h.fail(w, "delete project failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, "project summary failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comments, err := h.service.ListComments(r.Context(), id)
	if err != nil {
		h.fail(w, "list comments failed", err)
		return
	}
	if comments == nil {
		comments = []Comment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in commentInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.fail(w, "decode comment", err)
		return
	}
	comment, err := h.service.AddComment(r.Context(), actorID(r), id, in.Body)
	if err != nil {
		h.fail(w, "add comment failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	units, err := h.service.ListUnits(r.Context(), id)
	if err != nil {
		h.fail(w, "list units failed", err)
		return
	}
	if units == nil {
		units = []Unit{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": units})
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in unitInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.fail(w, "decode unit", err)
		return
	}
	unit, err := h.service.CreateUnit(r.Context(), id, Unit{Name: in.Name, Description: in.Description})
	if err != nil {
		h.fail(w, "create unit failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUnit(r.Context(), id); err != nil {
		h.fail(w, "delete unit failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	modules, err := h.service.ListModules(r.Context(), id)
	if err != nil {
		h.fail(w, "list modules failed", err)
		return
	}
	if modules == nil {
		modules = []Module{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (h *Handler) createModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in moduleInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.fail(w, "decode module", err)
		return
	}
	module, err := h.service.CreateModule(r.Context(), id, Module{
		Name:       in.Name,
		ModuleType: in.ModuleType,
		ModelURL:   in.ModelURL,
		Attributes: in.Attributes,
	})
	if err != nil {
		h.fail(w, "create module failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, module)
}

func (h *Handler) deleteModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteModule(r.Context(), id); err != nil {
		h.fail(w, "delete module failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSON(w, http.StatusBadRequest, httpx.Message{Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	p, _ := access.PrincipalFromContext(r.Context())
	return p.ID
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
