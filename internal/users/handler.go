package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/platform/httpx"
	"github.com/modcat/modcat/internal/shared"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guards  access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guards access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guards: guards}
}

// MountRoutes registers user routes. Callers must authenticate first.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireRole(access.RoleAdmin))
		r.Get("/", h.listUsers)
		r.Post("/{id}/deactivate", h.deactivate)
		r.Post("/{id}/activate", h.activate)
		r.Post("/{id}/revoke-tokens", h.revokeTokens)
	})
}

type usersBody struct {
	Users []User `json:"users"`
}

type revokedBody struct {
	ID            int64 `json:"id"`
	TokensRevoked int   `json:"tokensRevoked"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, usersBody{Users: users})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.fail(w, "deactivate user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revokedBody{ID: id, TokensRevoked: n})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Activate(r.Context(), id); err != nil {
		h.fail(w, "activate user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revokedBody{ID: id})
}

func (h *Handler) revokeTokens(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	n, err := h.service.RevokeTokens(r.Context(), id)
	if err != nil {
		h.fail(w, "revoke tokens failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revokedBody{ID: id, TokensRevoked: n})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSON(w, http.StatusBadRequest, httpx.Message{Message: "invalid user id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if h.logger != nil && httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.JSON(w, httpx.StatusFor(err), httpx.Message{Message: shared.UserSafeMessage(err)})
}
