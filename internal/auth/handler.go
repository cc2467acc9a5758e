package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/platform/httpx"
	"github.com/modcat/modcat/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	authenticator Authenticator
	loginLimit    int
}

// NewHandler constructs a Handler instance. loginLimit caps login and
// registration attempts per IP per minute; zero disables the cap.
func NewHandler(logger *slog.Logger, service *Service, authenticator Authenticator, loginLimit int) *Handler {
	return &Handler{logger: logger, service: service, authenticator: authenticator, loginLimit: loginLimit}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.Limit(h.loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authenticator.Required)
		r.Get("/me", h.handleMe)
	})
}

type validationBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type rolesBody struct {
	Roles []access.RoleGrant `json:"roles"`
}

type meBody struct {
	User UserView `json:"user"`
}

type logoutBody struct {
	Success bool `json:"success"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}
	sess, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}
	sess, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := ExtractBearer(r.Header.Get("Authorization"))
	if err == nil {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.respondErr(w, r, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, logoutBody{Success: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := access.PrincipalFromContext(r.Context())
	if !ok {
		h.respondErr(w, r, ErrMissingCredential)
		return
	}
	user, err := h.service.Me(r.Context(), principal)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meBody{User: user})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, rolesBody{Roles: h.service.Roles()})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusBadRequest, validationBody{Message: verr.Error(), Code: verr.Code(), Errors: verr.Fields})
	case errors.Is(err, shared.ErrValidation):
		httpx.JSON(w, http.StatusBadRequest, validationBody{Message: err.Error(), Code: CodeValidation})
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.JSON(w, http.StatusUnauthorized, httpx.Message{Message: "invalid credentials"})
	case errors.Is(err, shared.ErrUnauthenticated):
		httpx.JSON(w, http.StatusUnauthorized, httpx.Message{Message: "authentication required"})
	default:
		if h.logger != nil {
			h.logger.Error("auth request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
