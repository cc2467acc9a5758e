package access

import (
	"log/slog"
	"net/http"

	"github.com/modcat/modcat/internal/platform/httpx"
)

// DecisionRecorder receives guard outcomes for metrics.
type DecisionRecorder interface {
	RecordGuardDecision(kind, decision string)
}

// Middleware wires authorization guards for HTTP handlers. Guards expect the
// authentication middleware to have placed a Principal in the request context.
type Middleware struct {
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Denial is the body returned with 403 responses.
type Denial struct {
	Message             string   `json:"message"`
	RequiredPermission  string   `json:"requiredPermission,omitempty"`
	RequiredPermissions []string `json:"requiredPermissions,omitempty"`
	RequiredRole        any      `json:"requiredRole,omitempty"`
	UserRole            string   `json:"userRole"`
	UserPermissions     []string `json:"userPermissions"`
}

type unauthenticatedBody struct {
	Message string `json:"message"`
}

// RequirePermission passes when the caller holds p.
func (m Middleware) RequirePermission(p Permission) func(http.Handler) http.Handler {
	return m.Require(NeedPermission(p))
}

// RequireAnyPermission passes when the caller holds at least one of perms.
func (m Middleware) RequireAnyPermission(perms ...Permission) func(http.Handler) http.Handler {
	return m.Require(NeedAny(perms...))
}

// RequireAllPermissions passes when the caller holds every one of perms.
func (m Middleware) RequireAllPermissions(perms ...Permission) func(http.Handler) http.Handler {
	return m.Require(NeedAll(perms...))
}

// RequireRole passes when the caller's role is one of roles. Admin is not
// implied and must be listed explicitly.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return m.Require(NeedRole(roles...))
}

// Require builds a guard for an arbitrary requirement.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				m.record(req.Kind, "unauthenticated")
				httpx.JSON(w, http.StatusUnauthorized, unauthenticatedBody{Message: "authentication required"})
				return
			}
			if Satisfies(principal, req) {
				m.record(req.Kind, "allow")
				next.ServeHTTP(w, r)
				return
			}
			m.record(req.Kind, "deny")
			if m.Logger != nil {
				m.Logger.Warn("access denied",
					slog.Int64("identity_id", principal.ID),
					slog.String("role", string(principal.Role)),
					slog.String("kind", string(req.Kind)),
					slog.String("path", r.URL.Path),
				)
			}
			httpx.JSON(w, http.StatusForbidden, denialFor(principal, req))
		})
	}
}

func (m Middleware) record(kind RequirementKind, decision string) {
	if m.Recorder != nil {
		m.Recorder.RecordGuardDecision(string(kind), decision)
	}
}

func denialFor(p Principal, req Requirement) Denial {
	d := Denial{
		UserRole:        string(p.Role),
		UserPermissions: p.Permissions.Strings(),
	}
	switch req.Kind {
	case KindPermission:
		d.Message = "insufficient permissions"
		if len(req.Permissions) == 1 {
			d.RequiredPermission = string(req.Permissions[0])
		}
	case KindAny:
		d.Message = "requires at least one of the listed permissions"
		d.RequiredPermissions = permissionStrings(req.Permissions)
	case KindAll:
		d.Message = "requires all of the listed permissions"
		d.RequiredPermissions = permissionStrings(req.Permissions)
	case KindRole:
		d.Message = "insufficient role"
		if len(req.Roles) == 1 {
			d.RequiredRole = string(req.Roles[0])
		} else {
			roles := make([]string, len(req.Roles))
			for i, r := range req.Roles {
				roles[i] = string(r)
			}
			d.RequiredRole = roles
		}
	}
	return d
}

func permissionStrings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
