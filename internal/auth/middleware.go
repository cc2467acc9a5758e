package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/platform/httpx"
	"github.com/modcat/modcat/internal/shared"
)

// Authenticator resolves the bearer token on each request and places the
// resulting Principal in the request context.
type Authenticator struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Required rejects requests that do not resolve to a live identity.
func (a Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := a.authenticate(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(access.ContextWithPrincipal(r.Context(), principal)))
	})
}

func (a Authenticator) authenticate(r *http.Request) (access.Principal, error) {
	token, err := ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		return access.Principal{}, err
	}
	return a.Resolver.Resolve(r.Context(), token)
}

func (a Authenticator) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrUnauthenticated) {
		httpx.JSON(w, http.StatusUnauthorized, httpx.Message{Message: "authentication required"})
		return
	}
	if a.Logger != nil {
		a.Logger.Error("authentication failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
