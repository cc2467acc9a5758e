package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/app"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/catalog"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/observability"
	"github.com/modcat/modcat/internal/users"
	_ "github.com/modcat/modcat/testing"
)

type identities map[int64]identity.Identity

func (m identities) FindByID(ctx context.Context, id int64) (identity.Identity, error) {
	ident, ok := m[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, nil
}

func (m identities) List(ctx context.Context) ([]identity.Identity, error) {
	out := make([]identity.Identity, 0, len(m))
	for _, ident := range m {
		out = append(out, ident)
	}
	return out, nil
}

func (m identities) SetActive(ctx context.Context, id int64, active bool) error {
	ident, ok := m[id]
	if !ok {
		return identity.ErrNotFound
	}
	ident.IsActive = active
	m[id] = ident
	return nil
}

type harness struct {
	handler http.Handler
	tokens  *auth.MemoryTokenStore
	metrics *observability.Metrics
}

func newHarness(t *testing.T, checks ...app.ReadinessCheck) *harness {
	t.Helper()
	idents := identities{
		1: {ID: 1, Username: "root", Role: access.RoleAdmin, IsActive: true},
		2: {ID: 2, Username: "sam", Role: access.RoleSupplier, IsActive: true},
	}
	registry := access.DefaultRegistry()
	tokens := auth.NewMemoryTokenStore(0)
	metrics := observability.NewMetrics()
	resolver := auth.NewResolver(auth.ResolverConfig{Tokens: tokens, Identities: idents, Registry: registry, Recorder: metrics})
	authn := auth.Authenticator{Resolver: resolver}
	guards := access.Middleware{Recorder: metrics}

	cfg := &app.Config{AppEnv: "test"}
	handler := app.NewRouter(app.RouterParams{
		Config:         cfg,
		Authenticator:  authn,
		AuthHandler:    auth.NewHandler(nil, auth.NewService(auth.ServiceConfig{Identities: nil, Tokens: tokens, Registry: registry, Resolver: resolver}), authn, 10),
		UsersHandler:   users.NewHandler(nil, users.NewService(idents, tokens, nil), guards),
		CatalogHandler: catalog.NewHandler(nil, catalog.NewService(nil, nil), guards),
		Metrics:        metrics,
		Readiness:      checks,
	})
	return &harness{handler: handler, tokens: tokens, metrics: metrics}
}

func (h *harness) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) token(t *testing.T, id int64) string {
	t.Helper()
	tok, err := h.tokens.Issue(context.Background(), id)
	require.NoError(t, err)
	return tok.Value
}

func TestHealthz(t *testing.T) {
	rec := newHarness(t).get(t, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRolesArePublic(t *testing.T) {
	rec := newHarness(t).get(t, "/api/auth/roles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "policy_maker")
}

func TestCatalogRequiresCredential(t *testing.T) {
	h := newHarness(t)
	rec := h.get(t, "/api/projects", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 1)
	assert.Contains(t, body, "message")
}

func TestAdminRoutesForbidNonAdmins(t *testing.T) {
	h := newHarness(t)

	rec := h.get(t, "/api/admin/users/", h.token(t, 2))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requiredRole":"admin"`)

	rec = h.get(t, "/api/admin/users/", h.token(t, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sam")
}

func TestMetricsExposeAuthOutcomes(t *testing.T) {
	h := newHarness(t)
	h.get(t, "/api/projects", "")
	h.get(t, "/api/admin/users/", h.token(t, 2))

	rec := h.get(t, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `modcat_auth_resolutions_total{outcome="missing"}`), body)
	assert.Contains(t, body, `modcat_guard_decisions_total{decision="deny",kind="role"}`)
}

func TestReadyz(t *testing.T) {
	ok := app.ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	rec := newHarness(t, ok).get(t, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	down := app.ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}
	rec = newHarness(t, ok, down).get(t, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","failed":["redis"]}`, rec.Body.String())
}
