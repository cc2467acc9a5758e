package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/users"
	_ "github.com/modcat/modcat/testing"
)

type stubRepo struct {
	rows map[int64]identity.Identity
}

func (s *stubRepo) List(ctx context.Context) ([]identity.Identity, error) {
	out := make([]identity.Identity, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func (s *stubRepo) SetActive(ctx context.Context, id int64, active bool) error {
	row, ok := s.rows[id]
	if !ok {
		return identity.ErrNotFound
	}
	row.IsActive = active
	s.rows[id] = row
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (identity.Identity, error) {
	row, ok := s.rows[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return row, nil
}

func newRouter(t *testing.T, repo *stubRepo, tokens auth.TokenStore) http.Handler {
	t.Helper()
	resolver := auth.NewResolver(auth.ResolverConfig{Tokens: tokens, Identities: repo, Registry: access.DefaultRegistry()})
	authn := auth.Authenticator{Resolver: resolver}
	handler := users.NewHandler(nil, users.NewService(repo, tokens, nil), access.Middleware{})

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authn.Required)
		r.Route("/api/admin/users", handler.MountRoutes)
		r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})
	return r
}

func call(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func TestDeactivateRevokesAndBlocksImmediately(t *testing.T) {
	repo := &stubRepo{rows: map[int64]identity.Identity{
		1: {ID: 1, Username: "root", Role: access.RoleAdmin, IsActive: true},
		2: {ID: 2, Username: "ops", Role: access.RoleOperator, IsActive: true},
	}}
	tokens := auth.NewMemoryTokenStore(0)
	ctx := context.Background()
	adminTok, err := tokens.Issue(ctx, 1)
	require.NoError(t, err)
	opTok, err := tokens.Issue(ctx, 2)
	require.NoError(t, err)
	r := newRouter(t, repo, tokens)

	require.Equal(t, http.StatusNoContent, call(r, http.MethodGet, "/api/ping", opTok.Value).Code)

	res := call(r, http.MethodPost, "/api/admin/users/2/deactivate", adminTok.Value)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["tokensRevoked"])

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/ping", opTok.Value).Code)
	assert.False(t, repo.rows[2].IsActive)
}

func TestDeactivationAloneBlocksUnrevokedTokens(t *testing.T) {
	repo := &stubRepo{rows: map[int64]identity.Identity{
		2: {ID: 2, Role: access.RoleOperator, IsActive: true},
	}}
	tokens := auth.NewMemoryTokenStore(0)
	tok, err := tokens.Issue(context.Background(), 2)
	require.NoError(t, err)
	r := newRouter(t, repo, tokens)

	require.NoError(t, repo.SetActive(context.Background(), 2, false))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/ping", tok.Value).Code)

	_, ok, err := tokens.Resolve(context.Background(), tok.Value)
	require.NoError(t, err)
	assert.True(t, ok, "token itself was never revoked")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	repo := &stubRepo{rows: map[int64]identity.Identity{
		2: {ID: 2, Role: access.RoleDesigner, IsActive: true},
	}}
	tokens := auth.NewMemoryTokenStore(0)
	tok, err := tokens.Issue(context.Background(), 2)
	require.NoError(t, err)
	r := newRouter(t, repo, tokens)

	res := call(r, http.MethodGet, "/api/admin/users/", tok.Value)
	require.Equal(t, http.StatusForbidden, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "admin", body["requiredRole"])

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/admin/users/", "").Code)
}

func TestDeactivateUnknownUser(t *testing.T) {
	repo := &stubRepo{rows: map[int64]identity.Identity{
		1: {ID: 1, Role: access.RoleAdmin, IsActive: true},
	}}
	tokens := auth.NewMemoryTokenStore(0)
	tok, err := tokens.Issue(context.Background(), 1)
	require.NoError(t, err)
	r := newRouter(t, repo, tokens)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/api/admin/users/99/deactivate", tok.Value).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/admin/users/abc/deactivate", tok.Value).Code)
}
