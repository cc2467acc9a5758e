package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/auth"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
	_ "github.com/modcat/modcat/testing"
)

type fixture struct {
	router http.Handler
	idents *stubIdentities
	tokens *auth.MemoryTokenStore
}

type stubIdentities struct {
	rows   map[int64]identity.Identity
	nextID int64
}

func (s *stubIdentities) FindByID(ctx context.Context, id int64) (identity.Identity, error) {
	ident, ok := s.rows[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, nil
}

func (s *stubIdentities) FindByIdentifier(ctx context.Context, identifier string) (identity.Identity, error) {
	key := identity.NormalizeIdentifier(identifier)
	for _, ident := range s.rows {
		if ident.Username == key || ident.Email == key {
			return ident, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (s *stubIdentities) Create(ctx context.Context, in identity.NewIdentity) (identity.Identity, error) {
	username := identity.NormalizeIdentifier(in.Username)
	email := identity.NormalizeIdentifier(in.Email)
	for _, ident := range s.rows {
		if ident.Username == username || ident.Email == email {
			return identity.Identity{}, shared.ErrDuplicate
		}
	}
	s.nextID++
	ident := identity.Identity{ID: s.nextID, Username: username, Email: email, DisplayName: in.DisplayName, Role: in.Role, PasswordHash: in.PasswordHash, IsActive: true}
	s.rows[ident.ID] = ident
	return ident, nil
}

func (s *stubIdentities) SetActive(ctx context.Context, id int64, active bool) error {
	ident, ok := s.rows[id]
	if !ok {
		return identity.ErrNotFound
	}
	ident.IsActive = active
	s.rows[id] = ident
	return nil
}

func (s *stubIdentities) List(ctx context.Context) ([]identity.Identity, error) { return nil, nil }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	idents := &stubIdentities{rows: make(map[int64]identity.Identity)}
	tokens := auth.NewMemoryTokenStore(0)
	registry := access.DefaultRegistry()
	resolver := auth.NewResolver(auth.ResolverConfig{Tokens: tokens, Identities: idents, Registry: registry})
	authenticator := auth.Authenticator{Resolver: resolver}
	service := auth.NewService(auth.ServiceConfig{
		Identities: idents,
		Verifier:   identity.NewVerifier(idents, 2),
		Tokens:     tokens,
		Registry:   registry,
		Resolver:   resolver,
	})
	guards := access.Middleware{}

	r := chi.NewRouter()
	r.Route("/api/auth", auth.NewHandler(nil, service, authenticator, 0).MountRoutes)
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Required)
		r.With(guards.RequirePermission(access.PermModify)).Post("/api/projects", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	return &fixture{router: r, idents: idents, tokens: tokens}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func (f *fixture) register(t *testing.T, username, role string) auth.Session {
	t.Helper()
	res := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.test",
		"password": "long-enough-secret",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var sess auth.Session
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &sess))
	return sess
}

func decode(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

func TestRegisterReturnsTokenAndPermissions(t *testing.T) {
	f := newFixture(t)
	sess := f.register(t, "Sam", "supplier")

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "sam", sess.User.Username)
	assert.Equal(t, access.RoleSupplier, sess.User.Role)
	assert.Equal(t, []string{"read", "search"}, sess.User.Permissions.Strings())
}

func TestRegisterUnknownRoleCreatesNothing(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "neil",
		"email":    "neil@example.test",
		"password": "long-enough-secret",
		"role":     "astronaut",
	})

	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decode(t, res)
	assert.Equal(t, auth.CodeUnknownRole, body["code"])
	assert.Empty(t, f.idents.rows)
}

func TestRegisterDuplicateIsValidationError(t *testing.T) {
	f := newFixture(t)
	f.register(t, "dana", "designer")

	res := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "DANA",
		"email":    "other@example.test",
		"password": "long-enough-secret",
		"role":     "designer",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, auth.CodeValidation, decode(t, res)["code"])
	assert.Len(t, f.idents.rows, 1)
}

func TestRegisterMalformedPayload(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "x",
		"email":    "not-an-email",
		"password": "short",
		"role":     "designer",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	errs, ok := decode(t, res)["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestRegisterMultibytePasswordOverBcryptLimit(t *testing.T) {
	f := newFixture(t)
	// 40 runes, 80 bytes.
	res := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.test",
		"password": strings.Repeat("é", 40),
		"role":     "designer",
	})

	require.Equal(t, http.StatusBadRequest, res.Code, res.Body.String())
	body := decode(t, res)
	assert.Equal(t, auth.CodeValidation, body["code"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "password")
	assert.Empty(t, f.idents.rows)
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "lee", "contractor")

	for _, identifier := range []string{"lee", "LEE@example.test"} {
		res := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": identifier, "password": "long-enough-secret"})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
		var sess auth.Session
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &sess))
		assert.NotEmpty(t, sess.Token)
		assert.Equal(t, access.RoleContractor, sess.User.Role)
	}

	res := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "lee", "password": "wrong-secret"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMultipleSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "mia", "designer")
	res := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"identifier": "mia", "password": "long-enough-secret"})
	require.Equal(t, http.StatusOK, res.Code)
	var second auth.Session
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &second))
	require.NotEqual(t, first.Token, second.Token)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/auth/me", first.Token, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/auth/me", second.Token, nil).Code)
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sess := f.register(t, "oli", "designer")

	res := f.do(t, http.MethodPost, "/api/auth/logout", sess.Token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, true, decode(t, res)["success"])

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/auth/me", sess.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/projects", sess.Token, nil).Code)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/logout", sess.Token, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func TestPublicRoutesIgnoreBadCredentials(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/auth/roles", "not-a-token", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/logout", "mct_unknown", nil).Code)
}

func TestMeReflectsCurrentState(t *testing.T) {
	f := newFixture(t)
	sess := f.register(t, "pat", "operator")

	res := f.do(t, http.MethodGet, "/api/auth/me", sess.Token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	user := decode(t, res)["user"].(map[string]any)
	assert.Equal(t, "operator", user["role"])
	assert.Equal(t, []any{"data_input", "read", "search"}, user["permissions"])

	require.NoError(t, f.idents.SetActive(context.Background(), sess.User.ID, false))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/auth/me", sess.Token, nil).Code)
}

func TestGuardedRouteScenarios(t *testing.T) {
	f := newFixture(t)
	sup := f.register(t, "sully", "supplier")
	des := f.register(t, "desi", "designer")

	res := f.do(t, http.MethodPost, "/api/projects", sup.Token, nil)
	require.Equal(t, http.StatusForbidden, res.Code)
	body := decode(t, res)
	assert.Equal(t, "modify", body["requiredPermission"])
	assert.Equal(t, "supplier", body["userRole"])
	assert.Equal(t, []any{"read", "search"}, body["userPermissions"])

	res = f.do(t, http.MethodPost, "/api/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	body = decode(t, res)
	assert.NotContains(t, body, "userPermissions")
	assert.NotContains(t, body, "requiredPermission")

	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/projects", des.Token, nil).Code)
}

func TestRolesEndpointIsPublic(t *testing.T) {
	f := newFixture(t)
	res := f.do(t, http.MethodGet, "/api/auth/roles", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	roles := decode(t, res)["roles"].([]any)
	assert.Len(t, roles, len(access.AllRoles()))
	first := roles[0].(map[string]any)
	assert.Equal(t, "designer", first["role"])
}
