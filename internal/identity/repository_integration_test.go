//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
	"github.com/modcat/modcat/internal/testing/pgtest"
)

func TestPGRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := identity.NewRepository(pgtest.Pool(t))

	created, err := repo.Create(ctx, identity.NewIdentity{
		Username:     "Alice",
		Email:        "Alice@Example.test",
		Role:         access.RoleDesigner,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.True(t, created.IsActive)

	byEmail, err := repo.FindByIdentifier(ctx, "ALICE@example.test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Create(ctx, identity.NewIdentity{Username: "alice", Email: "other@example.test", Role: access.RoleSupplier, PasswordHash: "x"})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	require.NoError(t, repo.SetActive(ctx, created.ID, false))
	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.ErrorIs(t, repo.SetActive(ctx, 9999, false), identity.ErrNotFound)
	_, err = repo.FindByID(ctx, 9999)
	require.ErrorIs(t, err, identity.ErrNotFound)
}
