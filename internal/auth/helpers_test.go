package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
)

// memIdentities is an in-memory identity.Repository for tests.
type memIdentities struct {
	mu     sync.Mutex
	byID   map[int64]identity.Identity
	nextID int64
	err    error
	delay  time.Duration
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byID: make(map[int64]identity.Identity), nextID: 1}
}

func (m *memIdentities) FindByID(ctx context.Context, id int64) (identity.Identity, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return identity.Identity{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return identity.Identity{}, m.err
	}
	ident, ok := m.byID[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	return ident, nil
}

func (m *memIdentities) FindByIdentifier(ctx context.Context, identifier string) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := identity.NormalizeIdentifier(identifier)
	for _, ident := range m.byID {
		if ident.Username == key || ident.Email == key {
			return ident, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (m *memIdentities) Create(ctx context.Context, in identity.NewIdentity) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username := identity.NormalizeIdentifier(in.Username)
	email := identity.NormalizeIdentifier(in.Email)
	for _, ident := range m.byID {
		if ident.Username == username || ident.Email == email {
			return identity.Identity{}, fmt.Errorf("%w: taken", shared.ErrDuplicate)
		}
	}
	ident := identity.Identity{
		ID:           m.nextID,
		Username:     username,
		Email:        email,
		DisplayName:  in.DisplayName,
		Organization: in.Organization,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
	}
	m.byID[ident.ID] = ident
	m.nextID++
	return ident, nil
}

func (m *memIdentities) SetActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	ident.IsActive = active
	m.byID[id] = ident
	return nil
}

func (m *memIdentities) List(ctx context.Context) ([]identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]identity.Identity, 0, len(m.byID))
	for _, ident := range m.byID {
		out = append(out, ident)
	}
	return out, nil
}

func (m *memIdentities) put(ident identity.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[ident.ID] = ident
	if ident.ID >= m.nextID {
		m.nextID = ident.ID + 1
	}
}

func (m *memIdentities) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type outcomes map[string]int

func (o outcomes) RecordAuthOutcome(outcome string) { o[outcome]++ }
