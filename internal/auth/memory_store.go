package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryTokenStore keeps tokens in process memory. It is only correct for a
// single-instance deployment; multiple instances need RedisTokenStore.
type MemoryTokenStore struct {
	mu         sync.RWMutex
	entries    map[string]tokenEntry
	byIdentity map[int64]map[string]struct{}
	maxAge     time.Duration
	now        func() time.Time
}

// NewMemoryTokenStore constructs an empty store. maxAge of zero disables expiry.
func NewMemoryTokenStore(maxAge time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{
		entries:    make(map[string]tokenEntry),
		byIdentity: make(map[int64]map[string]struct{}),
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Issue mints and records a token.
func (s *MemoryTokenStore) Issue(ctx context.Context, identityID int64) (Token, error) {
	tok, err := newToken(identityID, s.now())
	if err != nil {
		return Token{}, err
	}
	key := hashToken(tok.Value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(identityID)
	s.entries[key] = tokenEntry{IdentityID: identityID, Handle: tok.Handle, IssuedAt: tok.IssuedAt}
	set, ok := s.byIdentity[identityID]
	if !ok {
		set = make(map[string]struct{})
		s.byIdentity[identityID] = set
	}
	set[key] = struct{}{}
	return tok, nil
}

// Resolve looks up the identity bound to token.
func (s *MemoryTokenStore) Resolve(ctx context.Context, token string) (int64, bool, error) {
	if !wellFormed(token) {
		return 0, false, nil
	}
	key := hashToken(token)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || expired(entry, s.maxAge, s.now()) {
		return 0, false, nil
	}
	return entry.IdentityID, true, nil
}

// Revoke removes token if present.
func (s *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	if !wellFormed(token) {
		return nil
	}
	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	return nil
}

// RevokeAll removes every token bound to identityID.
func (s *MemoryTokenStore) RevokeAll(ctx context.Context, identityID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(identityID)
	set := s.byIdentity[identityID]
	n := len(set)
	for key := range set {
		delete(s.entries, key)
	}
	delete(s.byIdentity, identityID)
	return n, nil
}

// pruneLocked drops the identity's expired entries.
func (s *MemoryTokenStore) pruneLocked(identityID int64) {
	if s.maxAge <= 0 {
		return
	}
	now := s.now()
	for key := range s.byIdentity[identityID] {
		if expired(s.entries[key], s.maxAge, now) {
			s.removeLocked(key)
		}
	}
}

func (s *MemoryTokenStore) removeLocked(key string) {
	entry, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	if set, ok := s.byIdentity[entry.IdentityID]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(s.byIdentity, entry.IdentityID)
		}
	}
}

var _ TokenStore = (*MemoryTokenStore)(nil)
