package auth

import (
	"context"
	"time"
)

// StoreObserver receives the latency and result of each token store call.
type StoreObserver interface {
	ObserveTokenStore(op string, took time.Duration, err error)
}

type instrumentedStore struct {
	next TokenStore
	obs  StoreObserver
	now  func() time.Time
}

// InstrumentStore wraps next so every call is reported to obs. A nil obs
// returns next unchanged.
func InstrumentStore(next TokenStore, obs StoreObserver) TokenStore {
	if obs == nil {
		return next
	}
	return &instrumentedStore{next: next, obs: obs, now: time.Now}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	s.obs.ObserveTokenStore(op, s.now().Sub(start), err)
}

func (s *instrumentedStore) Issue(ctx context.Context, identityID int64) (Token, error) {
	start := s.now()
	tok, err := s.next.Issue(ctx, identityID)
	s.observe("issue", start, err)
	return tok, err
}

func (s *instrumentedStore) Resolve(ctx context.Context, token string) (int64, bool, error) {
	start := s.now()
	id, ok, err := s.next.Resolve(ctx, token)
	s.observe("resolve", start, err)
	return id, ok, err
}

func (s *instrumentedStore) Revoke(ctx context.Context, token string) error {
	start := s.now()
	err := s.next.Revoke(ctx, token)
	s.observe("revoke", start, err)
	return err
}

func (s *instrumentedStore) RevokeAll(ctx context.Context, identityID int64) (int, error) {
	start := s.now()
	n, err := s.next.RevokeAll(ctx, identityID)
	s.observe("revoke_all", start, err)
	return n, err
}
