package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	op  string
	err error
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveTokenStore(op string, took time.Duration, err error) {
	f.seen = append(f.seen, observation{op: op, err: err})
}

func TestInstrumentStoreReportsEveryOperation(t *testing.T) {
	obs := &fakeObserver{}
	store := InstrumentStore(NewMemoryTokenStore(0), obs)
	ctx := context.Background()

	tok, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	_, _, err = store.Resolve(ctx, tok.Value)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, tok.Value))
	_, err = store.RevokeAll(ctx, 1)
	require.NoError(t, err)

	ops := make([]string, 0, len(obs.seen))
	for _, o := range obs.seen {
		ops = append(ops, o.op)
		assert.NoError(t, o.err)
	}
	assert.Equal(t, []string{"issue", "resolve", "revoke", "revoke_all"}, ops)
}

func TestInstrumentStorePassesErrorsThrough(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	obs := &fakeObserver{}
	store := InstrumentStore(NewRedisTokenStore(client, 0), obs)

	srv.Close()
	_, err := store.Issue(context.Background(), 1)
	require.Error(t, err)
	require.Len(t, obs.seen, 1)
	assert.Error(t, obs.seen[0].err)
}

func TestInstrumentStoreWithoutObserver(t *testing.T) {
	inner := NewMemoryTokenStore(0)
	assert.Same(t, inner, InstrumentStore(inner, nil))
}
