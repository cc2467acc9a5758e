package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix    = "modcat:token:"
	identityKeyPrefix = "modcat:identity-tokens:"
)

// revokeAllScript deletes every token listed in an identity's index together
// with the index itself, so a concurrent Issue either lands before (and is
// removed) or after (and survives) but never half-indexed. Members whose
// token key already expired are dropped without being counted.
var revokeAllScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
local removed = 0
for _, key in ipairs(members) do
  removed = removed + redis.call('DEL', ARGV[1] .. key)
end
redis.call('DEL', KEYS[1])
return removed
`)

// RedisTokenStore keeps tokens in Redis so every instance sees the same table.
// Only token hashes are stored.
type RedisTokenStore struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisTokenStore constructs a store on client. maxAge of zero disables expiry.
func NewRedisTokenStore(client *redis.Client, maxAge time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, maxAge: maxAge, now: time.Now}
}

// Issue mints a token and records it with its identity index in one transaction.
func (s *RedisTokenStore) Issue(ctx context.Context, identityID int64) (Token, error) {
	tok, err := newToken(identityID, s.now())
	if err != nil {
		return Token{}, err
	}
	hash := hashToken(tok.Value)
	key := tokenKeyPrefix + hash
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"identity_id": identityID,
			"handle":      tok.Handle,
			"issued_at":   tok.IssuedAt.UnixNano(),
		})
		pipe.SAdd(ctx, s.indexKey(identityID), hash)
		if s.maxAge > 0 {
			// The newest token lives longest, so the index outlives every member.
			pipe.Expire(ctx, key, s.maxAge)
			pipe.Expire(ctx, s.indexKey(identityID), s.maxAge)
		}
		return nil
	})
	if err != nil {
		return Token{}, fmt.Errorf("auth: store token: %w", err)
	}
	return tok, nil
}

// Resolve looks up the identity bound to token.
func (s *RedisTokenStore) Resolve(ctx context.Context, token string) (int64, bool, error) {
	if !wellFormed(token) {
		return 0, false, nil
	}
	entry, ok, err := s.load(ctx, tokenKeyPrefix+hashToken(token))
	if err != nil || !ok {
		return 0, false, err
	}
	if expired(entry, s.maxAge, s.now()) {
		return 0, false, nil
	}
	return entry.IdentityID, true, nil
}

// Revoke deletes token and its index membership.
func (s *RedisTokenStore) Revoke(ctx context.Context, token string) error {
	if !wellFormed(token) {
		return nil
	}
	hash := hashToken(token)
	key := tokenKeyPrefix + hash
	entry, ok, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, s.indexKey(entry.IdentityID), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// RevokeAll deletes every token bound to identityID.
func (s *RedisTokenStore) RevokeAll(ctx context.Context, identityID int64) (int, error) {
	n, err := revokeAllScript.Run(ctx, s.client, []string{s.indexKey(identityID)}, tokenKeyPrefix).Int()
	if err != nil {
		return 0, fmt.Errorf("auth: revoke identity tokens: %w", err)
	}
	return n, nil
}

func (s *RedisTokenStore) load(ctx context.Context, key string) (tokenEntry, bool, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return tokenEntry{}, false, nil
		}
		return tokenEntry{}, false, fmt.Errorf("auth: load token: %w", err)
	}
	if len(fields) == 0 {
		return tokenEntry{}, false, nil
	}
	id, err := strconv.ParseInt(fields["identity_id"], 10, 64)
	if err != nil {
		return tokenEntry{}, false, fmt.Errorf("auth: corrupt token entry: %w", err)
	}
	issued, _ := strconv.ParseInt(fields["issued_at"], 10, 64)
	return tokenEntry{
		IdentityID: id,
		Handle:     fields["handle"],
		IssuedAt:   time.Unix(0, issued).UTC(),
	}, true, nil
}

func (s *RedisTokenStore) indexKey(identityID int64) string {
	return identityKeyPrefix + strconv.FormatInt(identityID, 10)
}

var _ TokenStore = (*RedisTokenStore)(nil)
