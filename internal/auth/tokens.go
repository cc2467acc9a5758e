package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenPrefix identifies modcat bearer tokens.
	TokenPrefix = "mct_"
	// tokenEntropyBytes is the number of random bytes per token (256 bits).
	tokenEntropyBytes = 32
)

var encodedTokenLen = base64.RawURLEncoding.EncodedLen(tokenEntropyBytes)

// TokenStore exclusively owns the token to identity mapping. Implementations
// must make Issue, Resolve and Revoke atomic with respect to each other.
type TokenStore interface {
	// Issue mints a new token bound to identityID. Prior tokens stay valid.
	Issue(ctx context.Context, identityID int64) (Token, error)
	// Resolve returns the bound identity id. ok is false for unknown,
	// malformed or revoked tokens; err is reserved for backend failures.
	Resolve(ctx context.Context, token string) (identityID int64, ok bool, err error)
	// Revoke invalidates token. Revoking an invalid token is a no-op.
	Revoke(ctx context.Context, token string) error
	// RevokeAll invalidates every token bound to identityID and reports how many were removed.
	RevokeAll(ctx context.Context, identityID int64) (int, error)
}

// tokenEntry is what stores keep per token.
type tokenEntry struct {
	IdentityID int64
	Handle     string
	IssuedAt   time.Time
}

func newToken(identityID int64, now time.Time) (Token, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, fmt.Errorf("auth: generate token: %w", err)
	}
	return Token{
		Value:      TokenPrefix + base64.RawURLEncoding.EncodeToString(raw),
		Handle:     uuid.NewString(),
		IdentityID: identityID,
		IssuedAt:   now.UTC(),
	}, nil
}

// wellFormed reports whether token could have been produced by newToken.
func wellFormed(token string) bool {
	if !strings.HasPrefix(token, TokenPrefix) {
		return false
	}
	encoded := token[len(TokenPrefix):]
	if len(encoded) != encodedTokenLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(encoded)
	return err == nil
}

// hashToken is the storage key for a token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, non-reversible label safe to log.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return hashToken(token)[:12]
}

func expired(entry tokenEntry, maxAge time.Duration, now time.Time) bool {
	return maxAge > 0 && now.Sub(entry.IssuedAt) > maxAge
}
