package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/modcat/modcat/internal/shared"
)

// dummyHash is compared against when no identity matched so that unknown
// identifiers cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("modcat-timing-equaliser"), bcrypt.DefaultCost)

// Verifier checks login secrets. Hashing is bounded by a semaphore so a burst
// of logins cannot monopolise CPU needed by ordinary requests.
type Verifier struct {
	repo Repository
	sem  *semaphore.Weighted
	cost int
}

// NewVerifier builds a Verifier allowing at most concurrency simultaneous hashes.
func NewVerifier(repo Repository, concurrency int64) *Verifier {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Verifier{repo: repo, sem: semaphore.NewWeighted(concurrency), cost: bcrypt.DefaultCost}
}

// Verify returns the identity matching identifier when secret is correct and
// the identity is active. All credential failures yield shared.ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (Identity, error) {
	ident, err := v.repo.FindByIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: identity lookup: %v", shared.ErrDependencyUnavailable, err)
	}
	hash := dummyHash
	if err == nil {
		hash = []byte(ident.PasswordHash)
	}
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return Identity{}, fmt.Errorf("%w: hash slot: %v", shared.ErrDependencyUnavailable, err)
	}
	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	v.sem.Release(1)

	if ident.ID == 0 || cmpErr != nil || !ident.IsActive {
		return Identity{}, shared.ErrInvalidCredentials
	}
	return ident, nil
}

// Hash derives a storable hash for secret.
func (v *Verifier) Hash(ctx context.Context, secret string) (string, error) {
	if err := v.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: hash slot: %v", shared.ErrDependencyUnavailable, err)
	}
	defer v.sem.Release(1)
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
