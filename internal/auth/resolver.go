package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modcat/modcat/internal/access"
	"github.com/modcat/modcat/internal/identity"
	"github.com/modcat/modcat/internal/shared"
)

// IdentityLookup loads identities by id.
type IdentityLookup interface {
	FindByID(ctx context.Context, id int64) (identity.Identity, error)
}

// OutcomeRecorder receives authentication outcomes for metrics.
type OutcomeRecorder interface {
	RecordAuthOutcome(outcome string)
}

// Authentication outcomes.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeMissing       = "missing"
	OutcomeInvalid       = "invalid"
	OutcomeInactive      = "inactive"
	OutcomeUnavailable   = "unavailable"
	OutcomeError         = "error"
)

// Resolver turns a bearer credential into a Principal. Every call consults
// the token store and the identity store; nothing is cached between calls.
type Resolver struct {
	tokens        TokenStore
	identities    IdentityLookup
	registry      *access.Registry
	lookupTimeout time.Duration
	logger        *slog.Logger
	recorder      OutcomeRecorder
}

// ResolverConfig groups Resolver dependencies.
type ResolverConfig struct {
	Tokens        TokenStore
	Identities    IdentityLookup
	Registry      *access.Registry
	LookupTimeout time.Duration
	Logger        *slog.Logger
	Recorder      OutcomeRecorder
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		tokens:        cfg.Tokens,
		identities:    cfg.Identities,
		registry:      cfg.Registry,
		lookupTimeout: timeout,
		logger:        cfg.Logger,
		recorder:      cfg.Recorder,
	}
}

// Resolve authenticates rawCredential.
func (r *Resolver) Resolve(ctx context.Context, rawCredential string) (access.Principal, error) {
	if rawCredential == "" {
		r.record(OutcomeMissing)
		return access.Principal{}, ErrMissingCredential
	}

	identityID, ok, err := r.tokens.Resolve(ctx, rawCredential)
	if err != nil {
		r.record(OutcomeUnavailable)
		r.warn("token store unavailable", rawCredential, err)
		return access.Principal{}, fmt.Errorf("%w: token store: %v", shared.ErrDependencyUnavailable, err)
	}
	if !ok {
		r.record(OutcomeInvalid)
		return access.Principal{}, ErrInvalidCredential
	}

	ident, err := r.lookup(ctx, identityID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			r.record(OutcomeInvalid)
			return access.Principal{}, ErrInvalidCredential
		}
		r.record(OutcomeUnavailable)
		r.warn("identity store unavailable", rawCredential, err)
		return access.Principal{}, fmt.Errorf("%w: identity store: %v", shared.ErrDependencyUnavailable, err)
	}
	if !ident.IsActive {
		r.record(OutcomeInactive)
		return access.Principal{}, ErrInvalidCredential
	}

	perms, err := r.registry.PermissionsFor(ident.Role)
	if err != nil {
		r.record(OutcomeError)
		if r.logger != nil {
			r.logger.Error("identity carries unregistered role",
				slog.Int64("identity_id", ident.ID),
				slog.String("role", string(ident.Role)),
			)
		}
		return access.Principal{}, fmt.Errorf("auth: resolve identity %d: %w", ident.ID, err)
	}

	r.record(OutcomeAuthenticated)
	return access.Principal{
		ID:          ident.ID,
		Username:    ident.Username,
		Email:       ident.Email,
		Role:        ident.Role,
		Permissions: perms,
	}, nil
}

// Identity loads the identity behind a principal with the same deadline as Resolve.
func (r *Resolver) Identity(ctx context.Context, id int64) (identity.Identity, error) {
	return r.lookup(ctx, id)
}

func (r *Resolver) lookup(ctx context.Context, id int64) (identity.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()
	return r.identities.FindByID(ctx, id)
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordAuthOutcome(outcome)
	}
}

func (r *Resolver) warn(msg, token string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, slog.String("token_fp", Fingerprint(token)), slog.Any("error", err))
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidCredential
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidCredential
	}
	return token, nil
}
