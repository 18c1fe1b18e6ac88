package budget

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrExhausted reports that a tenant has no remaining quota for a tier. It
// is a routing signal, not a failure: callers degrade to a cheaper tier.
var ErrExhausted = errors.New("budget exhausted for tier")

// ErrStoreUnavailable reports that the counter backend is unreachable.
var ErrStoreUnavailable = errors.New("budget store unavailable")

// Store holds per-tenant, per-tier daily counters.
//
// Reserve atomically decrements the tier counter and records a refund marker
// under reservationID. It returns false (no error) when quota is exhausted.
// Refund returns the reserved amount exactly once per reservation id; extra
// calls are no-ops.
type Store interface {
	Reserve(ctx context.Context, tenantID uuid.UUID, tier string, reservationID uuid.UUID) (bool, error)
	Refund(ctx context.Context, reservationID uuid.UUID) error
	Remaining(ctx context.Context, tenantID uuid.UUID, tier string) (int64, error)
}
