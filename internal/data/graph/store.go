package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
)

// ErrUnavailable reports that the graph backend is unreachable. Promotion
// and relation persistence are mandatory stages, so callers retry a bounded
// number of times and then fail the document run.
var ErrUnavailable = errors.New("graph store unavailable")

// Store is the canonical concept graph boundary.
//
// UpsertCanonical must be an idempotent merge on (tenant_id,
// canonical_name): concurrent attempts to create the same name converge on
// one node, surface forms accumulate, and no existing field is overwritten.
type Store interface {
	FindCanonical(ctx context.Context, tenantID uuid.UUID, canonicalName string) (*types.CanonicalConcept, error)
	UpsertCanonical(ctx context.Context, concept *types.CanonicalConcept) (id uuid.UUID, created bool, err error)
	LinkProtoToCanonical(ctx context.Context, tenantID uuid.UUID, protoID uuid.UUID, canonicalID uuid.UUID) error
	CreateRelation(ctx context.Context, rel types.Relation) error

	CanonicalCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
	RelationsBetween(ctx context.Context, tenantID uuid.UUID, sourceID uuid.UUID, targetID uuid.UUID) ([]types.Relation, error)
}
