package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
)

type identityKey struct {
	tenantID      uuid.UUID
	canonicalName string
}

// MemoryStore implements Store with the same merge semantics as the neo4j
// backend. Used in tests and as a local-dev fallback when NEO4J_URI is
// unset.
type MemoryStore struct {
	mu        sync.Mutex
	byKey     map[identityKey]*types.CanonicalConcept
	byID      map[uuid.UUID]*types.CanonicalConcept
	links     map[uuid.UUID]uuid.UUID // proto id -> canonical id
	relations []types.Relation

	upserts      int
	upsertBudget int // 0 means unlimited; tests inject outages with it
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: map[identityKey]*types.CanonicalConcept{},
		byID:  map[uuid.UUID]*types.CanonicalConcept{},
		links: map[uuid.UUID]uuid.UUID{},
	}
}

func (s *MemoryStore) FindCanonical(ctx context.Context, tenantID uuid.UUID, canonicalName string) (*types.CanonicalConcept, error) {
	if tenantID == uuid.Nil || canonicalName == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byKey[identityKey{tenantID, canonicalName}]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpsertCanonical(ctx context.Context, concept *types.CanonicalConcept) (uuid.UUID, bool, error) {
	if concept == nil || concept.TenantID == uuid.Nil || concept.CanonicalName == "" {
		return uuid.Nil, false, fmt.Errorf("tenant and canonical name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	if s.upsertBudget > 0 && s.upserts > s.upsertBudget {
		return uuid.Nil, false, ErrUnavailable
	}

	key := identityKey{concept.TenantID, concept.CanonicalName}
	if existing, ok := s.byKey[key]; ok {
		existing.SurfaceForms = mergeForms(existing.SurfaceForms, concept.SurfaceForms)
		return existing.ID, false, nil
	}

	cp := *concept
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.SurfaceForms = mergeForms(nil, concept.SurfaceForms)
	s.byKey[key] = &cp
	s.byID[cp.ID] = &cp
	return cp.ID, true, nil
}

// FailUpsertsAfter makes every upsert past the n-th return ErrUnavailable,
// simulating a backend outage mid-promotion.
func (s *MemoryStore) FailUpsertsAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertBudget = n
	s.upserts = 0
}

func (s *MemoryStore) LinkProtoToCanonical(ctx context.Context, tenantID uuid.UUID, protoID uuid.UUID, canonicalID uuid.UUID) error {
	if tenantID == uuid.Nil || protoID == uuid.Nil || canonicalID == uuid.Nil {
		return fmt.Errorf("tenant, proto and canonical ids required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[canonicalID]; !ok {
		return fmt.Errorf("canonical concept %s not found", canonicalID)
	}
	s.links[protoID] = canonicalID
	return nil
}

func (s *MemoryStore) CreateRelation(ctx context.Context, rel types.Relation) error {
	if rel.TenantID == uuid.Nil || rel.SourceID == uuid.Nil || rel.TargetID == uuid.Nil || rel.Type == "" {
		return fmt.Errorf("relation endpoints and type required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rel.SourceID]; !ok {
		return fmt.Errorf("relation source %s not found", rel.SourceID)
	}
	if _, ok := s.byID[rel.TargetID]; !ok {
		return fmt.Errorf("relation target %s not found", rel.TargetID)
	}
	// Merge on identity, matching the neo4j MERGE: an existing relation with
	// the same endpoints, type, segment and producer keeps its confidence.
	for _, existing := range s.relations {
		if existing.TenantID == rel.TenantID &&
			existing.SourceID == rel.SourceID &&
			existing.TargetID == rel.TargetID &&
			existing.Type == rel.Type &&
			existing.SegmentIndex == rel.SegmentIndex &&
			existing.Producer == rel.Producer {
			return nil
		}
	}
	s.relations = append(s.relations, rel)
	return nil
}

func (s *MemoryStore) CanonicalCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.byKey {
		if key.tenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RelationsBetween(ctx context.Context, tenantID uuid.UUID, sourceID uuid.UUID, targetID uuid.UUID) ([]types.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Relation
	for _, rel := range s.relations {
		if rel.TenantID == tenantID && rel.SourceID == sourceID && rel.TargetID == targetID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Links returns the canonical id a proto concept was linked to, for tests.
func (s *MemoryStore) Links(protoID uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.links[protoID]
	return id, ok
}

// LinkCount returns how many provenance links point at a canonical id.
func (s *MemoryStore) LinkCount(canonicalID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, target := range s.links {
		if target == canonicalID {
			n++
		}
	}
	return n
}

// RelationCount returns the total persisted relation count, for tests.
func (s *MemoryStore) RelationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.relations)
}

func mergeForms(existing []string, add []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(existing)+len(add))
	for _, f := range existing {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range add {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
