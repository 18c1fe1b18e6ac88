package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
)

func seedCanonical(t *testing.T, store *MemoryStore, tenant uuid.UUID, name string) uuid.UUID {
	t.Helper()
	id, _, err := store.UpsertCanonical(context.Background(), &types.CanonicalConcept{
		TenantID:      tenant,
		CanonicalName: name,
	})
	if err != nil {
		t.Fatalf("UpsertCanonical %s: %v", name, err)
	}
	return id
}

// Writing the same relation twice merges instead of appending, matching the
// neo4j MERGE on (source, target, type, segment_index, producer). The first
// write wins on confidence.
func TestCreateRelationMergesOnIdentity(t *testing.T) {
	store := NewMemoryStore()
	tenant := uuid.New()
	kafka := seedCanonical(t, store, tenant, "kafka")
	flink := seedCanonical(t, store, tenant, "flink")

	rel := types.Relation{
		TenantID:     tenant,
		SourceID:     kafka,
		TargetID:     flink,
		Type:         types.RelationCoOccurrence,
		Confidence:   0.80,
		SegmentIndex: 0,
		Producer:     "pattern_miner",
	}
	if err := store.CreateRelation(context.Background(), rel); err != nil {
		t.Fatalf("CreateRelation: %v", err)
	}
	replay := rel
	replay.Confidence = 0.55
	if err := store.CreateRelation(context.Background(), replay); err != nil {
		t.Fatalf("replayed CreateRelation: %v", err)
	}

	if got := store.RelationCount(); got != 1 {
		t.Fatalf("relation count = %d, want 1", got)
	}
	between, err := store.RelationsBetween(context.Background(), tenant, kafka, flink)
	if err != nil {
		t.Fatalf("RelationsBetween: %v", err)
	}
	if len(between) != 1 || between[0].Confidence != 0.80 {
		t.Fatalf("relations = %+v, want single relation with confidence 0.80", between)
	}

	// A different segment is a distinct relation.
	other := rel
	other.SegmentIndex = 1
	if err := store.CreateRelation(context.Background(), other); err != nil {
		t.Fatalf("CreateRelation segment 1: %v", err)
	}
	if got := store.RelationCount(); got != 2 {
		t.Fatalf("relation count after new segment = %d, want 2", got)
	}
}
