package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/platform/neo4jdb"
)

type neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(client *neo4jdb.Client, baseLog *logger.Logger) (Store, error) {
	if client == nil || client.Driver == nil {
		return nil, fmt.Errorf("neo4j client required")
	}
	s := &neo4jStore{
		client: client,
		log:    baseLog.With("component", "Neo4jGraphStore"),
	}
	s.initSchema(context.Background())
	return s, nil
}

// Best-effort schema init; uniqueness on the identity pair is what makes
// concurrent promotion converge instead of duplicating nodes.
func (s *neo4jStore) initSchema(ctx context.Context) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT canonical_concept_id_unique IF NOT EXISTS FOR (c:CanonicalConcept) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT canonical_concept_identity_unique IF NOT EXISTS FOR (c:CanonicalConcept) REQUIRE (c.tenant_id, c.canonical_name) IS UNIQUE`,
		`CREATE CONSTRAINT proto_concept_id_unique IF NOT EXISTS FOR (p:ProtoConcept) REQUIRE p.id IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (s *neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jStore) FindCanonical(ctx context.Context, tenantID uuid.UUID, canonicalName string) (*types.CanonicalConcept, error) {
	if tenantID == uuid.Nil || canonicalName == "" {
		return nil, nil
	}
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:CanonicalConcept {tenant_id: $tenant_id, canonical_name: $canonical_name})
RETURN c.id AS id, c.type AS type, c.quality AS quality, c.surface_forms AS surface_forms, c.cataloged AS cataloged
`, map[string]any{
			"tenant_id":      tenantID.String(),
			"canonical_name": canonicalName,
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			// No row is a miss, not an error.
			return nil, nil
		}
		return recordToCanonical(rec, tenantID, canonicalName), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: find canonical: %v", ErrUnavailable, err)
	}
	if out == nil {
		return nil, nil
	}
	return out.(*types.CanonicalConcept), nil
}

func recordToCanonical(rec *neo4j.Record, tenantID uuid.UUID, canonicalName string) *types.CanonicalConcept {
	c := &types.CanonicalConcept{TenantID: tenantID, CanonicalName: canonicalName}
	if v, ok := rec.Get("id"); ok {
		if sid, ok := v.(string); ok {
			if id, err := uuid.Parse(sid); err == nil {
				c.ID = id
			}
		}
	}
	if v, ok := rec.Get("type"); ok {
		if t, ok := v.(string); ok {
			c.Type = t
		}
	}
	if v, ok := rec.Get("quality"); ok {
		if q, ok := v.(float64); ok {
			c.Quality = q
		}
	}
	if v, ok := rec.Get("cataloged"); ok {
		if b, ok := v.(bool); ok {
			c.Cataloged = b
		}
	}
	if v, ok := rec.Get("surface_forms"); ok {
		if forms, ok := v.([]any); ok {
			for _, f := range forms {
				if sf, ok := f.(string); ok {
					c.SurfaceForms = append(c.SurfaceForms, sf)
				}
			}
		}
	}
	return c
}

func (s *neo4jStore) UpsertCanonical(ctx context.Context, concept *types.CanonicalConcept) (uuid.UUID, bool, error) {
	if concept == nil || concept.TenantID == uuid.Nil || concept.CanonicalName == "" {
		return uuid.Nil, false, fmt.Errorf("tenant and canonical name required")
	}
	if concept.ID == uuid.Nil {
		concept.ID = uuid.New()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// ON MATCH only accumulates surface forms; identity merges, data
		// does not.
		res, err := tx.Run(ctx, `
MERGE (c:CanonicalConcept {tenant_id: $tenant_id, canonical_name: $canonical_name})
ON CREATE SET
  c.id = $id,
  c.type = $type,
  c.quality = $quality,
  c.cataloged = $cataloged,
  c.surface_forms = $surface_forms,
  c.created_at = $now,
  c.updated_at = $now
ON MATCH SET
  c.surface_forms = [x IN c.surface_forms WHERE NOT x IN $surface_forms] + $surface_forms,
  c.updated_at = $now
RETURN c.id AS id, c.created_at AS created_at
`, map[string]any{
			"tenant_id":      concept.TenantID.String(),
			"canonical_name": concept.CanonicalName,
			"id":             concept.ID.String(),
			"type":           concept.Type,
			"quality":        concept.Quality,
			"cataloged":      concept.Cataloged,
			"surface_forms":  toAnySlice(concept.SurfaceForms),
			"now":            now,
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: upsert canonical: %v", ErrUnavailable, err)
	}

	rec := out.(*neo4j.Record)
	id := concept.ID
	if v, ok := rec.Get("id"); ok {
		if sid, ok := v.(string); ok {
			if parsed, err := uuid.Parse(sid); err == nil {
				id = parsed
			}
		}
	}
	created := false
	if v, ok := rec.Get("created_at"); ok {
		if ts, ok := v.(string); ok {
			created = ts == now
		}
	}
	return id, created, nil
}

func (s *neo4jStore) LinkProtoToCanonical(ctx context.Context, tenantID uuid.UUID, protoID uuid.UUID, canonicalID uuid.UUID) error {
	if tenantID == uuid.Nil || protoID == uuid.Nil || canonicalID == uuid.Nil {
		return fmt.Errorf("tenant, proto and canonical ids required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:CanonicalConcept {id: $canonical_id})
MERGE (p:ProtoConcept {id: $proto_id})
ON CREATE SET p.tenant_id = $tenant_id, p.created_at = $now
MERGE (p)-[r:PROMOTED_TO]->(c)
ON CREATE SET r.created_at = $now
`, map[string]any{
			"canonical_id": canonicalID.String(),
			"proto_id":     protoID.String(),
			"tenant_id":    tenantID.String(),
			"now":          now,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: link proto: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *neo4jStore) CreateRelation(ctx context.Context, rel types.Relation) error {
	if rel.TenantID == uuid.Nil || rel.SourceID == uuid.Nil || rel.TargetID == uuid.Nil || rel.Type == "" {
		return fmt.Errorf("relation endpoints and type required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// Relation type is interpolated after validation against the known set;
	// Cypher cannot parameterize relationship types.
	relType := rel.Type
	switch relType {
	case types.RelationCoOccurrence, types.RelationRelatedTo:
	default:
		return fmt.Errorf("unknown relation type %q", relType)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
MATCH (a:CanonicalConcept {id: $source_id, tenant_id: $tenant_id})
MATCH (b:CanonicalConcept {id: $target_id, tenant_id: $tenant_id})
MERGE (a)-[r:%s {segment_index: $segment_index, producer: $producer}]->(b)
ON CREATE SET r.confidence = $confidence, r.created_at = $now
`, relType), map[string]any{
			"source_id":     rel.SourceID.String(),
			"target_id":     rel.TargetID.String(),
			"tenant_id":     rel.TenantID.String(),
			"segment_index": rel.SegmentIndex,
			"producer":      rel.Producer,
			"confidence":    rel.Confidence,
			"now":           now,
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: create relation: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *neo4jStore) CanonicalCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:CanonicalConcept {tenant_id: $tenant_id})
RETURN count(c) AS n
`, map[string]any{"tenant_id": tenantID.String()})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := rec.Get("n")
		n, _ := v.(int64)
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: canonical count: %v", ErrUnavailable, err)
	}
	return out.(int64), nil
}

func (s *neo4jStore) RelationsBetween(ctx context.Context, tenantID uuid.UUID, sourceID uuid.UUID, targetID uuid.UUID) ([]types.Relation, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:CanonicalConcept {id: $source_id, tenant_id: $tenant_id})-[r]->(b:CanonicalConcept {id: $target_id, tenant_id: $tenant_id})
RETURN type(r) AS type, r.confidence AS confidence, r.segment_index AS segment_index, r.producer AS producer
`, map[string]any{
			"source_id": sourceID.String(),
			"target_id": targetID.String(),
			"tenant_id": tenantID.String(),
		})
		if err != nil {
			return nil, err
		}
		var rels []types.Relation
		for res.Next(ctx) {
			rec := res.Record()
			rel := types.Relation{TenantID: tenantID, SourceID: sourceID, TargetID: targetID}
			if v, ok := rec.Get("type"); ok {
				rel.Type, _ = v.(string)
			}
			if v, ok := rec.Get("confidence"); ok {
				rel.Confidence, _ = v.(float64)
			}
			if v, ok := rec.Get("segment_index"); ok {
				if n, ok := v.(int64); ok {
					rel.SegmentIndex = int(n)
				}
			}
			if v, ok := rec.Get("producer"); ok {
				rel.Producer, _ = v.(string)
			}
			rels = append(rels, rel)
		}
		return rels, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: relations between: %v", ErrUnavailable, err)
	}
	return out.([]types.Relation), nil
}

func toAnySlice(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
