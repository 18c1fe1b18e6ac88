package gate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
)

const relationProducer = "pattern_miner"

// PersistRelations writes every relation candidate whose endpoints were
// both promoted in this pass. Candidates touching a rejected or unknown
// name are counted as skipped, never treated as an error. Runs strictly
// after Promote so the surface-name map is complete.
func (g *Gatekeeper) PersistRelations(ctx context.Context, tenantID uuid.UUID, outcome *Outcome, candidates []types.RelationCandidate) (persisted int, skipped int, err error) {
	for _, rc := range candidates {
		if rc.Confidence < g.profile.MinRelationConfidence {
			skipped++
			continue
		}
		sourceID, ok := outcome.Promoted[normalization.Key(rc.SourceName)]
		if !ok {
			skipped++
			continue
		}
		targetID, ok := outcome.Promoted[normalization.Key(rc.TargetName)]
		if !ok {
			skipped++
			continue
		}
		if sourceID == targetID {
			skipped++
			continue
		}
		rel := types.Relation{
			TenantID:     tenantID,
			SourceID:     sourceID,
			TargetID:     targetID,
			Type:         rc.Type,
			Confidence:   rc.Confidence,
			SegmentIndex: rc.SegmentIndex,
			Producer:     relationProducer,
		}
		if err := g.store.CreateRelation(ctx, rel); err != nil {
			return persisted, skipped, fmt.Errorf("gate: create relation %s->%s: %w", rc.SourceName, rc.TargetName, err)
		}
		persisted++
	}
	g.log.Info("relation persistence done", "persisted", persisted, "skipped", skipped)
	return persisted, skipped, nil
}
