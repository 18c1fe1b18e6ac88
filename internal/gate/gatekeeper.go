package gate

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tessella/tessella-backend/internal/canonical"
	"github.com/tessella/tessella-backend/internal/data/graph"
	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/scoring"
)

// Rejection reasons recorded on ProtoConcept rows.
const (
	reasonBelowThreshold = "below_threshold"
	reasonEmptyName      = "empty_name"
)

// Resolver is the canonicalization boundary the gatekeeper depends on.
type Resolver interface {
	Resolve(dbc dbctx.Context, in canonical.Input) (*canonical.Resolution, error)
}

// Outcome summarizes one gate pass over a document's candidates. Promoted
// maps each promoted candidate's normalized surface name to its canonical
// id, which relation persistence consumes afterwards.
//
// Outcome doubles as the resume point for a retried pass: it remembers which
// candidate indexes already completed and which proto rows were created, so
// re-entering Promote after a mid-batch store failure never duplicates
// staging rows or provenance links.
type Outcome struct {
	Promoted map[string]uuid.UUID

	PromotedCount int
	RejectedCount int
	SkippedCount  int

	done     map[int]bool
	batchIDs map[string]uuid.UUID
	protoIDs map[int]uuid.UUID
}

func newOutcome() *Outcome {
	return &Outcome{
		Promoted: map[string]uuid.UUID{},
		done:     map[int]bool{},
		batchIDs: map[string]uuid.UUID{},
		protoIDs: map[int]uuid.UUID{},
	}
}

// Gatekeeper applies the gating profile, canonicalizes surviving candidates,
// persists ProtoConcept staging rows and promotes winners into the graph.
// Promotion is mandatory: any store failure aborts the pass.
type Gatekeeper struct {
	resolver Resolver
	store    graph.Store
	protos   repos.ProtoConceptRepo
	profile  Profile
	log      *logger.Logger
}

func NewGatekeeper(resolver Resolver, store graph.Store, protos repos.ProtoConceptRepo, profile Profile, baseLog *logger.Logger) *Gatekeeper {
	return &Gatekeeper{
		resolver: resolver,
		store:    store,
		protos:   protos,
		profile:  profile,
		log:      baseLog.With("component", "Gatekeeper", "profile", profile.Name),
	}
}

// Promote walks the adjusted candidates in order. Every candidate leaves one
// append-only ProtoConcept row recording the final outcome; promoted ones
// additionally merge into the graph and gain a provenance link.
//
// A per-batch cache short-circuits repeated upserts of the same canonical
// name within one document; the store-level merge stays authoritative for
// races across documents.
//
// resume carries the progress of a previous attempt over the same adjusted
// slice; pass nil for a fresh pass. On error the partial outcome is
// returned so the caller can hand it back and resume after the failure
// point instead of restarting the batch.
func (g *Gatekeeper) Promote(dbc dbctx.Context, tenantID uuid.UUID, runID uuid.UUID, adjusted []scoring.Adjusted, resume *Outcome) (*Outcome, error) {
	out := resume
	if out == nil {
		out = newOutcome()
	}

	for i, adj := range adjusted {
		if out.done[i] {
			continue
		}

		key := normalization.Key(adj.Candidate.Name)
		if key == "" {
			out.SkippedCount++
			out.done[i] = true
			continue
		}

		res, err := g.resolver.Resolve(dbc, canonical.Input{
			TenantID:             tenantID,
			DocumentRunID:        runID,
			RawName:              adj.Candidate.Name,
			TypeHint:             adj.Candidate.TypeHint,
			ExtractionConfidence: adj.Confidence,
		})
		if err != nil {
			g.log.Warn("canonicalization failed, rejecting candidate", "raw_name", adj.Candidate.Name, "error", err)
			if _, perr := g.rejectRow(dbc, tenantID, runID, adj, "", reasonEmptyName); perr != nil {
				return out, perr
			}
			out.RejectedCount++
			out.done[i] = true
			continue
		}

		threshold := g.profile.PromoteThreshold
		if res.RequiresValidation {
			threshold += g.profile.ValidationMargin
		}
		if adj.Confidence < threshold {
			if _, err := g.rejectRow(dbc, tenantID, runID, adj, res.CanonicalName, reasonBelowThreshold); err != nil {
				return out, err
			}
			out.RejectedCount++
			out.done[i] = true
			continue
		}

		canonicalKey := normalization.Key(res.CanonicalName)
		canonicalID, cached := out.batchIDs[canonicalKey]
		if !cached {
			id, created, err := g.store.UpsertCanonical(dbc.Ctx, &types.CanonicalConcept{
				TenantID:      tenantID,
				CanonicalName: res.CanonicalName,
				Type:          res.Type,
				Quality:       adj.Confidence,
				SurfaceForms:  []string{adj.Candidate.Name},
				Cataloged:     res.IsCataloged,
			})
			if err != nil {
				return out, fmt.Errorf("gate: upsert canonical %q: %w", res.CanonicalName, err)
			}
			canonicalID = id
			out.batchIDs[canonicalKey] = id
			if created {
				g.log.Info("canonical concept created", "canonical_name", res.CanonicalName)
			}
		}

		protoID, haveProto := out.protoIDs[i]
		if !haveProto {
			row := &types.ProtoConcept{
				TenantID:           tenantID,
				DocumentRunID:      runID,
				SegmentIndex:       adj.Candidate.SegmentIndex,
				RawName:            adj.Candidate.Name,
				NormalizedKey:      key,
				Type:               res.Type,
				Confidence:         adj.Candidate.Confidence,
				AdjustedConfidence: adj.Confidence,
				Role:               adj.Role,
				Promoted:           true,
				CanonicalName:      res.CanonicalName,
				CanonicalID:        &canonicalID,
			}
			rows, err := g.protos.Create(dbc, []*types.ProtoConcept{row})
			if err != nil {
				return out, fmt.Errorf("gate: create proto concept: %w", err)
			}
			protoID = rows[0].ID
			out.protoIDs[i] = protoID
		}
		if err := g.store.LinkProtoToCanonical(dbc.Ctx, tenantID, protoID, canonicalID); err != nil {
			return out, fmt.Errorf("gate: link provenance: %w", err)
		}

		out.Promoted[key] = canonicalID
		out.PromotedCount++
		out.done[i] = true
	}
	return out, nil
}

func (g *Gatekeeper) rejectRow(dbc dbctx.Context, tenantID uuid.UUID, runID uuid.UUID, adj scoring.Adjusted, canonicalName string, reason string) ([]*types.ProtoConcept, error) {
	row := &types.ProtoConcept{
		TenantID:           tenantID,
		DocumentRunID:      runID,
		SegmentIndex:       adj.Candidate.SegmentIndex,
		RawName:            adj.Candidate.Name,
		NormalizedKey:      normalization.Key(adj.Candidate.Name),
		Type:               adj.Candidate.TypeHint,
		Confidence:         adj.Candidate.Confidence,
		AdjustedConfidence: adj.Confidence,
		Role:               adj.Role,
		Promoted:           false,
		RejectionReason:    reason,
		CanonicalName:      canonicalName,
	}
	rows, err := g.protos.Create(dbc, []*types.ProtoConcept{row})
	if err != nil {
		return nil, fmt.Errorf("gate: create rejected proto concept: %w", err)
	}
	return rows, nil
}
