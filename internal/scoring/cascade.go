package scoring

import (
	"context"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/scoring/contextual"
)

// CentralityScorer produces one structural score in [0, 1] per normalized
// candidate name from the document alone.
type CentralityScorer interface {
	Score(segments []types.Segment, candidates []types.CandidateConcept) map[string]float64
}

// RoleScorer classifies candidates into vendor roles. Implementations may
// fail when their backend is down; the cascade treats that as skippable.
type RoleScorer interface {
	Classify(ctx context.Context, candidates []types.CandidateConcept) (map[string]contextual.RoleScore, error)
}

// Adjusted is one candidate after the filtering cascade.
type Adjusted struct {
	Candidate  types.CandidateConcept
	Centrality float64
	Role       string
	Confidence float64
}

// Cascade applies structural evidence first, then the asymmetric role
// adjustment. A missing primary is rediscovered in later documents; a
// promoted competitor pollutes the graph, hence penalty > boost is never
// required but penalty applies unconditionally on COMPETITOR.
type Cascade struct {
	centrality CentralityScorer
	roles      RoleScorer
	log        *logger.Logger

	centralityWeight float64
	centralityPivot  float64
	primaryBoost     float64
	competitorCut    float64
}

// NewCascade accepts nil scorers; either one absent means its adjustment is
// skipped and the remaining signal (or the raw confidence) passes through.
func NewCascade(centrality CentralityScorer, roles RoleScorer, baseLog *logger.Logger) *Cascade {
	return &Cascade{
		centrality:       centrality,
		roles:            roles,
		log:              baseLog.With("component", "FilteringCascade"),
		centralityWeight: envutil.Float("SCORING_CENTRALITY_WEIGHT", 0.20),
		centralityPivot:  envutil.Float("SCORING_CENTRALITY_PIVOT", 0.50),
		primaryBoost:     envutil.Float("SCORING_PRIMARY_BOOST", 0.12),
		competitorCut:    envutil.Float("SCORING_COMPETITOR_PENALTY", 0.15),
	}
}

// Apply never fails the run: a role scorer error downgrades to a skip with
// a warning, and absent scorers leave extraction confidence untouched.
func (c *Cascade) Apply(ctx context.Context, segments []types.Segment, candidates []types.CandidateConcept) []Adjusted {
	var centralityScores map[string]float64
	if c.centrality != nil {
		centralityScores = c.centrality.Score(segments, candidates)
	}

	var roleScores map[string]contextual.RoleScore
	if c.roles != nil {
		scores, err := c.roles.Classify(ctx, candidates)
		if err != nil {
			c.log.Warn("role scoring skipped", "error", err)
		} else {
			roleScores = scores
		}
	}

	out := make([]Adjusted, 0, len(candidates))
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		adj := Adjusted{
			Candidate:  cand,
			Role:       types.RoleSecondary,
			Confidence: cand.Confidence,
		}

		if centralityScores != nil {
			if score, ok := centralityScores[key]; ok {
				adj.Centrality = score
				adj.Confidence += c.centralityWeight * (score - c.centralityPivot)
			}
		}
		if roleScores != nil {
			if rs, ok := roleScores[key]; ok {
				adj.Role = rs.Role
				switch rs.Role {
				case types.RolePrimary:
					adj.Confidence += c.primaryBoost
				case types.RoleCompetitor:
					adj.Confidence -= c.competitorCut
				}
			}
		}

		if adj.Confidence > 1 {
			adj.Confidence = 1
		}
		if adj.Confidence < 0 {
			adj.Confidence = 0
		}
		out = append(out, adj)
	}
	return out
}
