package canonical

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/data/repos"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/ontology"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Input is one raw extracted name to canonicalize.
type Input struct {
	TenantID             uuid.UUID
	DocumentRunID        uuid.UUID
	RawName              string
	TypeHint             string
	ExtractionConfidence float64
}

// Resolution is the canonical identity decided for one raw name. EntityID is
// uuid.Nil when the name did not resolve against the catalog at all.
type Resolution struct {
	CanonicalName      string
	Type               string
	Strategy           string
	Confidence         float64
	IsCataloged        bool
	RequiresValidation bool
	EntityID           uuid.UUID
}

// Engine runs the canonicalization cascade: exact ontology lookup first,
// structural matching against catalog entities second, heuristic title-case
// fallback last. Every Resolve call appends one decision trace row.
type Engine struct {
	catalog ontology.Catalog
	traces  repos.DecisionTraceRepo
	log     *logger.Logger

	minStructuralScore float64
	learnThreshold     float64
	validationFloor    float64
	entityRefresh      time.Duration

	mu            sync.Mutex
	entities      []*types.OntologyEntity
	entitiesStamp time.Time
}

func NewEngine(cat ontology.Catalog, traces repos.DecisionTraceRepo, baseLog *logger.Logger) *Engine {
	return &Engine{
		catalog:            cat,
		traces:             traces,
		log:                baseLog.With("component", "CanonicalEngine"),
		minStructuralScore: envutil.Float("CANONICAL_MIN_STRUCTURAL_SCORE", 0.72),
		learnThreshold:     envutil.Float("CANONICAL_ALIAS_LEARN_THRESHOLD", 0.90),
		validationFloor:    envutil.Float("CANONICAL_VALIDATION_FLOOR", 0.80),
		entityRefresh:      envutil.Duration("CANONICAL_ENTITY_REFRESH", 5*time.Minute),
	}
}

// Resolve decides a canonical identity for one raw name. It never fails the
// name itself: when the catalog backend is down the cascade degrades to the
// structural snapshot and then to the heuristic fallback, so the only error
// path is an empty raw name.
func (e *Engine) Resolve(dbc dbctx.Context, in Input) (*Resolution, error) {
	started := time.Now()
	key := normalization.Key(in.RawName)
	if key == "" {
		return nil, errors.New("canonical: empty raw name")
	}

	meta := map[string]any{}
	res := e.lookup(dbc, key, meta)
	if res == nil {
		res = e.structural(dbc, in, key, meta)
	}
	if res == nil {
		res = e.heuristic(in, meta)
	}

	e.writeTrace(dbc, in, res, meta, time.Since(started))
	return res, nil
}

func (e *Engine) lookup(dbc dbctx.Context, key string, meta map[string]any) *Resolution {
	match, err := e.catalog.LookupAlias(dbc.Ctx, key)
	if err != nil {
		// Degrade to the later strategies; record the outage in the trace.
		e.log.Warn("ontology lookup degraded", "error", err)
		meta["catalog_error"] = err.Error()
		return nil
	}
	if match == nil {
		return nil
	}
	return &Resolution{
		CanonicalName:      match.CanonicalName,
		Type:               match.Type,
		Strategy:           types.StrategyOntologyLookup,
		Confidence:         1.0,
		IsCataloged:        true,
		RequiresValidation: false,
		EntityID:           match.EntityID,
	}
}

func (e *Engine) structural(dbc dbctx.Context, in Input, key string, meta map[string]any) *Resolution {
	entities := e.entitySnapshot(dbc)
	if len(entities) == 0 {
		return nil
	}

	var best *types.OntologyEntity
	bestResult := fuzzyResult{}
	for _, ent := range entities {
		result, ok := matchStructural(key, ent.CanonicalName)
		if !ok || result.score <= bestResult.score {
			continue
		}
		best = ent
		bestResult = result
	}
	meta["entities_considered"] = len(entities)
	if best == nil || bestResult.score < e.minStructuralScore {
		return nil
	}
	meta["match_method"] = bestResult.method
	meta["match_score"] = bestResult.score

	if bestResult.score >= e.learnThreshold {
		if err := e.catalog.LearnAlias(dbc.Ctx, best.ID, key, bestResult.score); err != nil {
			e.log.Warn("alias learn failed", "alias", key, "entity_id", best.ID, "error", err)
		} else {
			meta["alias_learned"] = true
		}
	}

	return &Resolution{
		CanonicalName:      best.CanonicalName,
		Type:               pickType(best.Type, in.TypeHint),
		Strategy:           types.StrategyStructuralMatch,
		Confidence:         bestResult.score,
		IsCataloged:        false,
		RequiresValidation: bestResult.score < e.validationFloor,
		EntityID:           best.ID,
	}
}

// heuristic is the terminal strategy: keep the name as-is in title case,
// carrying the extraction confidence through, flagged for validation.
func (e *Engine) heuristic(in Input, meta map[string]any) *Resolution {
	conf := in.ExtractionConfidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	meta["fallback"] = true
	return &Resolution{
		CanonicalName:      normalization.TitleCase(in.RawName),
		Type:               in.TypeHint,
		Strategy:           types.StrategyHeuristicRules,
		Confidence:         conf,
		IsCataloged:        false,
		RequiresValidation: true,
		EntityID:           uuid.Nil,
	}
}

func (e *Engine) entitySnapshot(dbc dbctx.Context) []*types.OntologyEntity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.entities != nil && time.Since(e.entitiesStamp) < e.entityRefresh {
		return e.entities
	}
	loaded, err := e.catalog.Entities(dbc.Ctx)
	if err != nil {
		// Keep serving the stale snapshot through an outage.
		e.log.Warn("entity snapshot refresh failed", "error", err)
		return e.entities
	}
	e.entities = loaded
	e.entitiesStamp = time.Now()
	return e.entities
}

func (e *Engine) writeTrace(dbc dbctx.Context, in Input, res *Resolution, meta map[string]any, took time.Duration) {
	var metaJSON datatypes.JSON
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			metaJSON = datatypes.JSON(raw)
		}
	}
	row := &types.DecisionTrace{
		TenantID:           in.TenantID,
		DocumentRunID:      in.DocumentRunID,
		RawName:            in.RawName,
		Strategy:           res.Strategy,
		CanonicalName:      res.CanonicalName,
		Confidence:         res.Confidence,
		IsCataloged:        res.IsCataloged,
		RequiresValidation: res.RequiresValidation,
		DurationMS:         took.Milliseconds(),
		Metadata:           metaJSON,
	}
	if _, err := e.traces.Create(dbc, []*types.DecisionTrace{row}); err != nil {
		e.log.Error("decision trace write failed", "raw_name", in.RawName, "error", err)
	}
}

func pickType(entityType string, hint string) string {
	if entityType != "" {
		return entityType
	}
	return hint
}
