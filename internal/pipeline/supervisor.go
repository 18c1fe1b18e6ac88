package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tessella/tessella-backend/internal/budget"
	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/extraction"
	"github.com/tessella/tessella-backend/internal/gate"
	"github.com/tessella/tessella-backend/internal/mining"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/scoring"
)

// Request is one document handed to the supervisor.
type Request struct {
	RunID            uuid.UUID
	TenantID         uuid.UUID
	DocumentID       uuid.UUID
	Text             string
	HasVisualContent bool
}

// Report is the terminal accounting for one run. Degraded lists the stages
// that fell back or were skipped, for operator visibility.
type Report struct {
	Counts   types.RunCounts
	Tier     string
	Degraded []string
}

// Reporter receives state transitions while a run executes. The jobs
// runtime implements it to persist progress on the DocumentRun row.
type Reporter interface {
	Progress(state string, percent int, message string)
}

type nopReporter struct{}

func (nopReporter) Progress(string, int, string) {}

// Supervisor drives one document through the processing states in order:
// segmentation, extraction, mining, gate check, promotion. One supervisor
// instance is stateless across runs; each run executes sequentially inside
// one worker slot.
//
// Optional stages fail open and mark the run degraded; mandatory stages
// (budget reservation, promotion, relation persistence) fail the run after
// bounded retries. Already-persisted promotions survive a later failure.
type Supervisor struct {
	router       *budget.Router
	store        budget.Store
	reservations repos.BudgetReservationRepo // audit rows, nil disables
	extractor    extraction.Extractor        // LLM-backed, nil when not configured
	fallback     *extraction.FallbackExtractor
	miner        *mining.Miner
	cascade      *scoring.Cascade
	gk           *gate.Gatekeeper
	log          *logger.Logger

	retries  int
	timeouts map[string]time.Duration
}

func NewSupervisor(
	router *budget.Router,
	store budget.Store,
	reservations repos.BudgetReservationRepo,
	extractor extraction.Extractor,
	fallback *extraction.FallbackExtractor,
	miner *mining.Miner,
	cascade *scoring.Cascade,
	gk *gate.Gatekeeper,
	baseLog *logger.Logger,
) *Supervisor {
	return &Supervisor{
		router:       router,
		store:        store,
		reservations: reservations,
		extractor:    extractor,
		fallback:     fallback,
		miner:        miner,
		cascade:      cascade,
		gk:           gk,
		log:          baseLog.With("component", "Supervisor"),
		retries:      envutil.Int("PIPELINE_STATE_RETRIES", 2),
		timeouts: map[string]time.Duration{
			types.StateSegmentation: envutil.Duration("PIPELINE_TIMEOUT_SEGMENTATION", 30*time.Second),
			types.StateExtraction:   envutil.Duration("PIPELINE_TIMEOUT_EXTRACTION", 2*time.Minute),
			types.StateMining:       envutil.Duration("PIPELINE_TIMEOUT_MINING", 30*time.Second),
			types.StateGateCheck:    envutil.Duration("PIPELINE_TIMEOUT_GATE_CHECK", 2*time.Minute),
			types.StatePromotion:    envutil.Duration("PIPELINE_TIMEOUT_PROMOTION", 2*time.Minute),
		},
	}
}

// Run executes the full state sequence. The returned error is non-nil only
// for terminal failures; the report is valid in both cases and carries
// whatever was persisted before the failure.
func (s *Supervisor) Run(dbc dbctx.Context, req Request, reporter Reporter) (*Report, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}
	report := &Report{Tier: types.TierNoLLM}
	log := s.log.With("run_id", req.RunID, "tenant_id", req.TenantID)
	tracer := otel.Tracer("pipeline")

	ctx, span := tracer.Start(dbc.Ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", req.RunID.String()),
	))
	defer span.End()
	dbc = dbctx.Context{Ctx: ctx, Tx: dbc.Tx}

	// SEGMENTATION
	reporter.Progress(types.StateSegmentation, 10, "segmenting document")
	var segments []types.Segment
	err := s.inState(ctx, tracer, types.StateSegmentation, func(context.Context) error {
		segments = extraction.SegmentDocument(req.Text)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("segmentation: %w", err)
	}
	if len(segments) == 0 {
		reporter.Progress(types.StateDone, 100, "empty document")
		return report, nil
	}

	// EXTRACTION, budget gated
	reporter.Progress(types.StateExtraction, 25, "extracting candidates")
	var candidates []types.CandidateConcept
	err = s.inState(ctx, tracer, types.StateExtraction, func(sctx context.Context) error {
		sdbc := dbctx.Context{Ctx: sctx, Tx: dbc.Tx}
		result, tier, degraded, err := s.extract(sdbc, req, segments, log)
		if err != nil {
			return err
		}
		candidates = result.Candidates
		report.Tier = tier
		if degraded {
			report.Degraded = append(report.Degraded, types.StateExtraction)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("extraction: %w", err)
	}
	if len(candidates) == 0 {
		reporter.Progress(types.StateDone, 100, "no candidates extracted")
		return report, nil
	}

	// MINING, deterministic
	reporter.Progress(types.StateMining, 45, "mining relation candidates")
	var relations []types.RelationCandidate
	err = s.inState(ctx, tracer, types.StateMining, func(context.Context) error {
		relations = s.miner.Mine(candidates)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("mining: %w", err)
	}

	// GATE_CHECK: scoring cascade. Scorer outages degrade inside the
	// cascade; only a state timeout can fail this stage.
	reporter.Progress(types.StateGateCheck, 60, "scoring candidates")
	var adjusted []scoring.Adjusted
	err = s.inState(ctx, tracer, types.StateGateCheck, func(sctx context.Context) error {
		adjusted = s.cascade.Apply(sctx, segments, candidates)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("gate check: %w", err)
	}

	// PROMOTION, mandatory: promote first, then persist relations against
	// the promoted-name map. Never rolls back prior promotions.
	reporter.Progress(types.StatePromotion, 80, "promoting concepts")
	err = s.inState(ctx, tracer, types.StatePromotion, func(sctx context.Context) error {
		sdbc := dbctx.Context{Ctx: sctx, Tx: dbc.Tx}
		// The outcome is threaded through each retry so a failed attempt
		// resumes after its last completed candidate instead of re-promoting
		// the whole batch.
		var out *gate.Outcome
		if err := s.withRetries(sctx, log, "promote", func() error {
			var perr error
			out, perr = s.gk.Promote(sdbc, req.TenantID, req.RunID, adjusted, out)
			return perr
		}); err != nil {
			return err
		}
		report.Counts.ConceptsPromoted = out.PromotedCount
		report.Counts.ConceptsRejected = out.RejectedCount
		report.Counts.ConceptsSkipped = out.SkippedCount

		return s.withRetries(sctx, log, "persist relations", func() error {
			persisted, skipped, perr := s.gk.PersistRelations(sctx, req.TenantID, out, relations)
			// Counts reflect whatever the successful attempt wrote.
			report.Counts.RelationsPersisted = persisted
			report.Counts.RelationsSkipped = skipped
			return perr
		})
	})
	if err != nil {
		return report, fmt.Errorf("promotion: %w", err)
	}

	reporter.Progress(types.StateDone, 100, "run complete")
	log.Info("document run complete",
		"tier", report.Tier,
		"promoted", report.Counts.ConceptsPromoted,
		"rejected", report.Counts.ConceptsRejected,
		"relations", report.Counts.RelationsPersisted,
	)
	return report, nil
}

// extract reserves a tier and runs the matching extractor. Transient LLM
// failures retry within budget, then the reservation is refunded and the
// run degrades to the free deterministic extractor.
func (s *Supervisor) extract(dbc dbctx.Context, req Request, segments []types.Segment, log *logger.Logger) (*extraction.Result, string, bool, error) {
	ctx := dbc.Ctx
	required := extraction.RequiredTier(segments, req.HasVisualContent)

	var route budget.Route
	err := s.withRetries(ctx, log, "budget route", func() error {
		var rerr error
		route, rerr = s.router.Route(ctx, req.TenantID, required)
		return rerr
	})
	if err != nil {
		// Budget reservation is mandatory; an unreachable store fails the run.
		return nil, "", false, err
	}
	if route.ReservationID != uuid.Nil && s.reservations != nil {
		if aerr := s.reservations.Record(dbc, &types.BudgetReservation{
			ID:       route.ReservationID,
			TenantID: req.TenantID,
			Tier:     route.Tier,
			Cost:     1,
		}); aerr != nil {
			// Audit only; the redis counter stays authoritative.
			log.Warn("reservation audit write failed", "reservation_id", route.ReservationID, "error", aerr)
		}
	}

	if route.Tier == types.TierNoLLM || s.extractor == nil {
		result, err := s.fallback.Extract(ctx, segments, types.TierNoLLM)
		if err != nil {
			return nil, "", false, err
		}
		degraded := route.Degraded || (s.extractor == nil && required != types.TierNoLLM)
		return result, types.TierNoLLM, degraded, nil
	}

	var result *extraction.Result
	err = s.withRetries(ctx, log, "llm extraction", func() error {
		var xerr error
		result, xerr = s.extractor.Extract(ctx, segments, route.Tier)
		return xerr
	})
	if err == nil {
		return result, result.ConsumedTier, route.Degraded, nil
	}

	if route.ReservationID != uuid.Nil {
		if rerr := s.store.Refund(ctx, route.ReservationID); rerr != nil {
			log.Warn("refund failed", "reservation_id", route.ReservationID, "error", rerr)
		} else if s.reservations != nil {
			if aerr := s.reservations.MarkRefunded(dbc, route.ReservationID); aerr != nil {
				log.Warn("reservation audit refund failed", "reservation_id", route.ReservationID, "error", aerr)
			}
		}
	}
	if !errors.Is(err, extraction.ErrTransient) && ctx.Err() != nil {
		return nil, "", false, err
	}
	log.Warn("llm extraction degraded to deterministic tier", "error", err)
	result, ferr := s.fallback.Extract(ctx, segments, types.TierNoLLM)
	if ferr != nil {
		return nil, "", false, ferr
	}
	return result, types.TierNoLLM, true, nil
}

// inState wraps one FSM state with its timeout and a span. The state's
// function receives the bounded context and must pass it to any blocking
// call so cancellation propagates.
func (s *Supervisor) inState(ctx context.Context, tracer trace.Tracer, state string, fn func(context.Context) error) error {
	timeout, ok := s.timeouts[state]
	if !ok {
		timeout = time.Minute
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sctx, span := tracer.Start(sctx, "pipeline."+state)
	defer span.End()

	if err := fn(sctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("state %s timed out after %s: %w", state, timeout, err)
		}
		return err
	}
	return nil
}

func (s *Supervisor) withRetries(ctx context.Context, log *logger.Logger, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < s.retries {
			log.Warn("retrying after failure", "op", op, "attempt", attempt+1, "error", err)
		}
	}
	return err
}
