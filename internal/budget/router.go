package budget

import (
	"context"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// Route is the outcome of tier selection for one document.
type Route struct {
	Tier          string
	ReservationID uuid.UUID
	Degraded      bool // true when quota forced a cheaper tier than required
}

// Router picks the cheapest tier the content requires, degrading downward
// when the tenant's quota for a tier is exhausted. NO_LLM is always
// available and needs no reservation.
type Router struct {
	store Store
	log   *logger.Logger
}

func NewRouter(store Store, baseLog *logger.Logger) *Router {
	return &Router{store: store, log: baseLog.With("component", "BudgetRouter")}
}

var tiersDescending = []string{types.TierVision, types.TierBig, types.TierSmall}

// Route reserves the cheapest viable tier at or below requiredTier. It only
// returns an error when the budget store itself is unreachable; exhausted
// quota degrades silently to NO_LLM.
func (r *Router) Route(ctx context.Context, tenantID uuid.UUID, requiredTier string) (Route, error) {
	required := types.TierRank(requiredTier)
	if required <= 0 {
		return Route{Tier: types.TierNoLLM}, nil
	}

	for _, tier := range tiersDescending {
		rank := types.TierRank(tier)
		if rank > required {
			continue
		}
		reservationID := uuid.New()
		ok, err := r.store.Reserve(ctx, tenantID, tier, reservationID)
		if err != nil {
			return Route{}, err
		}
		if ok {
			return Route{
				Tier:          tier,
				ReservationID: reservationID,
				Degraded:      rank < required,
			}, nil
		}
		r.log.Debug("tier exhausted, degrading",
			"tenant_id", tenantID,
			"tier", tier,
		)
	}

	return Route{Tier: types.TierNoLLM, Degraded: true}, nil
}
