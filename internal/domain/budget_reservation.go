package domain

import (
	"time"

	"github.com/google/uuid"
)

// Extraction tiers ordered by cost.
const (
	TierNoLLM  = "NO_LLM"
	TierSmall  = "SMALL"
	TierBig    = "BIG"
	TierVision = "VISION"
)

// TierRank orders tiers by cost; unknown tiers rank below NO_LLM.
func TierRank(tier string) int {
	switch tier {
	case TierNoLLM:
		return 0
	case TierSmall:
		return 1
	case TierBig:
		return 2
	case TierVision:
		return 3
	default:
		return -1
	}
}

// BudgetReservation mirrors the redis-side reservation for audit. The
// authoritative counter and the refund idempotency marker live in redis;
// this row exists so operators can answer "what consumed the quota".
type BudgetReservation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"` // reservation id, caller-generated
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Tier      string    `gorm:"column:tier;not null;index" json:"tier"`
	Cost      int       `gorm:"column:cost;not null;default:1" json:"cost"`
	Refunded  bool      `gorm:"column:refunded;not null;default:false" json:"refunded"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (BudgetReservation) TableName() string { return "budget_reservation" }
