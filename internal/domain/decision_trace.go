package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Canonicalization strategies, in cascade order.
const (
	StrategyOntologyLookup  = "ONTOLOGY_LOOKUP"
	StrategyStructuralMatch = "STRUCTURAL_MATCH"
	StrategyHeuristicRules  = "HEURISTIC_RULES"
)

// DecisionTrace is the append-only audit record for one canonicalization
// decision. Never deleted; the rollback path replays traces when the
// ontology is corrected.
type DecisionTrace struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DocumentRunID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_run_id"`
	RawName            string         `gorm:"column:raw_name;not null;index" json:"raw_name"`
	Strategy           string         `gorm:"column:strategy;not null;index" json:"strategy"`
	CanonicalName      string         `gorm:"column:canonical_name;not null" json:"canonical_name"`
	Confidence         float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	IsCataloged        bool           `gorm:"column:is_cataloged;not null;default:false" json:"is_cataloged"`
	RequiresValidation bool           `gorm:"column:requires_validation;not null;default:false" json:"requires_validation"`
	DurationMS         int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	Metadata           datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (DecisionTrace) TableName() string { return "decision_trace" }
