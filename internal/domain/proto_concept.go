package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role labels assigned by the contextual scorer.
const (
	RolePrimary    = "PRIMARY"
	RoleCompetitor = "COMPETITOR"
	RoleSecondary  = "SECONDARY"
)

// ProtoConcept is one extraction instance of a concept for one document run.
// Rows are append-only: the gatekeeper writes the final promote/reject
// outcome at creation time and nothing mutates them afterwards.
type ProtoConcept struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DocumentRunID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"document_run_id"`
	SegmentIndex       int        `gorm:"column:segment_index;not null;default:0" json:"segment_index"`
	RawName            string     `gorm:"column:raw_name;not null" json:"raw_name"`
	NormalizedKey      string     `gorm:"column:normalized_key;not null;index" json:"normalized_key"`
	Type               string     `gorm:"column:type" json:"type,omitempty"`
	Confidence         float64    `gorm:"column:confidence;not null;default:0" json:"confidence"`
	AdjustedConfidence float64    `gorm:"column:adjusted_confidence;not null;default:0" json:"adjusted_confidence"`
	Role               string     `gorm:"column:role" json:"role,omitempty"`
	Promoted           bool       `gorm:"column:promoted;not null;default:false;index" json:"promoted"`
	RejectionReason    string     `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CanonicalName      string     `gorm:"column:canonical_name;index" json:"canonical_name,omitempty"`
	CanonicalID        *uuid.UUID `gorm:"type:uuid;column:canonical_id;index" json:"canonical_id,omitempty"`
	CreatedAt          time.Time  `gorm:"not null;default:now();index" json:"created_at"`
}

func (ProtoConcept) TableName() string { return "proto_concept" }
