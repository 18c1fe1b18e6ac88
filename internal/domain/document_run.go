package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// FSM states for one document run. Terminal states are StateDone and
// StateFailed; everything else is a processing stage.
const (
	StateStart        = "start"
	StateSegmentation = "segmentation"
	StateExtraction   = "extraction"
	StateMining       = "mining"
	StateGateCheck    = "gate_check"
	StatePromotion    = "promotion"
	StateDone         = "done"
	StateFailed       = "failed"
)

type DocumentRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	DocumentID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"document_id"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	State       string         `gorm:"column:state;not null;index" json:"state"`
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	Reason      string         `gorm:"column:reason" json:"reason,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DocumentRun) TableName() string { return "document_run" }

// RunCounts is the terminal accounting stored in DocumentRun.Result.
type RunCounts struct {
	ConceptsPromoted   int `json:"concepts_promoted"`
	ConceptsRejected   int `json:"concepts_rejected"`
	ConceptsSkipped    int `json:"concepts_skipped"`
	RelationsPersisted int `json:"relations_persisted"`
	RelationsSkipped   int `json:"relations_skipped"`
}
