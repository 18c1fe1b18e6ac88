package domain

import (
	"time"

	"github.com/google/uuid"
)

// OntologyEntity is a curated canonical identity. Rows are written by the
// external curation process, plus auto-learned aliases above the learning
// threshold.
type OntologyEntity struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CanonicalName string    `gorm:"column:canonical_name;not null;uniqueIndex" json:"canonical_name"`
	Type          string    `gorm:"column:type;index" json:"type,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (OntologyEntity) TableName() string { return "ontology_entity" }

type OntologyAlias struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index" json:"entity_id"`
	Alias      string    `gorm:"column:alias;not null;uniqueIndex" json:"alias"` // normalized lookup key
	Learned    bool      `gorm:"column:learned;not null;default:false" json:"learned"`
	Confidence float64   `gorm:"column:confidence;not null;default:1" json:"confidence"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (OntologyAlias) TableName() string { return "ontology_alias" }
