package concepts

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// ProtoConceptRepo is append-only; there are deliberately no update methods.
type ProtoConceptRepo interface {
	Create(dbc dbctx.Context, rows []*types.ProtoConcept) ([]*types.ProtoConcept, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ProtoConcept, error)
	ListByDocumentRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.ProtoConcept, error)
	ListByCanonicalName(dbc dbctx.Context, tenantID uuid.UUID, canonicalName string, limit int) ([]*types.ProtoConcept, error)
}

type protoConceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProtoConceptRepo(db *gorm.DB, baseLog *logger.Logger) ProtoConceptRepo {
	return &protoConceptRepo{db: db, log: baseLog.With("repo", "ProtoConceptRepo")}
}

func (r *protoConceptRepo) Create(dbc dbctx.Context, rows []*types.ProtoConcept) ([]*types.ProtoConcept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.ProtoConcept{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *protoConceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ProtoConcept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ProtoConcept
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *protoConceptRepo) ListByDocumentRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.ProtoConcept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ProtoConcept
	if runID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("document_run_id = ?", runID).
		Order("segment_index ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *protoConceptRepo) ListByCanonicalName(dbc dbctx.Context, tenantID uuid.UUID, canonicalName string, limit int) ([]*types.ProtoConcept, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ProtoConcept
	if tenantID == uuid.Nil || canonicalName == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 200
	}
	if err := t.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND canonical_name = ?", tenantID, canonicalName).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
