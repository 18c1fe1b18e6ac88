package concepts

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type DecisionTraceRepo interface {
	Create(dbc dbctx.Context, rows []*types.DecisionTrace) ([]*types.DecisionTrace, error)
	ListByDocumentRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.DecisionTrace, error)
	ListByRawName(dbc dbctx.Context, tenantID uuid.UUID, rawName string, limit int) ([]*types.DecisionTrace, error)
}

type decisionTraceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDecisionTraceRepo(db *gorm.DB, baseLog *logger.Logger) DecisionTraceRepo {
	return &decisionTraceRepo{db: db, log: baseLog.With("repo", "DecisionTraceRepo")}
}

func (r *decisionTraceRepo) Create(dbc dbctx.Context, rows []*types.DecisionTrace) ([]*types.DecisionTrace, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.DecisionTrace{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *decisionTraceRepo) ListByDocumentRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.DecisionTrace, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DecisionTrace
	if runID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("document_run_id = ?", runID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *decisionTraceRepo) ListByRawName(dbc dbctx.Context, tenantID uuid.UUID, rawName string, limit int) ([]*types.DecisionTrace, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DecisionTrace
	if tenantID == uuid.Nil || rawName == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 200
	}
	if limit > 2000 {
		limit = 2000
	}
	if err := t.WithContext(dbc.Ctx).
		Where("tenant_id = ? AND raw_name = ?", tenantID, rawName).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
