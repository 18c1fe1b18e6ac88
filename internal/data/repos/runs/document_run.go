package runs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type DocumentRunRepo interface {
	Create(dbc dbctx.Context, rows []*types.DocumentRun) ([]*types.DocumentRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRun, error)
	ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.DocumentRun, error)

	// ClaimNextRunnable picks the oldest runnable row (queued, retryable
	// failed, or stale running) and flips it to running under SKIP LOCKED
	// so concurrent workers never double-claim.
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.DocumentRun, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
}

type documentRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRunRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRunRepo {
	return &documentRunRepo{db: db, log: baseLog.With("repo", "DocumentRunRepo")}
}

func (r *documentRunRepo) Create(dbc dbctx.Context, rows []*types.DocumentRun) ([]*types.DocumentRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.DocumentRun{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *documentRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DocumentRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.DocumentRun
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *documentRunRepo) ListByTenant(dbc dbctx.Context, tenantID uuid.UUID, limit int) ([]*types.DocumentRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.DocumentRun
	if tenantID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if err := t.WithContext(dbc.Ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.DocumentRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.DocumentRun
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var run types.DocumentRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.RunStatusQueued, types.RunStatusFailed, maxAttempts, retryCutoff, types.RunStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.DocumentRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":       types.RunStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *documentRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.DocumentRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *documentRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := t.WithContext(dbc.Ctx).
		Model(&types.DocumentRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return t.WithContext(dbc.Ctx).
		Model(&types.DocumentRun{}).
		Where("id = ? AND status = ?", id, types.RunStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
