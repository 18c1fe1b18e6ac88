package concepts

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

type BudgetReservationRepo interface {
	Record(dbc dbctx.Context, row *types.BudgetReservation) error
	MarkRefunded(dbc dbctx.Context, id uuid.UUID) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BudgetReservation, error)
}

type budgetReservationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBudgetReservationRepo(db *gorm.DB, baseLog *logger.Logger) BudgetReservationRepo {
	return &budgetReservationRepo{db: db, log: baseLog.With("repo", "BudgetReservationRepo")}
}

func (r *budgetReservationRepo) Record(dbc dbctx.Context, row *types.BudgetReservation) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	// Retried reservations re-record with the same id; idempotent insert.
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *budgetReservationRepo) MarkRefunded(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.BudgetReservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refunded":   true,
			"updated_at": time.Now(),
		}).Error
}

func (r *budgetReservationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BudgetReservation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.BudgetReservation
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
