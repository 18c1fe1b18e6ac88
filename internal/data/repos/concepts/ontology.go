package concepts

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type OntologyRepo interface {
	GetEntityByID(dbc dbctx.Context, id uuid.UUID) (*types.OntologyEntity, error)
	GetAliasByKey(dbc dbctx.Context, alias string) (*types.OntologyAlias, error)
	ListEntities(dbc dbctx.Context, limit int) ([]*types.OntologyEntity, error)

	CreateEntities(dbc dbctx.Context, rows []*types.OntologyEntity) ([]*types.OntologyEntity, error)
	// UpsertAlias is keyed by the normalized alias string; learned aliases
	// never overwrite curated ones.
	UpsertAlias(dbc dbctx.Context, row *types.OntologyAlias) error
}

type ontologyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOntologyRepo(db *gorm.DB, baseLog *logger.Logger) OntologyRepo {
	return &ontologyRepo{db: db, log: baseLog.With("repo", "OntologyRepo")}
}

func (r *ontologyRepo) GetEntityByID(dbc dbctx.Context, id uuid.UUID) (*types.OntologyEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.OntologyEntity
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ontologyRepo) GetAliasByKey(dbc dbctx.Context, alias string) (*types.OntologyAlias, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if alias == "" {
		return nil, nil
	}
	var row types.OntologyAlias
	err := t.WithContext(dbc.Ctx).Where("alias = ?", alias).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ontologyRepo) ListEntities(dbc dbctx.Context, limit int) ([]*types.OntologyEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 5000
	}
	var out []*types.OntologyEntity
	if err := t.WithContext(dbc.Ctx).
		Order("canonical_name ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ontologyRepo) CreateEntities(dbc dbctx.Context, rows []*types.OntologyEntity) ([]*types.OntologyEntity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.OntologyEntity{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ontologyRepo) UpsertAlias(dbc dbctx.Context, row *types.OntologyAlias) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.Alias == "" || row.EntityID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alias"}},
			DoNothing: true,
		}).
		Create(row).Error
}
