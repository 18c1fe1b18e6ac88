package concepts

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tessella/tessella-backend/internal/data/repos/testutil"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
)

func TestOntologyRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewOntologyRepo(db, testutil.Logger(t))

	suffix := uuid.New().String()[:8]
	entity := &types.OntologyEntity{
		ID:            uuid.New(),
		CanonicalName: "SAP S/4HANA Cloud " + suffix,
		Type:          "PRODUCT",
	}
	if _, err := repo.CreateEntities(dbc, []*types.OntologyEntity{entity}); err != nil {
		t.Fatalf("CreateEntities: %v", err)
	}

	got, err := repo.GetEntityByID(dbc, entity.ID)
	if err != nil || got == nil || got.CanonicalName != entity.CanonicalName {
		t.Fatalf("GetEntityByID: err=%v got=%v", err, got)
	}

	aliasKey := "s4hana " + suffix
	alias := &types.OntologyAlias{
		EntityID:   entity.ID,
		Alias:      aliasKey,
		Learned:    true,
		Confidence: 0.91,
	}
	if err := repo.UpsertAlias(dbc, alias); err != nil {
		t.Fatalf("UpsertAlias: %v", err)
	}

	// A second upsert for the same key must not clobber the existing row.
	dupe := &types.OntologyAlias{
		EntityID:   uuid.New(),
		Alias:      aliasKey,
		Learned:    false,
		Confidence: 0.50,
	}
	if err := repo.UpsertAlias(dbc, dupe); err != nil {
		t.Fatalf("UpsertAlias dupe: %v", err)
	}

	found, err := repo.GetAliasByKey(dbc, aliasKey)
	if err != nil || found == nil {
		t.Fatalf("GetAliasByKey: err=%v found=%v", err, found)
	}
	if found.EntityID != entity.ID || found.Confidence != 0.91 {
		t.Fatalf("GetAliasByKey: conflicting upsert overwrote row: %+v", found)
	}

	if missing, err := repo.GetAliasByKey(dbc, "no-such-alias-"+suffix); err != nil || missing != nil {
		t.Fatalf("GetAliasByKey miss: err=%v got=%v", err, missing)
	}

	entities, err := repo.ListEntities(dbc, 10)
	if err != nil || len(entities) == 0 {
		t.Fatalf("ListEntities: err=%v len=%d", err, len(entities))
	}
}
