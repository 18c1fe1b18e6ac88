package concepts

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tessella/tessella-backend/internal/data/repos/testutil"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
)

func TestProtoConceptRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewProtoConceptRepo(db, testutil.Logger(t))

	tenantID := uuid.New()
	runID := uuid.New()
	canonicalID := uuid.New()

	promoted := &types.ProtoConcept{
		TenantID:           tenantID,
		DocumentRunID:      runID,
		SegmentIndex:       0,
		RawName:            "SAP S/4HANA Cloud",
		NormalizedKey:      "sap s/4hana cloud",
		Type:               "PRODUCT",
		Confidence:         0.92,
		AdjustedConfidence: 0.95,
		Role:               types.RolePrimary,
		Promoted:           true,
		CanonicalName:      "SAP S/4HANA Cloud",
		CanonicalID:        &canonicalID,
	}
	rejected := &types.ProtoConcept{
		TenantID:           tenantID,
		DocumentRunID:      runID,
		SegmentIndex:       2,
		RawName:            "Oracle Fusion",
		NormalizedKey:      "oracle fusion",
		Type:               "PRODUCT",
		Confidence:         0.88,
		AdjustedConfidence: 0.73,
		Role:               types.RoleCompetitor,
		Promoted:           false,
		RejectionReason:    "below_threshold",
	}

	rows, err := repo.Create(dbc, []*types.ProtoConcept{promoted, rejected})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(rows) != 2 || rows[0].ID == uuid.Nil {
		t.Fatalf("Create: ids not assigned: %+v", rows)
	}

	byRun, err := repo.ListByDocumentRun(dbc, runID)
	if err != nil || len(byRun) != 2 {
		t.Fatalf("ListByDocumentRun: err=%v len=%d", err, len(byRun))
	}

	byIDs, err := repo.GetByIDs(dbc, []uuid.UUID{rows[0].ID})
	if err != nil || len(byIDs) != 1 || byIDs[0].RawName != promoted.RawName {
		t.Fatalf("GetByIDs: err=%v rows=%+v", err, byIDs)
	}

	byName, err := repo.ListByCanonicalName(dbc, tenantID, "SAP S/4HANA Cloud", 10)
	if err != nil || len(byName) != 1 {
		t.Fatalf("ListByCanonicalName: err=%v len=%d", err, len(byName))
	}
	if !byName[0].Promoted || byName[0].CanonicalID == nil || *byName[0].CanonicalID != canonicalID {
		t.Fatalf("ListByCanonicalName: outcome fields lost: %+v", byName[0])
	}
}
