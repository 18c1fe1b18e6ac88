package concepts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tessella/tessella-backend/internal/data/repos/testutil"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
)

func TestDecisionTraceRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewDecisionTraceRepo(db, testutil.Logger(t))

	tenantID := uuid.New()
	runID := uuid.New()

	rows := []*types.DecisionTrace{
		{
			TenantID:      tenantID,
			DocumentRunID: runID,
			RawName:       "S4H",
			Strategy:      types.StrategyStructuralMatch,
			CanonicalName: "SAP S/4HANA Cloud",
			Confidence:    0.79,
			IsCataloged:   true,
			DurationMS:    3,
			Metadata:      datatypes.JSON([]byte(`{"method":"acronym"}`)),
		},
		{
			TenantID:           tenantID,
			DocumentRunID:      runID,
			RawName:            "zentrix ledger",
			Strategy:           types.StrategyHeuristicRules,
			CanonicalName:      "Zentrix Ledger",
			Confidence:         0.41,
			RequiresValidation: true,
			DurationMS:         1,
		},
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byRun, err := repo.ListByDocumentRun(dbc, runID)
	if err != nil || len(byRun) != 2 {
		t.Fatalf("ListByDocumentRun: err=%v len=%d", err, len(byRun))
	}

	byName, err := repo.ListByRawName(dbc, tenantID, "S4H", 10)
	if err != nil || len(byName) != 1 {
		t.Fatalf("ListByRawName: err=%v len=%d", err, len(byName))
	}
	if byName[0].Strategy != types.StrategyStructuralMatch || !byName[0].IsCataloged {
		t.Fatalf("ListByRawName: trace fields lost: %+v", byName[0])
	}
}
