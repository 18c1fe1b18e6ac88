package canonical

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/ontology"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type fakeCatalog struct {
	aliases  map[string]*ontology.Match
	entities []*types.OntologyEntity
	learned  map[string]uuid.UUID
	err      error
}

func (f *fakeCatalog) LookupAlias(ctx context.Context, name string) (*ontology.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.aliases[name], nil
}

func (f *fakeCatalog) LearnAlias(ctx context.Context, entityID uuid.UUID, alias string, confidence float64) error {
	if f.learned == nil {
		f.learned = map[string]uuid.UUID{}
	}
	f.learned[alias] = entityID
	return nil
}

func (f *fakeCatalog) Entities(ctx context.Context) ([]*types.OntologyEntity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

type fakeTraceRepo struct {
	rows []*types.DecisionTrace
}

func (f *fakeTraceRepo) Create(dbc dbctx.Context, rows []*types.DecisionTrace) ([]*types.DecisionTrace, error) {
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeTraceRepo) ListByDocumentRun(dbc dbctx.Context, runID uuid.UUID) ([]*types.DecisionTrace, error) {
	return f.rows, nil
}

func (f *fakeTraceRepo) ListByRawName(dbc dbctx.Context, tenantID uuid.UUID, rawName string, limit int) ([]*types.DecisionTrace, error) {
	return f.rows, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func sapCatalog() *fakeCatalog {
	entityID := uuid.New()
	return &fakeCatalog{
		aliases: map[string]*ontology.Match{
			"sap s/4hana cloud": {EntityID: entityID, CanonicalName: "SAP S/4HANA Cloud", Type: "PRODUCT"},
		},
		entities: []*types.OntologyEntity{
			{ID: entityID, CanonicalName: "SAP S/4HANA Cloud", Type: "PRODUCT"},
			{ID: uuid.New(), CanonicalName: "Oracle Fusion Cloud ERP", Type: "PRODUCT"},
		},
	}
}

func TestResolveOntologyLookup(t *testing.T) {
	traces := &fakeTraceRepo{}
	eng := NewEngine(sapCatalog(), traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := eng.Resolve(dbc, Input{
		TenantID:      uuid.New(),
		DocumentRunID: uuid.New(),
		RawName:       "  SAP   S/4HANA Cloud ",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != types.StrategyOntologyLookup {
		t.Fatalf("strategy = %s, want %s", res.Strategy, types.StrategyOntologyLookup)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", res.Confidence)
	}
	if !res.IsCataloged || res.RequiresValidation {
		t.Fatalf("cataloged hit should not require validation: %+v", res)
	}
	if res.CanonicalName != "SAP S/4HANA Cloud" {
		t.Fatalf("canonical name = %q", res.CanonicalName)
	}
	if len(traces.rows) != 1 {
		t.Fatalf("trace rows = %d, want 1", len(traces.rows))
	}
}

func TestResolveStructuralAcronym(t *testing.T) {
	cat := sapCatalog()
	traces := &fakeTraceRepo{}
	eng := NewEngine(cat, traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := eng.Resolve(dbc, Input{
		TenantID:      uuid.New(),
		DocumentRunID: uuid.New(),
		RawName:       "S4H",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != types.StrategyStructuralMatch {
		t.Fatalf("strategy = %s, want %s", res.Strategy, types.StrategyStructuralMatch)
	}
	if res.CanonicalName != "SAP S/4HANA Cloud" {
		t.Fatalf("canonical name = %q", res.CanonicalName)
	}
	if res.IsCataloged {
		t.Fatalf("structural match must not claim cataloged")
	}
	if res.Confidence >= 1.0 || res.Confidence < 0.72 {
		t.Fatalf("confidence = %v, want [0.72, 1.0)", res.Confidence)
	}
}

func TestResolveStructuralTokenSubsetLearnsAlias(t *testing.T) {
	cat := sapCatalog()
	traces := &fakeTraceRepo{}
	eng := NewEngine(cat, traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := eng.Resolve(dbc, Input{
		TenantID:      uuid.New(),
		DocumentRunID: uuid.New(),
		RawName:       "Oracle Fusion Cloud",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != types.StrategyStructuralMatch {
		t.Fatalf("strategy = %s, want %s", res.Strategy, types.StrategyStructuralMatch)
	}
	if res.CanonicalName != "Oracle Fusion Cloud ERP" {
		t.Fatalf("canonical name = %q", res.CanonicalName)
	}
	if res.Confidence < eng.learnThreshold {
		return
	}
	if _, ok := cat.learned["oracle fusion cloud"]; !ok {
		t.Fatalf("high-score structural match should learn its alias")
	}
}

func TestResolveHeuristicFallback(t *testing.T) {
	traces := &fakeTraceRepo{}
	eng := NewEngine(sapCatalog(), traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := eng.Resolve(dbc, Input{
		TenantID:             uuid.New(),
		DocumentRunID:        uuid.New(),
		RawName:              "quantum mesh optimizer",
		TypeHint:             "TECHNOLOGY",
		ExtractionConfidence: 0.9,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != types.StrategyHeuristicRules {
		t.Fatalf("strategy = %s, want %s", res.Strategy, types.StrategyHeuristicRules)
	}
	if res.CanonicalName != "Quantum Mesh Optimizer" {
		t.Fatalf("canonical name = %q", res.CanonicalName)
	}
	if !res.RequiresValidation {
		t.Fatalf("fallback must require validation")
	}
	if res.Confidence != 0.9 {
		t.Fatalf("fallback confidence = %v, want extraction confidence carried through", res.Confidence)
	}
	if res.Type != "TECHNOLOGY" {
		t.Fatalf("type = %q, want hint carried through", res.Type)
	}
}

func TestResolveDegradesWhenCatalogDown(t *testing.T) {
	cat := &fakeCatalog{err: ontology.ErrUnavailable}
	traces := &fakeTraceRepo{}
	eng := NewEngine(cat, traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	res, err := eng.Resolve(dbc, Input{
		TenantID:      uuid.New(),
		DocumentRunID: uuid.New(),
		RawName:       "SAP S/4HANA Cloud",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Strategy != types.StrategyHeuristicRules {
		t.Fatalf("strategy = %s, want heuristic fallback", res.Strategy)
	}
	if len(traces.rows) != 1 {
		t.Fatalf("trace rows = %d, want 1", len(traces.rows))
	}
}

// Every trace must be internally consistent: a cataloged decision is always
// an exact lookup at full confidence, and fallback decisions always carry the
// validation flag.
func TestTraceOutcomeConsistency(t *testing.T) {
	traces := &fakeTraceRepo{}
	eng := NewEngine(sapCatalog(), traces, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	inputs := []string{
		"SAP S/4HANA Cloud",
		"S4H",
		"Oracle Fusion Cloud",
		"entirely unknown platform",
	}
	for _, raw := range inputs {
		if _, err := eng.Resolve(dbc, Input{
			TenantID:      uuid.New(),
			DocumentRunID: uuid.New(),
			RawName:       raw,
		}); err != nil {
			t.Fatalf("Resolve(%q): %v", raw, err)
		}
	}

	for _, row := range traces.rows {
		if row.IsCataloged {
			if row.Strategy != types.StrategyOntologyLookup {
				t.Fatalf("cataloged trace with strategy %s", row.Strategy)
			}
			if row.Confidence != 1.0 {
				t.Fatalf("cataloged trace with confidence %v", row.Confidence)
			}
		}
		if row.Strategy == types.StrategyHeuristicRules && !row.RequiresValidation {
			t.Fatalf("fallback trace without validation flag: %q", row.RawName)
		}
		if row.Confidence < 0 || row.Confidence > 1 {
			t.Fatalf("trace confidence out of range: %v", row.Confidence)
		}
	}
}

func TestResolveEmptyName(t *testing.T) {
	eng := NewEngine(sapCatalog(), &fakeTraceRepo{}, testLogger(t))
	if _, err := eng.Resolve(dbctx.Context{Ctx: context.Background()}, Input{RawName: "   "}); err == nil {
		t.Fatalf("expected error for empty raw name")
	}
}
