package scoring

import (
	"context"
	"errors"
	"testing"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
	"github.com/tessella/tessella-backend/internal/scoring/contextual"
)

type fixedCentrality map[string]float64

func (f fixedCentrality) Score(segments []types.Segment, candidates []types.CandidateConcept) map[string]float64 {
	return f
}

type fixedRoles struct {
	roles map[string]contextual.RoleScore
	err   error
}

func (f *fixedRoles) Classify(ctx context.Context, candidates []types.CandidateConcept) (map[string]contextual.RoleScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestAsymmetricRoleAdjustment(t *testing.T) {
	roles := &fixedRoles{roles: map[string]contextual.RoleScore{
		"sap s/4hana cloud": {Role: types.RolePrimary, Score: 0.8},
		"oracle erp cloud":  {Role: types.RoleCompetitor, Score: 0.7},
		"workday":           {Role: types.RoleCompetitor, Score: 0.6},
	}}
	cascade := NewCascade(nil, roles, testLogger(t))

	candidates := []types.CandidateConcept{
		{Name: "SAP S/4HANA Cloud", TypeHint: "PRODUCT", Confidence: 0.92},
		{Name: "Oracle ERP Cloud", TypeHint: "PRODUCT", Confidence: 0.88},
		{Name: "Workday", TypeHint: "PRODUCT", Confidence: 0.86},
	}
	adjusted := cascade.Apply(context.Background(), nil, candidates)
	if len(adjusted) != 3 {
		t.Fatalf("adjusted = %d, want 3", len(adjusted))
	}

	byName := map[string]Adjusted{}
	for _, a := range adjusted {
		byName[a.Candidate.Name] = a
	}
	if got := byName["SAP S/4HANA Cloud"].Confidence; got < 0.92 {
		t.Fatalf("primary confidence = %v, want >= 0.92", got)
	}
	if got := byName["Oracle ERP Cloud"].Confidence; got > 0.73+1e-9 {
		t.Fatalf("competitor confidence = %v, want <= 0.73", got)
	}
	if got := byName["Workday"].Confidence; got > 0.71+1e-9 {
		t.Fatalf("competitor confidence = %v, want <= 0.71", got)
	}

	// With a 0.80 gate threshold only the primary survives.
	promoted := 0
	for _, a := range adjusted {
		if a.Confidence >= 0.80 {
			promoted++
		}
	}
	if promoted != 1 {
		t.Fatalf("candidates above gate = %d, want 1", promoted)
	}
}

func TestCentralityAppliedBeforeRoles(t *testing.T) {
	centrality := fixedCentrality{"kafka": 1.0, "flink": 0.0}
	cascade := NewCascade(centrality, nil, testLogger(t))

	adjusted := cascade.Apply(context.Background(), nil, []types.CandidateConcept{
		{Name: "Kafka", Confidence: 0.70},
		{Name: "Flink", Confidence: 0.70},
	})
	byName := map[string]Adjusted{}
	for _, a := range adjusted {
		byName[a.Candidate.Name] = a
	}
	if byName["Kafka"].Confidence <= 0.70 {
		t.Fatalf("high-centrality confidence = %v, want raised", byName["Kafka"].Confidence)
	}
	if byName["Flink"].Confidence >= 0.70 {
		t.Fatalf("low-centrality confidence = %v, want lowered", byName["Flink"].Confidence)
	}
}

func TestPassThroughWithoutScorers(t *testing.T) {
	cascade := NewCascade(nil, nil, testLogger(t))
	adjusted := cascade.Apply(context.Background(), nil, []types.CandidateConcept{
		{Name: "Kafka", Confidence: 0.42},
	})
	if adjusted[0].Confidence != 0.42 {
		t.Fatalf("confidence = %v, want pass-through 0.42", adjusted[0].Confidence)
	}
	if adjusted[0].Role != types.RoleSecondary {
		t.Fatalf("role = %s, want default %s", adjusted[0].Role, types.RoleSecondary)
	}
}

func TestRoleScorerFailureIsSkippedNotFatal(t *testing.T) {
	roles := &fixedRoles{err: errors.New("embeddings backend down")}
	cascade := NewCascade(nil, roles, testLogger(t))
	adjusted := cascade.Apply(context.Background(), nil, []types.CandidateConcept{
		{Name: "Kafka", Confidence: 0.42},
	})
	if adjusted[0].Confidence != 0.42 {
		t.Fatalf("confidence = %v, want pass-through on scorer failure", adjusted[0].Confidence)
	}
}

func TestConfidenceClamped(t *testing.T) {
	roles := &fixedRoles{roles: map[string]contextual.RoleScore{
		"high": {Role: types.RolePrimary},
		"low":  {Role: types.RoleCompetitor},
	}}
	cascade := NewCascade(nil, roles, testLogger(t))
	adjusted := cascade.Apply(context.Background(), nil, []types.CandidateConcept{
		{Name: "High", Confidence: 0.95},
		{Name: "Low", Confidence: 0.05},
	})
	for _, a := range adjusted {
		if a.Confidence < 0 || a.Confidence > 1 {
			t.Fatalf("confidence out of bounds: %v", a.Confidence)
		}
	}
}
