package contextual

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tessella/tessella-backend/internal/clients/embeddings"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// fakeEmbedder maps texts onto a 3-axis space keyed by role vocabulary so
// cosine similarity behaves predictably without a real backend.
type fakeEmbedder struct {
	calls atomic.Int64
	err   error
}

var primaryWords = []string{"selected", "standardized", "strategic", "implemented", "migrating", "eingeführt", "choisie", "adoptamos"}
var competitorWords = []string{"evaluated", "rival", "alternative", "competing", "konkurrenz", "concurrente", "competencia", "écartée", "descartamos"}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := []float32{0, 0, 1}
		for _, w := range primaryWords {
			if strings.Contains(lower, w) {
				vec = []float32{1, 0, 0}
				break
			}
		}
		for _, w := range competitorWords {
			if strings.Contains(lower, w) {
				vec = []float32{0, 1, 0}
				break
			}
		}
		out[i] = vec
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func withWindow(name string, windows ...string) types.CandidateConcept {
	c := types.CandidateConcept{Name: name}
	for i, w := range windows {
		c.Mentions = append(c.Mentions, types.Mention{TokenOffset: i * 20, Window: w})
	}
	return c
}

func TestClassifyRoles(t *testing.T) {
	scorer, err := NewScorer(&fakeEmbedder{}, testLogger(t))
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}

	candidates := []types.CandidateConcept{
		withWindow("SAP S/4HANA", "we selected SAP S/4HANA as the platform we are migrating to"),
		withWindow("Oracle Fusion", "Oracle Fusion was the rival offering we evaluated and rejected"),
		withWindow("Slack", "notifications are forwarded to Slack alongside the main platform"),
	}
	roles, err := scorer.Classify(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got := roles["sap s/4hana"].Role; got != types.RolePrimary {
		t.Fatalf("sap role = %s, want %s", got, types.RolePrimary)
	}
	if got := roles["oracle fusion"].Role; got != types.RoleCompetitor {
		t.Fatalf("oracle role = %s, want %s", got, types.RoleCompetitor)
	}
	if got := roles["slack"].Role; got != types.RoleSecondary {
		t.Fatalf("slack role = %s, want %s", got, types.RoleSecondary)
	}
}

func TestClassifyAggregatesMentionsWithDecay(t *testing.T) {
	scorer, err := NewScorer(&fakeEmbedder{}, testLogger(t))
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}

	// The first mention reads primary; two later mentions read competitor.
	// The decayed aggregate still favors the majority signal.
	candidates := []types.CandidateConcept{
		withWindow("Workday",
			"we selected Workday during the initial rollout",
			"later Workday became the rival offering we evaluated against",
			"Workday stayed the competing product in the final comparison",
		),
	}
	roles, err := scorer.Classify(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	rs := roles["workday"]
	if rs.Role != types.RoleCompetitor {
		t.Fatalf("role = %s, want %s", rs.Role, types.RoleCompetitor)
	}
	if rs.Score <= 0 || rs.Score > 1 {
		t.Fatalf("score out of range: %v", rs.Score)
	}
}

func TestClassifyNoWindowsDefaultsSecondary(t *testing.T) {
	scorer, err := NewScorer(&fakeEmbedder{}, testLogger(t))
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	roles, err := scorer.Classify(context.Background(), []types.CandidateConcept{{Name: "Bare Name"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got := roles["bare name"].Role; got != types.RoleSecondary {
		t.Fatalf("role = %s, want %s", got, types.RoleSecondary)
	}
}

func TestClassifyPropagatesBackendError(t *testing.T) {
	fake := &fakeEmbedder{err: embeddings.ErrUnavailable}
	scorer, err := NewScorer(fake, testLogger(t))
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	_, err = scorer.Classify(context.Background(), []types.CandidateConcept{
		withWindow("SAP", "we selected SAP"),
	})
	if err == nil {
		t.Fatalf("expected backend error to surface")
	}

	// After the backend recovers the centroids build on the next call.
	fake.err = nil
	roles, err := scorer.Classify(context.Background(), []types.CandidateConcept{
		withWindow("SAP", "we selected SAP as our platform"),
	})
	if err != nil {
		t.Fatalf("Classify after recovery: %v", err)
	}
	if got := roles["sap"].Role; got != types.RolePrimary {
		t.Fatalf("role = %s, want %s", got, types.RolePrimary)
	}
}

func TestCentroidsBuiltOnce(t *testing.T) {
	fake := &fakeEmbedder{}
	scorer, err := NewScorer(fake, testLogger(t))
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	in := []types.CandidateConcept{withWindow("SAP", "we selected SAP")}
	if _, err := scorer.Classify(context.Background(), in); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	after := fake.calls.Load()
	if _, err := scorer.Classify(context.Background(), in); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// Second call embeds only the mention window, not the phrase bank.
	if got := fake.calls.Load(); got != after+1 {
		t.Fatalf("embed calls = %d, want %d", got, after+1)
	}
}
