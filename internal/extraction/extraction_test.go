package extraction

import (
	"context"
	"strings"
	"testing"

	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestSegmentDocumentHeadings(t *testing.T) {
	text := "# Migration Plan\n\nWe are moving to SAP S/4HANA Cloud next year.\n\nTimeline:\nPhase one starts in the spring.\nPhase two follows."
	segments := SegmentDocument(text)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[0].Heading != "Migration Plan" {
		t.Fatalf("heading = %q, want Migration Plan", segments[0].Heading)
	}
	if segments[1].Heading != "Timeline" {
		t.Fatalf("heading = %q, want Timeline", segments[1].Heading)
	}
	if segments[0].Index != 0 || segments[1].Index != 1 {
		t.Fatalf("indexes not sequential: %+v", segments)
	}
}

func TestSegmentDocumentEmpty(t *testing.T) {
	if got := SegmentDocument("   \n\n  \n"); len(got) != 0 {
		t.Fatalf("segments = %d, want 0", len(got))
	}
}

func TestRequiredTierShortDocIsFree(t *testing.T) {
	segments := SegmentDocument("A short note about Kafka.")
	if tier := RequiredTier(segments, false); tier != types.TierNoLLM {
		t.Fatalf("tier = %s, want %s", tier, types.TierNoLLM)
	}
}

func TestRequiredTierVisualContent(t *testing.T) {
	if tier := RequiredTier(nil, true); tier != types.TierVision {
		t.Fatalf("tier = %s, want %s", tier, types.TierVision)
	}
}

func TestRequiredTierLongSimpleDocIsSmall(t *testing.T) {
	sentence := "The team uses Kafka for streaming. "
	text := strings.Repeat(sentence, 60)
	segments := SegmentDocument(text)
	if tier := RequiredTier(segments, false); tier != types.TierSmall {
		t.Fatalf("tier = %s, want %s", tier, types.TierSmall)
	}
}

func TestRequiredTierDenseDocIsBig(t *testing.T) {
	// One long clause-heavy sentence repeated: every sentence exceeds the
	// long-sentence bound, pushing complexity past the BIG threshold.
	sentence := strings.Repeat("clause after clause with many qualifying terms and subordinate structure overall ", 4) + ". "
	text := strings.Repeat(sentence, 20)
	segments := SegmentDocument(text)
	if tier := RequiredTier(segments, false); tier != types.TierBig {
		t.Fatalf("tier = %s, want %s", tier, types.TierBig)
	}
}

func TestFallbackExtractorFindsCapitalizedPhrases(t *testing.T) {
	ex := NewFallbackExtractor(testLogger(t))
	segments := SegmentDocument("Our platform is SAP S/4HANA Cloud. We compared SAP S/4HANA Cloud against Oracle Fusion before deciding. The rollout of SAP S/4HANA Cloud starts soon.")

	res, err := ex.Extract(context.Background(), segments, types.TierNoLLM)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.ConsumedTier != types.TierNoLLM {
		t.Fatalf("consumed tier = %s, want %s", res.ConsumedTier, types.TierNoLLM)
	}

	var sap, oracle *types.CandidateConcept
	for i := range res.Candidates {
		switch strings.ToLower(res.Candidates[i].Name) {
		case "sap s/4hana cloud":
			sap = &res.Candidates[i]
		case "oracle fusion":
			oracle = &res.Candidates[i]
		}
	}
	if sap == nil {
		t.Fatalf("SAP S/4HANA Cloud not extracted: %+v", res.Candidates)
	}
	if oracle == nil {
		t.Fatalf("Oracle Fusion not extracted: %+v", res.Candidates)
	}
	if len(sap.Mentions) != 3 {
		t.Fatalf("sap mentions = %d, want 3", len(sap.Mentions))
	}
	if sap.Confidence <= oracle.Confidence {
		t.Fatalf("repeated phrase %v should outscore single mention %v", sap.Confidence, oracle.Confidence)
	}
	for _, m := range sap.Mentions {
		if m.Window == "" {
			t.Fatalf("mention window missing")
		}
	}
}

func TestFallbackExtractorSkipsStopWords(t *testing.T) {
	ex := NewFallbackExtractor(testLogger(t))
	segments := SegmentDocument("The meeting is on Monday. We will decide then.")
	res, err := ex.Extract(context.Background(), segments, types.TierNoLLM)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, c := range res.Candidates {
		lower := strings.ToLower(c.Name)
		if lower == "the" || lower == "monday" || lower == "we" {
			t.Fatalf("stop word extracted as candidate: %q", c.Name)
		}
	}
}

func TestFallbackExtractorCancelled(t *testing.T) {
	ex := NewFallbackExtractor(testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ex.Extract(ctx, nil, types.TierNoLLM); err == nil {
		t.Fatalf("expected context error")
	}
}
