package mining

import (
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

func candidate(name string, seg int, offsets ...int) types.CandidateConcept {
	c := types.CandidateConcept{Name: name, SegmentIndex: seg, Confidence: 0.8}
	for _, off := range offsets {
		c.Mentions = append(c.Mentions, types.Mention{SegmentIndex: seg, TokenOffset: off})
	}
	return c
}

func TestMinePairsAreUnordered(t *testing.T) {
	miner := NewMiner(testLogger(t))
	rels := miner.Mine([]types.CandidateConcept{
		candidate("Terraform", 0, 3),
		candidate("Ansible", 0, 8),
	})
	if len(rels) != 1 {
		t.Fatalf("relations = %d, want 1", len(rels))
	}
	rel := rels[0]
	if rel.SourceName != "Ansible" || rel.TargetName != "Terraform" {
		t.Fatalf("pair not normalized: %s -> %s", rel.SourceName, rel.TargetName)
	}

	// Reversed input order yields the same single pair.
	reversed := miner.Mine([]types.CandidateConcept{
		candidate("Ansible", 0, 8),
		candidate("Terraform", 0, 3),
	})
	if len(reversed) != 1 {
		t.Fatalf("reversed relations = %d, want 1", len(reversed))
	}
	if reversed[0].SourceName != rel.SourceName || reversed[0].TargetName != rel.TargetName {
		t.Fatalf("reversed pair differs: %+v vs %+v", reversed[0], rel)
	}
}

func TestMineNoCrossSegmentPairs(t *testing.T) {
	miner := NewMiner(testLogger(t))
	rels := miner.Mine([]types.CandidateConcept{
		candidate("Terraform", 0, 3),
		candidate("Ansible", 1, 8),
	})
	if len(rels) != 0 {
		t.Fatalf("relations = %d, want 0 across segments", len(rels))
	}
}

func TestMineCloserPairsScoreHigher(t *testing.T) {
	miner := NewMiner(testLogger(t))
	near := miner.Mine([]types.CandidateConcept{
		candidate("Terraform", 0, 3),
		candidate("Ansible", 0, 5),
	})
	far := miner.Mine([]types.CandidateConcept{
		candidate("Terraform", 0, 3),
		candidate("Ansible", 0, 90),
	})
	if len(near) != 1 || len(far) != 1 {
		t.Fatalf("relations: near=%d far=%d, want 1 each", len(near), len(far))
	}
	if near[0].Confidence <= far[0].Confidence {
		t.Fatalf("near %v should outscore far %v", near[0].Confidence, far[0].Confidence)
	}
}

func TestMineFrequencyRaisesConfidence(t *testing.T) {
	miner := NewMiner(testLogger(t))
	once := miner.Mine([]types.CandidateConcept{
		candidate("Kafka", 0, 10),
		candidate("Flink", 0, 40),
	})
	repeated := miner.Mine([]types.CandidateConcept{
		candidate("Kafka", 0, 10, 110, 210),
		candidate("Flink", 0, 40, 140, 240),
	})
	if len(once) != 1 || len(repeated) != 1 {
		t.Fatalf("relations: once=%d repeated=%d, want 1 each", len(once), len(repeated))
	}
	if repeated[0].Confidence <= once[0].Confidence {
		t.Fatalf("repeated %v should outscore single %v", repeated[0].Confidence, once[0].Confidence)
	}
	if repeated[0].Confidence > 1.0 {
		t.Fatalf("confidence %v exceeds cap", repeated[0].Confidence)
	}
}

func TestMineTightProximityBecomesRelatedTo(t *testing.T) {
	miner := NewMiner(testLogger(t))
	rels := miner.Mine([]types.CandidateConcept{
		candidate("PostgreSQL", 0, 4),
		candidate("TimescaleDB", 0, 6),
	})
	if len(rels) != 1 {
		t.Fatalf("relations = %d, want 1", len(rels))
	}
	if rels[0].Type != types.RelationRelatedTo {
		t.Fatalf("type = %s, want %s", rels[0].Type, types.RelationRelatedTo)
	}

	distant := miner.Mine([]types.CandidateConcept{
		candidate("PostgreSQL", 0, 4),
		candidate("TimescaleDB", 0, 60),
	})
	if len(distant) != 1 || distant[0].Type != types.RelationCoOccurrence {
		t.Fatalf("distant pair should stay %s: %+v", types.RelationCoOccurrence, distant)
	}
}

func TestMineSelfPairsIgnored(t *testing.T) {
	miner := NewMiner(testLogger(t))
	rels := miner.Mine([]types.CandidateConcept{
		candidate("Kafka", 0, 10),
		candidate("kafka", 0, 50),
	})
	if len(rels) != 0 {
		t.Fatalf("same normalized name must not pair with itself, got %d", len(rels))
	}
}
