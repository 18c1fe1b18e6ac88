package contextual

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tessella/tessella-backend/internal/clients/embeddings"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/normalization"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

// RoleScore is the classification outcome for one candidate name.
type RoleScore struct {
	Role  string
	Score float64
}

// Scorer classifies candidates into vendor roles by comparing the embedding
// of each mention window against role centroids built from the reference
// phrase bank. The scorer depends on the embeddings backend; callers treat
// embeddings.ErrUnavailable as a signal to skip role scoring entirely.
type Scorer struct {
	client embeddings.Client
	log    *logger.Logger
	bank   *phraseBank

	concurrency  int
	batchSize    int
	mentionDecay float64
	minScore     float64

	centroidMu sync.Mutex
	centroids  map[string][]float32
}

func NewScorer(client embeddings.Client, baseLog *logger.Logger) (*Scorer, error) {
	bank, err := loadPhraseBank()
	if err != nil {
		return nil, err
	}
	return &Scorer{
		client:       client,
		log:          baseLog.With("component", "ContextualScorer"),
		bank:         bank,
		concurrency:  envutil.Int("CONTEXTUAL_CONCURRENCY", 4),
		batchSize:    envutil.Int("CONTEXTUAL_BATCH_SIZE", 64),
		mentionDecay: envutil.Float("CONTEXTUAL_MENTION_DECAY", 0.85),
		minScore:     envutil.Float("CONTEXTUAL_MIN_SCORE", 0.15),
	}, nil
}

// Classify returns a role per normalized candidate name. Candidates whose
// mentions carry no usable text windows default to SECONDARY with zero
// score. Any embeddings failure is returned as-is so the caller can decide
// to skip role adjustment for the whole run.
func (s *Scorer) Classify(ctx context.Context, candidates []types.CandidateConcept) (map[string]RoleScore, error) {
	if len(candidates) == 0 {
		return map[string]RoleScore{}, nil
	}
	if err := s.ensureCentroids(ctx); err != nil {
		return nil, err
	}

	type windowRef struct {
		name  string
		order int
		text  string
	}
	var refs []windowRef
	seenPerName := map[string]int{}
	out := map[string]RoleScore{}
	for _, cand := range candidates {
		key := normalization.Key(cand.Name)
		if key == "" {
			continue
		}
		if _, ok := out[key]; !ok {
			out[key] = RoleScore{Role: types.RoleSecondary}
		}
		for _, m := range cand.Mentions {
			if m.Window == "" {
				continue
			}
			refs = append(refs, windowRef{name: key, order: seenPerName[key], text: m.Window})
			seenPerName[key]++
		}
	}
	if len(refs) == 0 {
		return out, nil
	}

	vectors := make([][]float32, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(refs); start += s.batchSize {
		start := start
		end := start + s.batchSize
		if end > len(refs) {
			end = len(refs)
		}
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, r := range refs[start:end] {
				texts = append(texts, r.text)
			}
			vecs, err := s.client.Embed(gctx, texts)
			if err != nil {
				return err
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Aggregate per name with decaying mention weight: early mentions set
	// the frame, later repetitions confirm it.
	type accumulator struct {
		scores map[string]float64
		weight float64
	}
	acc := map[string]*accumulator{}
	for i, ref := range refs {
		a, ok := acc[ref.name]
		if !ok {
			a = &accumulator{scores: map[string]float64{}}
			acc[ref.name] = a
		}
		w := math.Pow(s.mentionDecay, float64(ref.order))
		for role, centroid := range s.centroids {
			a.scores[role] += w * float64(cosine(vectors[i], centroid))
		}
		a.weight += w
	}

	for name, a := range acc {
		bestRole := types.RoleSecondary
		bestScore := 0.0
		for role, total := range a.scores {
			score := total / a.weight
			if score > bestScore {
				bestRole = role
				bestScore = score
			}
		}
		if bestScore < s.minScore {
			bestRole = types.RoleSecondary
		}
		out[name] = RoleScore{Role: bestRole, Score: bestScore}
	}
	return out, nil
}

// ensureCentroids builds role centroids on first use. A failed build is not
// cached so the next run can retry once the backend recovers.
func (s *Scorer) ensureCentroids(ctx context.Context) error {
	s.centroidMu.Lock()
	defer s.centroidMu.Unlock()
	if s.centroids != nil {
		return nil
	}
	centroids := map[string][]float32{}
	for role, phrases := range s.bank.Roles {
		vecs, err := s.client.Embed(ctx, phrases)
		if err != nil {
			return err
		}
		centroids[role] = meanVector(vecs)
	}
	s.centroids = centroids
	s.log.Info("role centroids ready", "roles", len(centroids))
	return nil
}

func meanVector(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range v {
			if i < len(out) {
				out[i] += v[i]
			}
		}
	}
	for i := range out {
		out[i] /= float32(len(vecs))
	}
	return out
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
