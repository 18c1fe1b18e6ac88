package domain

// Relation types persisted to the graph.
const (
	RelationCoOccurrence = "CO_OCCURRENCE"
	RelationRelatedTo    = "RELATED_TO"
)

// Segment is one unit of segmented document text handed to extraction.
type Segment struct {
	Index   int
	Text    string
	Heading string // nearest heading/title, empty when none
}

// Mention is one occurrence of a candidate inside a segment.
type Mention struct {
	SegmentIndex int
	TokenOffset  int
	Window       string // surrounding text window for contextual scoring
}

// CandidateConcept is the transient extraction record for one surface form
// within one document run. It is owned by the pipeline and discarded after
// gate check; only ProtoConcept rows survive.
type CandidateConcept struct {
	Name         string
	TypeHint     string
	Confidence   float64
	SegmentIndex int
	Mentions     []Mention
}

// RelationCandidate is a mined relation keyed by raw surface names. The
// gatekeeper remaps endpoints to canonical ids after promotion; candidates
// whose endpoints were rejected are dropped and counted.
type RelationCandidate struct {
	SourceName   string
	TargetName   string
	Type         string
	Confidence   float64
	SegmentIndex int
}
