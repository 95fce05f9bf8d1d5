package common

import "time"

// NodeKind identifies the kind of a graph node. The set of kinds is a
// closed enumeration agreed with the extraction capability; values outside
// it are rejected at the store boundary.
type NodeKind string

const (
	NodeKindPaper       NodeKind = "paper"
	NodeKindAuthor      NodeKind = "author"
	NodeKindConcept     NodeKind = "concept"
	NodeKindMethod      NodeKind = "method"
	NodeKindTechnique   NodeKind = "technique"
	NodeKindDataset     NodeKind = "dataset"
	NodeKindMetric      NodeKind = "metric"
	NodeKindInstitution NodeKind = "institution"
	NodeKindVenue       NodeKind = "venue"
)

// EdgeKind identifies the kind of a directed relationship between nodes.
type EdgeKind string

const (
	EdgeKindCites        EdgeKind = "cites"
	EdgeKindAuthoredBy   EdgeKind = "authored_by"
	EdgeKindIntroduces   EdgeKind = "introduces"
	EdgeKindUses         EdgeKind = "uses"
	EdgeKindExtends      EdgeKind = "extends"
	EdgeKindEvaluatesOn  EdgeKind = "evaluates_on"
	EdgeKindImprovesUpon EdgeKind = "improves_upon"
	EdgeKindComparesTo   EdgeKind = "compares_to"
	EdgeKindPublishedIn  EdgeKind = "published_in"
)

// ProcessingStatus tracks where a paper is in its ingestion lifecycle.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Metadata is a string-keyed property bag attached to nodes and edges.
// Merging is a shallow union where incoming top-level keys overwrite
// existing keys of the same name.
type Metadata map[string]any

// Merge returns the shallow union of m and other, with keys from other
// winning. Neither input is mutated; a nil receiver with a nil argument
// yields nil.
func (m Metadata) Merge(other Metadata) Metadata {
	if len(m) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Node represents a vertex in the knowledge graph. Identity is the pair
// (Kind, CanonicalName); CanonicalName is always the normalized form of
// Name, maintained by the store.
type Node struct {
	ID            string    `json:"id"`
	Kind          NodeKind  `json:"kind"`
	Name          string    `json:"name"`
	CanonicalName string    `json:"canonical_name"`
	Description   string    `json:"description,omitempty"`
	Metadata      Metadata  `json:"metadata,omitempty"`
	Confidence    float64   `json:"confidence"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Paper is the node specialization for a scholarly paper. Its ID is the
// ID of the underlying paper node.
type Paper struct {
	Node

	Title           string           `json:"title"`
	Abstract        string           `json:"abstract,omitempty"`
	FullText        string           `json:"full_text,omitempty"`
	Authors         []string         `json:"authors,omitempty"`
	ExternalID      string           `json:"external_id,omitempty"`
	DOI             string           `json:"doi,omitempty"`
	PublicationDate *time.Time       `json:"publication_date,omitempty"`
	Venue           string           `json:"venue,omitempty"`
	Status          ProcessingStatus `json:"processing_status"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
}

// Edge represents a directed, typed relationship between two nodes.
// Identity is the triple (Kind, SourceID, TargetID); direction matters,
// so A→B and B→A under the same kind are distinct edges.
type Edge struct {
	ID          string    `json:"id"`
	Kind        EdgeKind  `json:"kind"`
	SourceID    string    `json:"source_id"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description,omitempty"`
	Evidence    string    `json:"evidence,omitempty"`
	Confidence  float64   `json:"confidence"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExtractionStage names one bounded unit of work in the per-paper pipeline.
type ExtractionStage string

const (
	StageEntity       ExtractionStage = "entity"
	StageRelationship ExtractionStage = "relationship"
	StageValidation   ExtractionStage = "validation"
	StagePipeline     ExtractionStage = "pipeline"
)

// ExtractionRecord is one append-only audit entry for a stage attempt.
// Records are never mutated and writing one must never block the pipeline.
type ExtractionRecord struct {
	PaperID   string          `json:"paper_id"`
	Stage     ExtractionStage `json:"stage"`
	Input     string          `json:"input"`
	Output    string          `json:"output"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
}

var nodeKinds = map[NodeKind]bool{
	NodeKindPaper:       true,
	NodeKindAuthor:      true,
	NodeKindConcept:     true,
	NodeKindMethod:      true,
	NodeKindTechnique:   true,
	NodeKindDataset:     true,
	NodeKindMetric:      true,
	NodeKindInstitution: true,
	NodeKindVenue:       true,
}

var edgeKinds = map[EdgeKind]bool{
	EdgeKindCites:        true,
	EdgeKindAuthoredBy:   true,
	EdgeKindIntroduces:   true,
	EdgeKindUses:         true,
	EdgeKindExtends:      true,
	EdgeKindEvaluatesOn:  true,
	EdgeKindImprovesUpon: true,
	EdgeKindComparesTo:   true,
	EdgeKindPublishedIn:  true,
}

// ValidNodeKind reports whether k is part of the agreed node enumeration.
func ValidNodeKind(k NodeKind) bool {
	return nodeKinds[k]
}

// ValidEdgeKind reports whether k is part of the agreed edge enumeration.
func ValidEdgeKind(k EdgeKind) bool {
	return edgeKinds[k]
}

// NodeKinds returns the closed node kind enumeration.
func NodeKinds() []NodeKind {
	out := make([]NodeKind, 0, len(nodeKinds))
	for k := range nodeKinds {
		out = append(out, k)
	}
	return out
}

// EdgeKinds returns the closed edge kind enumeration.
func EdgeKinds() []EdgeKind {
	out := make([]EdgeKind, 0, len(edgeKinds))
	for k := range edgeKinds {
		out = append(out, k)
	}
	return out
}

// Clamp01 clamps a confidence value into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
