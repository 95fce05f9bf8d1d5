// Package store defines the persistence contract for the knowledge graph.
// The store is the only shared mutable resource in the system; all write
// contention is resolved through convergent single-row upserts rather than
// external locking, so repeated and concurrent writes to the same node or
// edge identity must produce the same final state regardless of order.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/scholargraph/backend/pkg/common"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// FuzzyThreshold is the intrinsic relevance cutoff for fuzzy search.
// Candidates scoring below it are never returned.
const FuzzyThreshold = 0.3

// Direction selects edge traversal relative to a node.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// UpsertNodeParams is the input to a convergent node upsert.
type UpsertNodeParams struct {
	Kind        common.NodeKind
	Name        string
	Description string
	Metadata    common.Metadata
	Source      string
	Confidence  float64
}

// UpsertEdgeParams is the input to a convergent edge upsert. SourceID and
// TargetID must reference existing nodes.
type UpsertEdgeParams struct {
	Kind        common.EdgeKind
	SourceID    string
	TargetID    string
	Description string
	Evidence    string
	Confidence  float64
	Metadata    common.Metadata
	Source      string
}

// CreatePaperParams is the input to paper creation. When ExternalID matches
// an existing paper, title and abstract are updated in place instead of
// creating a duplicate.
type CreatePaperParams struct {
	Title           string
	Abstract        string
	FullText        string
	Authors         []string
	ExternalID      string
	DOI             string
	PublicationDate *time.Time
	Venue           string
	Metadata        common.Metadata
	Source          string
}

// SearchResult is one ranked fuzzy-search candidate.
type SearchResult struct {
	Node  common.Node
	Score float64
}

// Stats aggregates graph counts for callers.
type Stats struct {
	PapersByStatus map[common.ProcessingStatus]int64 `json:"papers_by_status"`
	NodesByKind    map[common.NodeKind]int64         `json:"nodes_by_kind"`
	EdgesByKind    map[common.EdgeKind]int64         `json:"edges_by_kind"`
}

// GraphStorage is the persistence interface for nodes, edges, papers and
// extraction records.
//
// Upsert semantics (the store's core correctness property): node identity is
// (kind, canonical name), edge identity is (kind, source, target). On
// conflict, confidence takes the maximum of old and new, metadata merges as
// a shallow union with new keys winning, and descriptive text is replaced
// only when the incoming value is non-empty and the existing one is empty.
// These merges are associative and idempotent, so concurrent writers
// converge.
type GraphStorage interface {
	UpsertNode(ctx context.Context, params UpsertNodeParams) (common.Node, error)
	BatchUpsertNodes(ctx context.Context, params []UpsertNodeParams) (map[string]string, error)
	FindNodeByKindAndName(ctx context.Context, kind common.NodeKind, name string) (common.Node, error)
	FindNodeByID(ctx context.Context, id string) (common.Node, error)
	FuzzySearchNodes(ctx context.Context, query string, kind *common.NodeKind, limit int) ([]SearchResult, error)
	DeleteNode(ctx context.Context, id string) error

	UpsertEdge(ctx context.Context, params UpsertEdgeParams) (common.Edge, error)
	FindEdgesByEndpoint(ctx context.Context, nodeID string, direction Direction, kind *common.EdgeKind) ([]common.Edge, error)

	CreatePaper(ctx context.Context, params CreatePaperParams) (common.Paper, error)
	GetPaper(ctx context.Context, id string) (common.Paper, error)
	GetPaperByExternalID(ctx context.Context, externalID string) (common.Paper, error)
	ListPapersByStatus(ctx context.Context, status common.ProcessingStatus, limit int) ([]common.Paper, error)
	ListCompletedPapers(ctx context.Context, limit int) ([]common.Paper, error)
	UpdatePaperStatus(ctx context.Context, id string, status common.ProcessingStatus, processedAt *time.Time) error
	DeletePaper(ctx context.Context, id string) error

	AddExtractionRecord(ctx context.Context, record common.ExtractionRecord) error
	GetExtractionRecords(ctx context.Context, paperID string) ([]common.ExtractionRecord, error)

	GetStats(ctx context.Context) (Stats, error)
}
