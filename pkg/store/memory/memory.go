// Package memory provides an in-memory GraphStorage used by tests and
// single-process setups. It implements the same convergent merge rules as
// the Postgres backend, with each upsert applied atomically under a mutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholargraph/backend/pkg/canonical"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

type paperRow struct {
	common.Paper
}

// GraphMemStorage implements store.GraphStorage with process-local maps.
type GraphMemStorage struct {
	mu sync.Mutex

	nodes     map[string]common.Node // by id
	nodeByKey map[string]string      // kind|canonical_name -> id
	edges     map[string]common.Edge // kind|source|target -> edge
	papers    map[string]*paperRow   // by node id
	byExtID   map[string]string      // external_id -> paper id
	records   []common.ExtractionRecord
}

// NewGraphMemStorage creates an empty in-memory store.
func NewGraphMemStorage() *GraphMemStorage {
	return &GraphMemStorage{
		nodes:     make(map[string]common.Node),
		nodeByKey: make(map[string]string),
		edges:     make(map[string]common.Edge),
		papers:    make(map[string]*paperRow),
		byExtID:   make(map[string]string),
	}
}

func nodeKey(kind common.NodeKind, canonicalName string) string {
	return string(kind) + "|" + canonicalName
}

func edgeKey(kind common.EdgeKind, sourceID, targetID string) string {
	return string(kind) + "|" + sourceID + "|" + targetID
}

// UpsertNode creates or merges a node keyed by (kind, canonical name).
// Repeated calls with the same identity return the same id.
func (s *GraphMemStorage) UpsertNode(ctx context.Context, params store.UpsertNodeParams) (common.Node, error) {
	if err := store.ValidateUpsertNode(params); err != nil {
		return common.Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertNodeLocked(params)
}

func (s *GraphMemStorage) upsertNodeLocked(params store.UpsertNodeParams) (common.Node, error) {
	canonicalName := canonical.Normalize(params.Name)
	if canonicalName == "" {
		return common.Node{}, &common.ValidationError{Field: "name", Reason: "normalizes to empty"}
	}
	confidence := common.Clamp01(params.Confidence)

	key := nodeKey(params.Kind, canonicalName)
	now := time.Now().UTC()

	if id, ok := s.nodeByKey[key]; ok {
		node := s.nodes[id]
		if confidence > node.Confidence {
			node.Confidence = confidence
		}
		node.Metadata = node.Metadata.Merge(params.Metadata)
		node.Description = store.MergeText(node.Description, params.Description)
		node.UpdatedAt = now
		s.nodes[id] = node
		return node, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.Node{}, &common.PersistenceError{Op: "upsert node", Err: err}
	}
	node := common.Node{
		ID:            id,
		Kind:          params.Kind,
		Name:          params.Name,
		CanonicalName: canonicalName,
		Description:   params.Description,
		Metadata:      common.Metadata(nil).Merge(params.Metadata),
		Confidence:    confidence,
		Source:        params.Source,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.nodes[id] = node
	s.nodeByKey[key] = id
	return node, nil
}

// BatchUpsertNodes upserts all entities and returns canonical name → id.
func (s *GraphMemStorage) BatchUpsertNodes(ctx context.Context, params []store.UpsertNodeParams) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for _, p := range params {
		node, err := s.UpsertNode(ctx, p)
		if err != nil {
			return nil, err
		}
		out[node.CanonicalName] = node.ID
	}
	return out, nil
}

// FindNodeByKindAndName looks a node up by its identity key.
func (s *GraphMemStorage) FindNodeByKindAndName(ctx context.Context, kind common.NodeKind, name string) (common.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.nodeByKey[nodeKey(kind, canonical.Normalize(name))]
	if !ok {
		return common.Node{}, store.ErrNotFound
	}
	return s.nodes[id], nil
}

// FindNodeByID looks a node up by id.
func (s *GraphMemStorage) FindNodeByID(ctx context.Context, id string) (common.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return common.Node{}, store.ErrNotFound
	}
	return node, nil
}

// FuzzySearchNodes ranks nodes by lexical similarity to query. Only
// candidates clearing store.FuzzyThreshold are returned, best first. The
// ranking is deterministic for a fixed store state.
func (s *GraphMemStorage) FuzzySearchNodes(ctx context.Context, query string, kind *common.NodeKind, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := canonical.Normalize(query)
	if needle == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]store.SearchResult, 0)
	for _, node := range s.nodes {
		if kind != nil && node.Kind != *kind {
			continue
		}
		score := similarity(needle, node.CanonicalName)
		if score < store.FuzzyThreshold {
			continue
		}
		results = append(results, store.SearchResult{Node: node, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Node.CanonicalName < results[j].Node.CanonicalName
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// similarity scores two canonical names in [0,1]: exact match is 1,
// substring containment scales with the length ratio, otherwise trigram
// overlap (Dice coefficient) decides.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(b, a) {
		return 0.9 * float64(len(a)) / float64(len(b))
	}
	if strings.Contains(a, b) {
		return 0.9 * float64(len(b)) / float64(len(a))
	}
	return diceTrigram(a, b)
}

func trigrams(s string) map[string]bool {
	padded := "  " + s + " "
	out := make(map[string]bool)
	for i := 0; i+3 <= len(padded); i++ {
		out[padded[i:i+3]] = true
	}
	return out
}

func diceTrigram(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

// DeleteNode removes a node and cascades deletion of every edge that
// references it.
func (s *GraphMemStorage) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteNodeLocked(id)
}

func (s *GraphMemStorage) deleteNodeLocked(id string) error {
	node, ok := s.nodes[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.nodes, id)
	delete(s.nodeByKey, nodeKey(node.Kind, node.CanonicalName))
	for key, edge := range s.edges {
		if edge.SourceID == id || edge.TargetID == id {
			delete(s.edges, key)
		}
	}
	return nil
}

// UpsertEdge creates or merges an edge keyed by (kind, source, target).
// Direction is part of identity; self-loops are permitted.
func (s *GraphMemStorage) UpsertEdge(ctx context.Context, params store.UpsertEdgeParams) (common.Edge, error) {
	if err := store.ValidateUpsertEdge(params); err != nil {
		return common.Edge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[params.SourceID]; !ok {
		return common.Edge{}, &common.ValidationError{Field: "source_id", Reason: "references missing node"}
	}
	if _, ok := s.nodes[params.TargetID]; !ok {
		return common.Edge{}, &common.ValidationError{Field: "target_id", Reason: "references missing node"}
	}

	confidence := common.Clamp01(params.Confidence)
	key := edgeKey(params.Kind, params.SourceID, params.TargetID)

	if edge, ok := s.edges[key]; ok {
		if confidence > edge.Confidence {
			edge.Confidence = confidence
		}
		edge.Description = store.MergeText(edge.Description, params.Description)
		edge.Evidence = store.MergeText(edge.Evidence, params.Evidence)
		edge.Metadata = edge.Metadata.Merge(params.Metadata)
		s.edges[key] = edge
		return edge, nil
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.Edge{}, &common.PersistenceError{Op: "upsert edge", Err: err}
	}
	edge := common.Edge{
		ID:          id,
		Kind:        params.Kind,
		SourceID:    params.SourceID,
		TargetID:    params.TargetID,
		Description: params.Description,
		Evidence:    params.Evidence,
		Confidence:  confidence,
		Metadata:    common.Metadata(nil).Merge(params.Metadata),
		Source:      params.Source,
		CreatedAt:   time.Now().UTC(),
	}
	s.edges[key] = edge
	return edge, nil
}

// FindEdgesByEndpoint returns edges touching nodeID in the given direction,
// optionally filtered by kind.
func (s *GraphMemStorage) FindEdgesByEndpoint(ctx context.Context, nodeID string, direction store.Direction, kind *common.EdgeKind) ([]common.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Edge, 0)
	for _, edge := range s.edges {
		if kind != nil && edge.Kind != *kind {
			continue
		}
		switch direction {
		case store.DirectionOutgoing:
			if edge.SourceID != nodeID {
				continue
			}
		case store.DirectionIncoming:
			if edge.TargetID != nodeID {
				continue
			}
		default:
			if edge.SourceID != nodeID && edge.TargetID != nodeID {
				continue
			}
		}
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
