package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

// CreatePaper creates a paper node plus its paper row. When ExternalID
// matches an existing paper, title and abstract are updated in place and the
// existing paper is returned.
func (s *GraphMemStorage) CreatePaper(ctx context.Context, params store.CreatePaperParams) (common.Paper, error) {
	if strings.TrimSpace(params.Title) == "" {
		return common.Paper{}, &common.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if params.ExternalID != "" {
		if id, ok := s.byExtID[params.ExternalID]; ok {
			row := s.papers[id]
			row.Title = params.Title
			row.Abstract = params.Abstract
			row.UpdatedAt = now

			node := s.nodes[id]
			node.UpdatedAt = now
			s.nodes[id] = node

			return row.Paper, nil
		}
	}

	node, err := s.upsertNodeLocked(store.UpsertNodeParams{
		Kind:       common.NodeKindPaper,
		Name:       params.Title,
		Metadata:   params.Metadata,
		Source:     params.Source,
		Confidence: 1,
	})
	if err != nil {
		return common.Paper{}, err
	}

	if row, ok := s.papers[node.ID]; ok {
		// Same title without an external id converges on the existing paper.
		row.Title = params.Title
		row.Abstract = params.Abstract
		row.UpdatedAt = now
		return row.Paper, nil
	}

	paper := common.Paper{
		Node:            node,
		Title:           params.Title,
		Abstract:        params.Abstract,
		FullText:        params.FullText,
		Authors:         append([]string(nil), params.Authors...),
		ExternalID:      params.ExternalID,
		DOI:             params.DOI,
		PublicationDate: params.PublicationDate,
		Venue:           params.Venue,
		Status:          common.StatusPending,
	}
	s.papers[node.ID] = &paperRow{Paper: paper}
	if params.ExternalID != "" {
		s.byExtID[params.ExternalID] = node.ID
	}
	return paper, nil
}

// GetPaper returns the paper with the given node id.
func (s *GraphMemStorage) GetPaper(ctx context.Context, id string) (common.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.papers[id]
	if !ok {
		return common.Paper{}, store.ErrNotFound
	}
	return row.Paper, nil
}

// GetPaperByExternalID returns the paper with the given external id.
func (s *GraphMemStorage) GetPaperByExternalID(ctx context.Context, externalID string) (common.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byExtID[externalID]
	if !ok {
		return common.Paper{}, store.ErrNotFound
	}
	return s.papers[id].Paper, nil
}

// ListPapersByStatus returns up to limit papers in the given status, most
// recently updated first.
func (s *GraphMemStorage) ListPapersByStatus(ctx context.Context, status common.ProcessingStatus, limit int) ([]common.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Paper, 0)
	for _, row := range s.papers {
		if row.Status == status {
			out = append(out, row.Paper)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListCompletedPapers returns the most recently completed papers, newest
// first, bounded by limit.
func (s *GraphMemStorage) ListCompletedPapers(ctx context.Context, limit int) ([]common.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Paper, 0)
	for _, row := range s.papers {
		if row.Status == common.StatusCompleted {
			out = append(out, row.Paper)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].ProcessedAt, out[j].ProcessedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.After(*tj)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdatePaperStatus moves a paper through its lifecycle.
func (s *GraphMemStorage) UpdatePaperStatus(ctx context.Context, id string, status common.ProcessingStatus, processedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.papers[id]
	if !ok {
		return store.ErrNotFound
	}
	row.Status = status
	row.ProcessedAt = processedAt
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// DeletePaper removes a paper, its node, and every edge referencing the
// node.
func (s *GraphMemStorage) DeletePaper(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.papers[id]
	if !ok {
		return store.ErrNotFound
	}
	if row.ExternalID != "" {
		delete(s.byExtID, row.ExternalID)
	}
	delete(s.papers, id)
	return s.deleteNodeLocked(id)
}

// AddExtractionRecord appends an audit entry. Records are never mutated.
func (s *GraphMemStorage) AddExtractionRecord(ctx context.Context, record common.ExtractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	s.records = append(s.records, record)
	return nil
}

// GetExtractionRecords returns all records for a paper in append order.
func (s *GraphMemStorage) GetExtractionRecords(ctx context.Context, paperID string) ([]common.ExtractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.ExtractionRecord, 0)
	for _, r := range s.records {
		if r.PaperID == paperID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetStats aggregates counts by paper status, node kind and edge kind.
func (s *GraphMemStorage) GetStats(ctx context.Context) (store.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := store.Stats{
		PapersByStatus: make(map[common.ProcessingStatus]int64),
		NodesByKind:    make(map[common.NodeKind]int64),
		EdgesByKind:    make(map[common.EdgeKind]int64),
	}
	for _, row := range s.papers {
		stats.PapersByStatus[row.Status]++
	}
	for _, node := range s.nodes {
		stats.NodesByKind[node.Kind]++
	}
	for _, edge := range s.edges {
		stats.EdgesByKind[edge.Kind]++
	}
	return stats, nil
}
