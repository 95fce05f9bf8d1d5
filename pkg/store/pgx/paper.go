package pgx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/canonical"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

const paperColumns = `
	n.id, n.kind, n.name, n.canonical_name, n.description, n.metadata, n.confidence, n.source, n.created_at, n.updated_at,
	p.title, p.abstract, p.full_text, p.authors, p.external_id, p.doi, p.publication_date, p.venue, p.processing_status, p.processed_at`

func scanPaper(row pgx.Row) (common.Paper, error) {
	var p common.Paper
	var metadata map[string]any
	var externalID, doi *string
	var pubDate, processedAt *time.Time
	err := row.Scan(
		&p.ID, &p.Node.Kind, &p.Node.Name, &p.CanonicalName, &p.Node.Description,
		&metadata, &p.Confidence, &p.Node.Source, &p.CreatedAt, &p.UpdatedAt,
		&p.Title, &p.Abstract, &p.FullText, &p.Authors, &externalID, &doi,
		&pubDate, &p.Venue, &p.Status, &processedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Paper{}, store.ErrNotFound
	}
	if err != nil {
		return common.Paper{}, err
	}
	p.Metadata = metadata
	if externalID != nil {
		p.ExternalID = *externalID
	}
	if doi != nil {
		p.DOI = *doi
	}
	p.PublicationDate = pubDate
	p.ProcessedAt = processedAt
	return p, nil
}

// CreatePaper creates a paper node and its paper row in one transaction.
// Re-ingestion of a known external_id updates title and abstract in place
// and returns the existing paper; no duplicate row is created.
func (s *GraphDBStorage) CreatePaper(ctx context.Context, params store.CreatePaperParams) (common.Paper, error) {
	if strings.TrimSpace(params.Title) == "" {
		return common.Paper{}, &common.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "create paper", Err: err}
	}
	defer tx.Rollback(ctx)

	if params.ExternalID != "" {
		existing, err := s.paperByExternalIDTx(ctx, tx, params.ExternalID)
		if err == nil {
			updated, err := s.updatePaperInPlaceTx(ctx, tx, existing.ID, params)
			if err != nil {
				return common.Paper{}, err
			}
			if err := tx.Commit(ctx); err != nil {
				return common.Paper{}, &common.PersistenceError{Op: "create paper", Err: err}
			}
			return updated, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return common.Paper{}, err
		}
	}

	canonicalName := canonical.Normalize(params.Title)
	if canonicalName == "" {
		return common.Paper{}, &common.ValidationError{Field: "title", Reason: "normalizes to empty"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "create paper", Err: err}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = common.Metadata{}
	}

	var nodeID string
	err = tx.QueryRow(ctx, `
		INSERT INTO nodes (id, kind, name, canonical_name, description, metadata, confidence, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, 1, $6, now(), now())
		ON CONFLICT (kind, canonical_name) DO UPDATE SET
			metadata   = nodes.metadata || EXCLUDED.metadata,
			updated_at = now()
		RETURNING id`,
		id, common.NodeKindPaper, util.SanitizeText(params.Title), canonicalName,
		metadata, params.Source,
	).Scan(&nodeID)
	if err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "create paper node", Err: err}
	}

	var externalID, doi *string
	if params.ExternalID != "" {
		externalID = &params.ExternalID
	}
	if params.DOI != "" {
		doi = &params.DOI
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO papers (id, title, abstract, full_text, authors, external_id, doi, publication_date, venue, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title    = EXCLUDED.title,
			abstract = EXCLUDED.abstract
		RETURNING id`,
		nodeID, util.SanitizeText(params.Title), util.SanitizeText(params.Abstract),
		util.SanitizeText(params.FullText), params.Authors, externalID, doi,
		params.PublicationDate, params.Venue, common.StatusPending,
	)
	if err := row.Scan(&nodeID); err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "create paper row", Err: err}
	}

	paper, err := s.paperByIDTx(ctx, tx, nodeID)
	if err != nil {
		return common.Paper{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "create paper", Err: err}
	}
	return paper, nil
}

func (s *GraphDBStorage) updatePaperInPlaceTx(ctx context.Context, tx pgx.Tx, id string, params store.CreatePaperParams) (common.Paper, error) {
	_, err := tx.Exec(ctx, `
		UPDATE papers SET title = $2, abstract = $3 WHERE id = $1`,
		id, util.SanitizeText(params.Title), util.SanitizeText(params.Abstract),
	)
	if err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "update paper", Err: err}
	}
	_, err = tx.Exec(ctx, `
		UPDATE nodes SET name = $2, canonical_name = $3, updated_at = now() WHERE id = $1`,
		id, util.SanitizeText(params.Title), canonical.Normalize(params.Title),
	)
	if err != nil {
		return common.Paper{}, &common.PersistenceError{Op: "update paper node", Err: err}
	}
	return s.paperByIDTx(ctx, tx, id)
}

func (s *GraphDBStorage) paperByIDTx(ctx context.Context, tx pgx.Tx, id string) (common.Paper, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.id = $1`, id)
	return scanPaper(row)
}

func (s *GraphDBStorage) paperByExternalIDTx(ctx context.Context, tx pgx.Tx, externalID string) (common.Paper, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.external_id = $1`, externalID)
	return scanPaper(row)
}

// GetPaper returns the paper with the given node id.
func (s *GraphDBStorage) GetPaper(ctx context.Context, id string) (common.Paper, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.id = $1`, id)
	return scanPaper(row)
}

// GetPaperByExternalID returns the paper with the given external id.
func (s *GraphDBStorage) GetPaperByExternalID(ctx context.Context, externalID string) (common.Paper, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.external_id = $1`, externalID)
	return scanPaper(row)
}

// ListPapersByStatus returns up to limit papers in the given status, most
// recently updated first.
func (s *GraphDBStorage) ListPapersByStatus(ctx context.Context, status common.ProcessingStatus, limit int) ([]common.Paper, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.processing_status = $1
		ORDER BY n.updated_at DESC
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, &common.PersistenceError{Op: "list papers", Err: err}
	}
	defer rows.Close()
	return collectPapers(rows)
}

// ListCompletedPapers returns the most recently completed papers, newest
// first, bounded by limit.
func (s *GraphDBStorage) ListCompletedPapers(ctx context.Context, limit int) ([]common.Paper, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.Query(ctx, `
		SELECT `+paperColumns+`
		FROM papers p JOIN nodes n ON n.id = p.id
		WHERE p.processing_status = $1
		ORDER BY p.processed_at DESC NULLS LAST, p.id ASC
		LIMIT $2`, common.StatusCompleted, limit)
	if err != nil {
		return nil, &common.PersistenceError{Op: "list completed papers", Err: err}
	}
	defer rows.Close()
	return collectPapers(rows)
}

func collectPapers(rows pgx.Rows) ([]common.Paper, error) {
	out := make([]common.Paper, 0)
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, &common.PersistenceError{Op: "scan paper", Err: err}
		}
		out = append(out, paper)
	}
	return out, rows.Err()
}

// UpdatePaperStatus moves a paper through its lifecycle.
func (s *GraphDBStorage) UpdatePaperStatus(ctx context.Context, id string, status common.ProcessingStatus, processedAt *time.Time) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE papers SET processing_status = $2, processed_at = $3 WHERE id = $1`,
		id, status, processedAt,
	)
	if err != nil {
		return &common.PersistenceError{Op: "update paper status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeletePaper removes the paper's node; the paper row and all edges follow
// via foreign-key cascade.
func (s *GraphDBStorage) DeletePaper(ctx context.Context, id string) error {
	return s.DeleteNode(ctx, id)
}
