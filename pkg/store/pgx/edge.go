package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

const edgeColumns = `id, kind, source_id, target_id, description, evidence, confidence, metadata, source, created_at`

func scanEdge(row pgx.Row) (common.Edge, error) {
	var e common.Edge
	var metadata map[string]any
	err := row.Scan(
		&e.ID, &e.Kind, &e.SourceID, &e.TargetID, &e.Description,
		&e.Evidence, &e.Confidence, &metadata, &e.Source, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Edge{}, store.ErrNotFound
	}
	if err != nil {
		return common.Edge{}, err
	}
	e.Metadata = metadata
	return e, nil
}

// UpsertEdge creates or merges an edge keyed by (kind, source_id,
// target_id). Direction is part of identity; self-loops are permitted. On
// conflict: description and evidence follow the prefer-new-if-absent rule,
// confidence takes the maximum, metadata unions shallowly.
func (s *GraphDBStorage) UpsertEdge(ctx context.Context, params store.UpsertEdgeParams) (common.Edge, error) {
	if err := store.ValidateUpsertEdge(params); err != nil {
		return common.Edge{}, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.Edge{}, &common.PersistenceError{Op: "upsert edge", Err: err}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = common.Metadata{}
	}

	row := s.conn.QueryRow(ctx, `
		INSERT INTO edges (id, kind, source_id, target_id, description, evidence, confidence, metadata, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (kind, source_id, target_id) DO UPDATE SET
			description = CASE WHEN edges.description = '' THEN EXCLUDED.description ELSE edges.description END,
			evidence    = CASE WHEN edges.evidence = '' THEN EXCLUDED.evidence ELSE edges.evidence END,
			confidence  = GREATEST(edges.confidence, EXCLUDED.confidence),
			metadata    = edges.metadata || EXCLUDED.metadata
		RETURNING `+edgeColumns,
		id, params.Kind, params.SourceID, params.TargetID,
		util.SanitizeText(params.Description), util.SanitizeText(params.Evidence),
		common.Clamp01(params.Confidence), metadata, params.Source,
	)

	edge, err := scanEdge(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// Foreign-key violation: an endpoint id references no node.
			return common.Edge{}, &common.ValidationError{Field: "endpoint", Reason: "references missing node"}
		}
		return common.Edge{}, &common.PersistenceError{Op: "upsert edge", Err: err}
	}
	return edge, nil
}

// FindEdgesByEndpoint returns edges touching nodeID in the given direction,
// optionally filtered by kind.
func (s *GraphDBStorage) FindEdgesByEndpoint(ctx context.Context, nodeID string, direction store.Direction, kind *common.EdgeKind) ([]common.Edge, error) {
	var cond string
	switch direction {
	case store.DirectionOutgoing:
		cond = `source_id = $1`
	case store.DirectionIncoming:
		cond = `target_id = $1`
	default:
		cond = `(source_id = $1 OR target_id = $1)`
	}

	var rows pgx.Rows
	var err error
	if kind != nil {
		rows, err = s.conn.Query(ctx, `
			SELECT `+edgeColumns+` FROM edges
			WHERE `+cond+` AND kind = $2
			ORDER BY created_at ASC, id ASC`,
			nodeID, *kind,
		)
	} else {
		rows, err = s.conn.Query(ctx, `
			SELECT `+edgeColumns+` FROM edges
			WHERE `+cond+`
			ORDER BY created_at ASC, id ASC`,
			nodeID,
		)
	}
	if err != nil {
		return nil, &common.PersistenceError{Op: "find edges", Err: err}
	}
	defer rows.Close()

	out := make([]common.Edge, 0)
	for rows.Next() {
		var e common.Edge
		var metadata map[string]any
		if err := rows.Scan(
			&e.ID, &e.Kind, &e.SourceID, &e.TargetID, &e.Description,
			&e.Evidence, &e.Confidence, &metadata, &e.Source, &e.CreatedAt,
		); err != nil {
			return nil, &common.PersistenceError{Op: "find edges", Err: err}
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}
