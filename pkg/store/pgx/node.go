package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/canonical"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

const nodeColumns = `id, kind, name, canonical_name, description, metadata, confidence, source, created_at, updated_at`

func scanNode(row pgx.Row) (common.Node, error) {
	var n common.Node
	var metadata map[string]any
	err := row.Scan(
		&n.ID, &n.Kind, &n.Name, &n.CanonicalName, &n.Description,
		&metadata, &n.Confidence, &n.Source, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.Node{}, store.ErrNotFound
	}
	if err != nil {
		return common.Node{}, err
	}
	n.Metadata = metadata
	return n, nil
}

// UpsertNode creates or merges a node keyed by (kind, canonical_name). The
// merge is resolved inside a single ON CONFLICT clause: max confidence,
// jsonb union with incoming keys winning, description filled only when
// previously empty.
func (s *GraphDBStorage) UpsertNode(ctx context.Context, params store.UpsertNodeParams) (common.Node, error) {
	if err := store.ValidateUpsertNode(params); err != nil {
		return common.Node{}, err
	}
	canonicalName := canonical.Normalize(params.Name)
	if canonicalName == "" {
		return common.Node{}, &common.ValidationError{Field: "name", Reason: "normalizes to empty"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.Node{}, &common.PersistenceError{Op: "upsert node", Err: err}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = common.Metadata{}
	}

	row := s.conn.QueryRow(ctx, `
		INSERT INTO nodes (id, kind, name, canonical_name, description, metadata, confidence, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (kind, canonical_name) DO UPDATE SET
			confidence  = GREATEST(nodes.confidence, EXCLUDED.confidence),
			metadata    = nodes.metadata || EXCLUDED.metadata,
			description = CASE WHEN nodes.description = '' THEN EXCLUDED.description ELSE nodes.description END,
			updated_at  = now()
		RETURNING `+nodeColumns,
		id, params.Kind, util.SanitizeText(params.Name), canonicalName,
		util.SanitizeText(params.Description), metadata,
		common.Clamp01(params.Confidence), params.Source,
	)

	node, err := scanNode(row)
	if err != nil {
		return common.Node{}, &common.PersistenceError{Op: "upsert node", Err: err}
	}
	return node, nil
}

// BatchUpsertNodes upserts all entities and returns canonical name → id for
// same-paper reference resolution.
func (s *GraphDBStorage) BatchUpsertNodes(ctx context.Context, params []store.UpsertNodeParams) (map[string]string, error) {
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
func (s *GraphDBStorage) FindNodeByKindAndName(ctx context.Context, kind common.NodeKind, name string) (common.Node, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE kind = $1 AND canonical_name = $2`,
		kind, canonical.Normalize(name),
	)
	return scanNode(row)
}

// FindNodeByID looks a node up by id.
func (s *GraphDBStorage) FindNodeByID(ctx context.Context, id string) (common.Node, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
	return scanNode(row)
}

// FuzzySearchNodes ranks nodes by trigram similarity against the
// canonicalized query. Only candidates clearing store.FuzzyThreshold are
// returned, best first.
func (s *GraphDBStorage) FuzzySearchNodes(ctx context.Context, query string, kind *common.NodeKind, limit int) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := canonical.Normalize(query)
	if needle == "" {
		return nil, nil
	}

	var rows pgx.Rows
	var err error
	if kind != nil {
		rows, err = s.conn.Query(ctx, `
			SELECT `+nodeColumns+`, similarity(canonical_name, $1) AS score
			FROM nodes
			WHERE similarity(canonical_name, $1) >= $2 AND kind = $3
			ORDER BY score DESC, canonical_name ASC
			LIMIT $4`,
			needle, store.FuzzyThreshold, *kind, limit,
		)
	} else {
		rows, err = s.conn.Query(ctx, `
			SELECT `+nodeColumns+`, similarity(canonical_name, $1) AS score
			FROM nodes
			WHERE similarity(canonical_name, $1) >= $2
			ORDER BY score DESC, canonical_name ASC
			LIMIT $3`,
			needle, store.FuzzyThreshold, limit,
		)
	}
	if err != nil {
		return nil, &common.PersistenceError{Op: "fuzzy search", Err: err}
	}
	defer rows.Close()

	results := make([]store.SearchResult, 0, limit)
	for rows.Next() {
		var n common.Node
		var metadata map[string]any
		var score float64
		if err := rows.Scan(
			&n.ID, &n.Kind, &n.Name, &n.CanonicalName, &n.Description,
			&metadata, &n.Confidence, &n.Source, &n.CreatedAt, &n.UpdatedAt, &score,
		); err != nil {
			return nil, &common.PersistenceError{Op: "fuzzy search", Err: err}
		}
		n.Metadata = metadata
		results = append(results, store.SearchResult{Node: n, Score: score})
	}
	return results, rows.Err()
}

// DeleteNode removes a node; edges referencing it are removed by the
// foreign-key cascade.
func (s *GraphDBStorage) DeleteNode(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return &common.PersistenceError{Op: "delete node", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
