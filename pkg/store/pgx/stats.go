package pgx

import (
	"context"

	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/store"
)

// GetStats aggregates counts over papers, nodes and edges.
func (s *GraphDBStorage) GetStats(ctx context.Context) (store.Stats, error) {
	stats := store.Stats{
		PapersByStatus: make(map[common.ProcessingStatus]int64),
		NodesByKind:    make(map[common.NodeKind]int64),
		EdgesByKind:    make(map[common.EdgeKind]int64),
	}

	rows, err := s.conn.Query(ctx, `
		SELECT processing_status, count(*) FROM papers GROUP BY processing_status`)
	if err != nil {
		return store.Stats{}, &common.PersistenceError{Op: "stats papers", Err: err}
	}
	for rows.Next() {
		var status common.ProcessingStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return store.Stats{}, &common.PersistenceError{Op: "stats papers", Err: err}
		}
		stats.PapersByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.Stats{}, &common.PersistenceError{Op: "stats papers", Err: err}
	}

	rows, err = s.conn.Query(ctx, `
		SELECT kind, count(*) FROM nodes GROUP BY kind`)
	if err != nil {
		return store.Stats{}, &common.PersistenceError{Op: "stats nodes", Err: err}
	}
	for rows.Next() {
		var kind common.NodeKind
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return store.Stats{}, &common.PersistenceError{Op: "stats nodes", Err: err}
		}
		stats.NodesByKind[kind] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.Stats{}, &common.PersistenceError{Op: "stats nodes", Err: err}
	}

	rows, err = s.conn.Query(ctx, `
		SELECT kind, count(*) FROM edges GROUP BY kind`)
	if err != nil {
		return store.Stats{}, &common.PersistenceError{Op: "stats edges", Err: err}
	}
	for rows.Next() {
		var kind common.EdgeKind
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return store.Stats{}, &common.PersistenceError{Op: "stats edges", Err: err}
		}
		stats.EdgesByKind[kind] = count
	}
	rows.Close()
	return stats, rows.Err()
}
