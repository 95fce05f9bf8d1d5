// Package pgx implements store.GraphStorage on PostgreSQL. Conflict
// resolution happens in single-row ON CONFLICT clauses so concurrent
// writers converge without application-level read-modify-write.
package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GraphDBStorage implements store.GraphStorage using PostgreSQL with
// pg_trgm for fuzzy name search.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorage creates a storage backed by an existing pgx connection
// or pool.
func NewGraphDBStorage(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}
