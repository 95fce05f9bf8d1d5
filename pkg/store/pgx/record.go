package pgx

import (
	"context"
	"time"

	"github.com/scholargraph/backend/pkg/common"
)

// AddExtractionRecord appends one audit entry for a stage attempt. Records
// are insert-only; nothing ever updates or deletes them.
func (s *GraphDBStorage) AddExtractionRecord(ctx context.Context, record common.ExtractionRecord) error {
	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO extraction_records (paper_id, stage, input, output, success, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.PaperID, record.Stage, record.Input, record.Output,
		record.Success, record.Error, record.Duration.Milliseconds(), ts,
	)
	if err != nil {
		return &common.PersistenceError{Op: "add extraction record", Err: err}
	}
	return nil
}

// GetExtractionRecords returns all audit entries for a paper in insertion
// order.
func (s *GraphDBStorage) GetExtractionRecords(ctx context.Context, paperID string) ([]common.ExtractionRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT paper_id, stage, input, output, success, error, duration_ms, created_at
		FROM extraction_records
		WHERE paper_id = $1
		ORDER BY created_at ASC, id ASC`, paperID)
	if err != nil {
		return nil, &common.PersistenceError{Op: "get extraction records", Err: err}
	}
	defer rows.Close()

	out := make([]common.ExtractionRecord, 0)
	for rows.Next() {
		var record common.ExtractionRecord
		var durationMS int64
		err := rows.Scan(
			&record.PaperID, &record.Stage, &record.Input, &record.Output,
			&record.Success, &record.Error, &durationMS, &record.Timestamp,
		)
		if err != nil {
			return nil, &common.PersistenceError{Op: "scan extraction record", Err: err}
		}
		record.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, record)
	}
	return out, rows.Err()
}
