package graph

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
)

// BatchFailure reports one paper that failed during batch ingestion.
type BatchFailure struct {
	Title      string `json:"title"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error"`
}

// BatchSummary aggregates the outcome of a batch ingestion.
type BatchSummary struct {
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Failures     []BatchFailure `json:"failures,omitempty"`
}

// IngestMany ingests a collection of papers with bounded concurrency.
// The input is partitioned into chunks of size concurrency; every paper in a
// chunk runs concurrently and the chunk is joined as a whole, so one paper's
// failure never cancels its siblings. A fixed delay separates chunks to stay
// under the capability's rate limits. Cancellation is honored only at chunk
// boundaries; the summary then covers the chunks that ran.
func (p *PipelineClient) IngestMany(
	ctx context.Context,
	papers []store.CreatePaperParams,
	concurrency int,
) (BatchSummary, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	summary := BatchSummary{}
	for start := 0; start < len(papers); start += concurrency {
		if start > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.chunkDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		chunk := papers[start:util.Min(start+concurrency, len(papers))]
		outcomes := make([]error, len(chunk))

		var g errgroup.Group
		g.SetLimit(len(chunk))
		for i, params := range chunk {
			g.Go(func() error {
				_, err := p.IngestPaper(ctx, params)
				outcomes[i] = err
				return nil
			})
		}
		g.Wait()

		for i, err := range outcomes {
			if err == nil {
				summary.SuccessCount++
				continue
			}
			summary.FailureCount++
			summary.Failures = append(summary.Failures, BatchFailure{
				Title:      chunk[i].Title,
				ExternalID: chunk[i].ExternalID,
				Error:      err.Error(),
			})
		}
		logger.Info("batch chunk done",
			"from", start, "size", len(chunk),
			"success", summary.SuccessCount, "failure", summary.FailureCount)
	}
	return summary, nil
}
