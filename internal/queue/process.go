package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/ai"
	"github.com/scholargraph/backend/pkg/graph"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

// QueuePaperMsg is one paper submitted for ingestion.
type QueuePaperMsg struct {
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract,omitempty"`
	FullText        string     `json:"full_text,omitempty"`
	Authors         []string   `json:"authors,omitempty"`
	ExternalID      string     `json:"external_id,omitempty"`
	DOI             string     `json:"doi,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Venue           string     `json:"venue,omitempty"`
}

// QueueIngestMsg is the payload of the ingest queue. Concurrency bounds how
// many of the papers run simultaneously.
type QueueIngestMsg struct {
	Papers      []QueuePaperMsg `json:"papers"`
	Concurrency int             `json:"concurrency,omitempty"`
}

// QueueReprocessMsg is the payload of the reprocess queue.
type QueueReprocessMsg struct {
	PaperID string `json:"paper_id"`
}

// NewPipeline builds a pipeline client against the Postgres store with
// settings from the environment.
func NewPipeline(conn *pgxpool.Pool, aiClient ai.GraphAIClient) *graph.PipelineClient {
	return graph.NewPipelineClient(graph.NewPipelineClientParams{
		Storage:            pgxstore.NewGraphDBStorage(conn),
		Client:             aiClient,
		TokenEncoder:       util.GetEnvString("TOKEN_ENCODER", "o200k_base"),
		MaxBodyTokens:      int(util.GetEnvNumeric("MAX_BODY_TOKENS", 8000)),
		MaxRetries:         int(util.GetEnvNumeric("AI_MAX_RETRIES", 3)),
		RecentPapersWindow: int(util.GetEnvNumeric("RECENT_PAPERS_WINDOW", 10)),
		ChunkDelay:         time.Duration(util.GetEnvNumeric("BATCH_CHUNK_DELAY_MS", 1000)) * time.Millisecond,
	})
}

func toCreateParams(m QueuePaperMsg) store.CreatePaperParams {
	return store.CreatePaperParams{
		Title:           m.Title,
		Abstract:        m.Abstract,
		FullText:        m.FullText,
		Authors:         m.Authors,
		ExternalID:      m.ExternalID,
		DOI:             m.DOI,
		PublicationDate: m.PublicationDate,
		Venue:           m.Venue,
	}
}

// ProcessIngestMessage ingests the papers named in the message. A summary
// with per-paper failures is logged; the message as a whole only fails on
// malformed payloads or controller-level errors, since per-paper failures
// are already isolated and recorded on the papers themselves.
func ProcessIngestMessage(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(QueueIngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	papers := make([]store.CreatePaperParams, 0, len(data.Papers))
	for _, m := range data.Papers {
		papers = append(papers, toCreateParams(m))
	}

	concurrency := data.Concurrency
	if concurrency <= 0 {
		concurrency = int(util.GetEnvNumeric("INGEST_CONCURRENCY", 3))
	}

	p := NewPipeline(conn, aiClient)
	summary, err := p.IngestMany(ctx, papers, concurrency)
	if err != nil {
		return err
	}

	logger.Info("[Queue] Ingest batch done",
		"success", summary.SuccessCount,
		"failure", summary.FailureCount,
	)
	for _, failure := range summary.Failures {
		logger.Warn("[Queue] Paper failed", "title", failure.Title, "err", failure.Error)
	}
	return nil
}

// ProcessReprocessMessage re-runs the pipeline for one existing paper.
func ProcessReprocessMessage(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(QueueReprocessMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	p := NewPipeline(conn, aiClient)
	paper, err := p.ReprocessPaper(ctx, data.PaperID)
	if err != nil {
		return err
	}
	logger.Info("[Queue] Paper reprocessed", "paper_id", paper.ID, "status", paper.Status)
	return nil
}
