package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/queue"
	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/graph"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

type paperBody struct {
	Title           string     `json:"title" validate:"required"`
	Abstract        string     `json:"abstract"`
	FullText        string     `json:"full_text"`
	Authors         []string   `json:"authors"`
	ExternalID      string     `json:"external_id"`
	DOI             string     `json:"doi"`
	PublicationDate *time.Time `json:"publication_date"`
	Venue           string     `json:"venue"`
}

func (b paperBody) toCreateParams() store.CreatePaperParams {
	return store.CreatePaperParams{
		Title:           b.Title,
		Abstract:        b.Abstract,
		FullText:        b.FullText,
		Authors:         b.Authors,
		ExternalID:      b.ExternalID,
		DOI:             b.DOI,
		PublicationDate: b.PublicationDate,
		Venue:           b.Venue,
	}
}

func (b paperBody) toQueueMsg() queue.QueuePaperMsg {
	return queue.QueuePaperMsg{
		Title:           b.Title,
		Abstract:        b.Abstract,
		FullText:        b.FullText,
		Authors:         b.Authors,
		ExternalID:      b.ExternalID,
		DOI:             b.DOI,
		PublicationDate: b.PublicationDate,
		Venue:           b.Venue,
	}
}

// IngestPaperHandler ingests a single paper. With async=true the paper is
// queued and the call returns immediately; otherwise the pipeline runs
// inline and the response carries the final paper state.
func IngestPaperHandler(c echo.Context) error {
	type ingestPaperBody struct {
		paperBody
		Async bool `json:"async"`
	}

	type ingestPaperResponse struct {
		Message string                    `json:"message"`
		Paper   *common.Paper             `json:"paper,omitempty"`
		Records []common.ExtractionRecord `json:"records,omitempty"`
	}

	data := new(ingestPaperBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestPaperResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestPaperResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if data.Async {
		msg := queue.QueueIngestMsg{Papers: []queue.QueuePaperMsg{data.toQueueMsg()}}
		body, err := json.Marshal(msg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ingestPaperResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
			logger.Error("Failed to publish to ingest_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, ingestPaperResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, ingestPaperResponse{
			Message: "Paper queued for ingestion",
		})
	}

	p := queue.NewPipeline(app.DBConn, app.AiClient)
	paper, err := p.IngestPaper(ctx, data.toCreateParams())
	if err != nil {
		logger.Error("Failed to ingest paper", "title", data.Title, "err", err)
		return ingestErrorResponse(c, err, &paper)
	}

	records, err := pgxstore.NewGraphDBStorage(app.DBConn).GetExtractionRecords(ctx, paper.ID)
	if err != nil {
		logger.Warn("Failed to load extraction records", "paper", paper.ID, "err", err)
	}

	return c.JSON(http.StatusOK, ingestPaperResponse{
		Message: "Paper ingested successfully",
		Paper:   &paper,
		Records: records,
	})
}

// IngestBatchHandler ingests a collection of papers with bounded
// concurrency and returns per-paper failure detail.
func IngestBatchHandler(c echo.Context) error {
	type ingestBatchBody struct {
		Papers      []paperBody `json:"papers" validate:"required,min=1,dive"`
		Concurrency int         `json:"concurrency"`
		Async       bool        `json:"async"`
	}

	type ingestBatchResponse struct {
		Message string              `json:"message"`
		Summary *graph.BatchSummary `json:"summary,omitempty"`
	}

	data := new(ingestBatchBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestBatchResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestBatchResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if data.Async {
		msg := queue.QueueIngestMsg{Concurrency: data.Concurrency}
		for _, paper := range data.Papers {
			msg.Papers = append(msg.Papers, paper.toQueueMsg())
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ingestBatchResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
			logger.Error("Failed to publish to ingest_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, ingestBatchResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, ingestBatchResponse{
			Message: "Batch queued for ingestion",
		})
	}

	papers := make([]store.CreatePaperParams, 0, len(data.Papers))
	for _, paper := range data.Papers {
		papers = append(papers, paper.toCreateParams())
	}

	p := queue.NewPipeline(app.DBConn, app.AiClient)
	summary, err := p.IngestMany(ctx, papers, data.Concurrency)
	if err != nil {
		logger.Error("Batch ingestion aborted", "err", err)
		return c.JSON(http.StatusInternalServerError, ingestBatchResponse{
			Message: "Batch ingestion aborted",
			Summary: &summary,
		})
	}

	return c.JSON(http.StatusOK, ingestBatchResponse{
		Message: "Batch ingestion finished",
		Summary: &summary,
	})
}

// ingestErrorResponse maps pipeline error types to HTTP statuses. The paper,
// when created, is included so callers can reprocess it later.
func ingestErrorResponse(c echo.Context, err error, paper *common.Paper) error {
	type errorResponse struct {
		Message string        `json:"message"`
		Paper   *common.Paper `json:"paper,omitempty"`
	}

	if paper != nil && paper.ID == "" {
		paper = nil
	}

	status := http.StatusInternalServerError
	switch err.(type) {
	case *common.ValidationError:
		status = http.StatusBadRequest
	case *common.ParseError:
		status = http.StatusBadGateway
	case *common.ExternalServiceError:
		status = http.StatusBadGateway
	}

	return c.JSON(status, errorResponse{
		Message: err.Error(),
		Paper:   paper,
	})
}
