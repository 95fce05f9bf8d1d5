package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/queue"
	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
)

// ReprocessPaperHandler re-runs the extraction pipeline for an existing
// paper. Completed and failed papers are both eligible; convergent upserts
// keep repeated runs from duplicating graph data.
func ReprocessPaperHandler(c echo.Context) error {
	type reprocessParams struct {
		PaperID string `param:"id" validate:"required"`
		Async   bool   `json:"async"`
	}

	type reprocessResponse struct {
		Message string        `json:"message"`
		Paper   *common.Paper `json:"paper,omitempty"`
	}

	data := new(reprocessParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, reprocessResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, reprocessResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if data.Async {
		body, err := json.Marshal(queue.QueueReprocessMsg{PaperID: data.PaperID})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, reprocessResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.ReprocessQueue, body); err != nil {
			logger.Error("Failed to publish to reprocess_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, reprocessResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, reprocessResponse{
			Message: "Paper queued for reprocessing",
		})
	}

	p := queue.NewPipeline(app.DBConn, app.AiClient)
	paper, err := p.ReprocessPaper(ctx, data.PaperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, reprocessResponse{
				Message: "Paper not found",
			})
		}
		logger.Error("Failed to reprocess paper", "paper_id", data.PaperID, "err", err)
		return ingestErrorResponse(c, err, &paper)
	}

	return c.JSON(http.StatusOK, reprocessResponse{
		Message: "Paper reprocessed successfully",
		Paper:   &paper,
	})
}
