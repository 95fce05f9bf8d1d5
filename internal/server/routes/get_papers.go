package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

// ListPapersHandler lists papers filtered by processing status. Failed
// papers are the main use case; they can be re-ingested safely.
func ListPapersHandler(c echo.Context) error {
	type listPapersQuery struct {
		Status string `query:"status" validate:"required,oneof=pending processing completed failed"`
		Limit  int    `query:"limit"`
	}

	type listPapersResponse struct {
		Message string         `json:"message"`
		Papers  []common.Paper `json:"papers"`
	}

	data := new(listPapersQuery)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, listPapersResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, listPapersResponse{
			Message: "Invalid request",
		})
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	papers, err := storage.ListPapersByStatus(
		c.Request().Context(),
		common.ProcessingStatus(data.Status),
		data.Limit,
	)
	if err != nil {
		logger.Error("Failed to list papers", "status", data.Status, "err", err)
		return c.JSON(http.StatusInternalServerError, listPapersResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, listPapersResponse{
		Message: "OK",
		Papers:  papers,
	})
}

// GetPaperHandler returns one paper by id.
func GetPaperHandler(c echo.Context) error {
	type getPaperParams struct {
		PaperID string `param:"id" validate:"required"`
	}

	type getPaperResponse struct {
		Message string        `json:"message"`
		Paper   *common.Paper `json:"paper,omitempty"`
	}

	data := new(getPaperParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getPaperResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getPaperResponse{
			Message: "Invalid request",
		})
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	paper, err := storage.GetPaper(c.Request().Context(), data.PaperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getPaperResponse{
				Message: "Paper not found",
			})
		}
		logger.Error("Failed to get paper", "paper_id", data.PaperID, "err", err)
		return c.JSON(http.StatusInternalServerError, getPaperResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getPaperResponse{
		Message: "OK",
		Paper:   &paper,
	})
}

// GetPaperRecordsHandler returns the extraction audit trail for a paper.
func GetPaperRecordsHandler(c echo.Context) error {
	type getRecordsParams struct {
		PaperID string `param:"id" validate:"required"`
	}

	type getRecordsResponse struct {
		Message string                    `json:"message"`
		Records []common.ExtractionRecord `json:"records"`
	}

	data := new(getRecordsParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, getRecordsResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, getRecordsResponse{
			Message: "Invalid request",
		})
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	records, err := storage.GetExtractionRecords(c.Request().Context(), data.PaperID)
	if err != nil {
		logger.Error("Failed to get extraction records", "paper_id", data.PaperID, "err", err)
		return c.JSON(http.StatusInternalServerError, getRecordsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getRecordsResponse{
		Message: "OK",
		Records: records,
	})
}
