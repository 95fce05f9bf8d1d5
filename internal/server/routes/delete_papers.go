package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

// DeletePaperHandler removes a paper, its node and all incident edges.
func DeletePaperHandler(c echo.Context) error {
	type deletePaperParams struct {
		PaperID string `param:"id" validate:"required"`
	}

	type deletePaperResponse struct {
		Message string `json:"message"`
	}

	data := new(deletePaperParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, deletePaperResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, deletePaperResponse{
			Message: "Invalid request",
		})
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	if err := storage.DeletePaper(c.Request().Context(), data.PaperID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deletePaperResponse{
				Message: "Paper not found",
			})
		}
		logger.Error("Failed to delete paper", "paper_id", data.PaperID, "err", err)
		return c.JSON(http.StatusInternalServerError, deletePaperResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deletePaperResponse{
		Message: "Paper deleted successfully",
	})
}
