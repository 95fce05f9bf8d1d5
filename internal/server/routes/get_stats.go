package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

// GetStatsHandler aggregates graph counts by status and kind.
func GetStatsHandler(c echo.Context) error {
	type statsResponse struct {
		Message string       `json:"message"`
		Stats   *store.Stats `json:"stats,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	stats, err := storage.GetStats(c.Request().Context())
	if err != nil {
		logger.Error("Failed to get stats", "err", err)
		return c.JSON(http.StatusInternalServerError, statsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, statsResponse{
		Message: "OK",
		Stats:   &stats,
	})
}
