package server

import (
	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Paper ingestion routes
	apiRoutes.POST("/papers", routes.IngestPaperHandler)
	apiRoutes.POST("/papers/batch", routes.IngestBatchHandler)
	apiRoutes.POST("/papers/:id/reprocess", routes.ReprocessPaperHandler)

	// Paper query routes
	apiRoutes.GET("/papers", routes.ListPapersHandler)
	apiRoutes.GET("/papers/:id", routes.GetPaperHandler)
	apiRoutes.GET("/papers/:id/records", routes.GetPaperRecordsHandler)
	apiRoutes.DELETE("/papers/:id", routes.DeletePaperHandler)

	// Graph routes
	apiRoutes.GET("/nodes/search", routes.SearchNodesHandler)
	apiRoutes.GET("/nodes/:id/edges", routes.GetNodeEdgesHandler)
	apiRoutes.GET("/stats", routes.GetStatsHandler)
}
