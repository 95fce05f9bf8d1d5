package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scholargraph/backend/internal/server/middleware"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
	"github.com/scholargraph/backend/pkg/store"
	pgxstore "github.com/scholargraph/backend/pkg/store/pgx"
)

// SearchNodesHandler runs a fuzzy name search, optionally scoped to a kind.
func SearchNodesHandler(c echo.Context) error {
	type searchQuery struct {
		Query string `query:"q" validate:"required"`
		Kind  string `query:"kind"`
		Limit int    `query:"limit"`
	}

	type searchResponse struct {
		Message string               `json:"message"`
		Results []store.SearchResult `json:"results"`
	}

	data := new(searchQuery)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{
			Message: "Invalid request",
		})
	}

	var kind *common.NodeKind
	if data.Kind != "" {
		k := common.NodeKind(data.Kind)
		if !common.ValidNodeKind(k) {
			return c.JSON(http.StatusBadRequest, searchResponse{
				Message: "Unknown node kind",
			})
		}
		kind = &k
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	results, err := storage.FuzzySearchNodes(c.Request().Context(), data.Query, kind, data.Limit)
	if err != nil {
		logger.Error("Failed to search nodes", "query", data.Query, "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, searchResponse{
		Message: "OK",
		Results: results,
	})
}

// GetNodeEdgesHandler returns the edges touching a node, filtered by
// direction and optionally by kind.
func GetNodeEdgesHandler(c echo.Context) error {
	type edgesParams struct {
		NodeID    string `param:"id" validate:"required"`
		Direction string `query:"direction" validate:"omitempty,oneof=outgoing incoming both"`
		Kind      string `query:"kind"`
	}

	type edgesResponse struct {
		Message string        `json:"message"`
		Edges   []common.Edge `json:"edges"`
	}

	data := new(edgesParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, edgesResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, edgesResponse{
			Message: "Invalid request",
		})
	}

	direction := store.Direction(data.Direction)
	if direction == "" {
		direction = store.DirectionBoth
	}

	var kind *common.EdgeKind
	if data.Kind != "" {
		k := common.EdgeKind(data.Kind)
		if !common.ValidEdgeKind(k) {
			return c.JSON(http.StatusBadRequest, edgesResponse{
				Message: "Unknown edge kind",
			})
		}
		kind = &k
	}

	app := c.(*middleware.AppContext).App
	storage := pgxstore.NewGraphDBStorage(app.DBConn)

	edges, err := storage.FindEdgesByEndpoint(c.Request().Context(), data.NodeID, direction, kind)
	if err != nil {
		logger.Error("Failed to get edges", "node_id", data.NodeID, "err", err)
		return c.JSON(http.StatusInternalServerError, edgesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, edgesResponse{
		Message: "OK",
		Edges:   edges,
	})
}
