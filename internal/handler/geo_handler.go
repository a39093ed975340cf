package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/monbixi/stats-backend-go/internal/geo"
	"github.com/monbixi/stats-backend-go/pkg/response"
)

// GeoHandler serves the static geospatial reference data consumed by the
// map rendering layer.
type GeoHandler struct {
	index *geo.Index
}

// NewGeoHandler creates a new geo handler
func NewGeoHandler(index *geo.Index) *GeoHandler {
	return &GeoHandler{index: index}
}

// GetStations handles GET /api/v1/stations
func (h *GeoHandler) GetStations(c *gin.Context) {
	response.Success(c, h.index.Stations())
}

// GetBoroughs handles GET /api/v1/boroughs
func (h *GeoHandler) GetBoroughs(c *gin.Context) {
	response.Success(c, h.index.Boroughs())
}
