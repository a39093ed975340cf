package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monbixi/stats-backend-go/internal/config"
	"github.com/monbixi/stats-backend-go/internal/handler"
	"github.com/monbixi/stats-backend-go/internal/middleware"
)

// SetupRouter wires middleware and routes.
func SetupRouter(cfg *config.Config, statsHandler *handler.StatsHandler, geoHandler *handler.GeoHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(60, time.Minute))

	// CORS, the extension calls from a browser origin
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Monbixi stats backend is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		api.GET("/stats/:year", statsHandler.GetYearStats)
		api.GET("/stats/:year/refresh", statsHandler.RefreshYearStats)
		api.GET("/stations", geoHandler.GetStations)
		api.GET("/boroughs", geoHandler.GetBoroughs)
	}

	return r
}
