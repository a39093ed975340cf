package main

import (
	"log"
	"os"

	"github.com/monbixi/stats-backend-go/internal/api"
	"github.com/monbixi/stats-backend-go/internal/bixi"
	"github.com/monbixi/stats-backend-go/internal/config"
	"github.com/monbixi/stats-backend-go/internal/database"
	"github.com/monbixi/stats-backend-go/internal/geo"
	"github.com/monbixi/stats-backend-go/internal/handler"
	"github.com/monbixi/stats-backend-go/internal/repository"
	"github.com/monbixi/stats-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// The geospatial index is reference data; refusing to start beats
	// serving wrong attributions.
	boroughsRaw, err := os.ReadFile(cfg.BoroughsPath)
	if err != nil {
		log.Fatal("Failed to read borough geometry:", err)
	}
	boroughs, err := geo.ParseBoroughs(boroughsRaw)
	if err != nil {
		log.Fatal("Failed to parse borough geometry:", err)
	}

	stationsRaw, err := os.ReadFile(cfg.StationsPath)
	if err != nil {
		log.Fatal("Failed to read station list:", err)
	}
	stations, err := geo.ParseStations(stationsRaw)
	if err != nil {
		log.Fatal("Failed to parse station list:", err)
	}

	index, err := geo.NewIndex(boroughs, stations)
	if err != nil {
		log.Fatal("Failed to build geospatial index:", err)
	}
	log.Printf("Geospatial index ready: %d boroughs, %d stations", len(boroughs), len(stations))

	rideRepo := repository.NewRideRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	source := bixi.NewClientWithEndpoint(cfg.GQLEndpoint, cfg.BixiCookie, cfg.FetchTimeout)

	retry := service.DefaultRetryPolicy()
	retry.BaseDelay = cfg.FetchBaseBackoff
	retry.MaxAttempts = cfg.FetchMaxAttempts

	ingestService := service.NewIngestService(rideRepo, source, retry)
	statsService := service.NewStatsService(rideRepo, statsRepo, index)

	router := api.SetupRouter(cfg,
		handler.NewStatsHandler(statsService, ingestService),
		handler.NewGeoHandler(index),
	)

	log.Printf("Server starting on %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
