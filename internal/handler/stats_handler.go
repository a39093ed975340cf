package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/monbixi/stats-backend-go/internal/models"
	"github.com/monbixi/stats-backend-go/internal/service"
	"github.com/monbixi/stats-backend-go/pkg/response"
)

// StatsHandler handles HTTP requests for yearly ride statistics
type StatsHandler struct {
	statsService  *service.StatsService
	ingestService *service.IngestService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService, ingestService *service.IngestService) *StatsHandler {
	return &StatsHandler{
		statsService:  statsService,
		ingestService: ingestService,
	}
}

type statsPayload struct {
	Snapshot  *models.StatsSnapshot `json:"snapshot"`
	PageCount int                   `json:"pageCount"`
}

func parseYear(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 3000 {
		response.BadRequest(c, "Invalid year parameter")
		return 0, false
	}
	return year, true
}

// GetYearStats handles GET /api/v1/stats/:year
// It serves the last cached snapshot without touching the remote source.
func (h *StatsHandler) GetYearStats(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}

	snap, err := h.statsService.LastSnapshot(year)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if snap == nil {
		response.NotFound(c, "No stats computed for this year yet")
		return
	}

	response.Success(c, statsPayload{Snapshot: snap, PageCount: snap.Stats.PageCount()})
}

// RefreshYearStats handles GET /api/v1/stats/:year/refresh
// It streams ingestion progress as server-sent events, then a final "stats"
// event carrying the computed snapshot. Closing the connection cancels the
// ingestion run; already-stored rides keep their place, so the next refresh
// resumes where this one stopped.
func (h *StatsHandler) RefreshYearStats(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	progress := make(chan float64, 16)
	errCh := make(chan error, 1)

	go func() {
		errCh <- h.ingestService.FetchYear(ctx, year, func(p float64) {
			select {
			case progress <- p:
			case <-ctx.Done():
			}
		})
		close(progress)
	}()

	for p := range progress {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	}

	if err := <-errCh; err != nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}

	snap, err := h.statsService.ComputeYear(year)
	if err != nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}

	c.SSEvent("progress", 1)
	c.SSEvent("stats", statsPayload{Snapshot: snap, PageCount: snap.Stats.PageCount()})
	c.Writer.Flush()
}
