package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monbixi/stats-backend-go/internal/bixi"
	"github.com/monbixi/stats-backend-go/internal/database"
	"github.com/monbixi/stats-backend-go/internal/models"
	"github.com/monbixi/stats-backend-go/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		MaxAttempts:    0,
		ResetOnSuccess: true,
	}
}

// fakeSource serves pre-paginated ride history, newest first, and can fail
// the first few calls.
type fakeSource struct {
	pages        [][]models.Ride
	failuresLeft int
	calls        int
}

func (f *fakeSource) FetchPage(_ context.Context, offset int) (*models.RideBatch, error) {
	f.calls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, errors.New("transient network failure")
	}

	page := offset / bixi.PageSize
	if page >= len(f.pages) {
		return &models.RideBatch{}, nil
	}
	return &models.RideBatch{
		Rides:   f.pages[page],
		HasMore: page < len(f.pages)-1,
	}, nil
}

// rideAt builds a ride starting at startMs with distinct station names.
func rideAt(startMs int64) models.Ride {
	return models.Ride{
		RideID:          fmt.Sprintf("ride-%d", startMs),
		StartTimeMs:     startMs,
		EndTimeMs:       startMs + 600_000,
		StartAddressStr: "Station A",
		EndAddressStr:   "Station B",
		StartAddress:    models.Location{Lat: 45.50, Lon: -73.57},
		EndAddress:      models.Location{Lat: 45.51, Lon: -73.56},
	}
}

// historyPages builds pages of 10 rides, newest first, one ride per hour
// counting back from newestMs.
func historyPages(newestMs int64, total int) [][]models.Ride {
	var pages [][]models.Ride
	var page []models.Ride
	for i := 0; i < total; i++ {
		page = append(page, rideAt(newestMs-int64(i)*3_600_000))
		if len(page) == bixi.PageSize {
			pages = append(pages, page)
			page = nil
		}
	}
	if len(page) > 0 {
		pages = append(pages, page)
	}
	return pages
}

func TestFetchYearForwardFill(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, endMs := YearBounds(2025)
	// 25 rides, the oldest few predating the year
	source := &fakeSource{pages: historyPages(startMs+20*3_600_000, 25)}
	svc := NewIngestService(rides, source, testRetryPolicy())

	var progress []float64
	err := svc.FetchYear(context.Background(), 2025, func(p float64) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	// Everything before endOfYear is stored; only rides within the year
	// count toward it.
	inYear, err := rides.CountInRange(startMs, endMs)
	require.NoError(t, err)
	assert.Equal(t, 21, inYear)

	require.NotEmpty(t, progress)
	for _, p := range progress {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.Equal(t, 1.0, progress[len(progress)-1])
}

func TestFetchYearIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, endMs := YearBounds(2025)
	pages := historyPages(startMs+20*3_600_000, 25)

	svc := NewIngestService(rides, &fakeSource{pages: pages}, testRetryPolicy())
	require.NoError(t, svc.FetchYear(context.Background(), 2025, nil))

	first, err := rides.CountInRange(startMs, endMs)
	require.NoError(t, err)

	svc = NewIngestService(rides, &fakeSource{pages: pages}, testRetryPolicy())
	require.NoError(t, svc.FetchYear(context.Background(), 2025, nil))

	second, err := rides.CountInRange(startMs, endMs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFetchYearStopsWhenStoreIsCurrent(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, _ := YearBounds(2025)
	pages := historyPages(startMs+20*3_600_000, 25)

	// The store already holds the whole history, including a ride from
	// before the year boundary.
	for _, page := range pages {
		for _, ride := range page {
			_, err := rides.Add(ride)
			require.NoError(t, err)
		}
	}

	source := &fakeSource{pages: pages}
	svc := NewIngestService(rides, source, testRetryPolicy())
	require.NoError(t, svc.FetchYear(context.Background(), 2025, nil))

	// Forward fill sees nothing newer after page one and the oldest known
	// ride predates the year, so the backward fill never runs.
	assert.Equal(t, 1, source.calls)
}

func TestFetchYearBackwardFill(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, endMs := YearBounds(2025)
	pages := historyPages(startMs+20*3_600_000, 25)

	// Pre-seed only the newest page; the rest of the year must come from
	// the backward fill resuming at the last contiguous page boundary.
	for _, ride := range pages[0] {
		_, err := rides.Add(ride)
		require.NoError(t, err)
	}

	source := &fakeSource{pages: pages}
	svc := NewIngestService(rides, source, testRetryPolicy())
	require.NoError(t, svc.FetchYear(context.Background(), 2025, nil))

	inYear, err := rides.CountInRange(startMs, endMs)
	require.NoError(t, err)
	assert.Equal(t, 21, inYear)
}

func TestFetchYearRetriesTransientFailures(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, endMs := YearBounds(2025)
	source := &fakeSource{
		pages:        historyPages(startMs+10*3_600_000, 5),
		failuresLeft: 2,
	}
	svc := NewIngestService(rides, source, testRetryPolicy())

	require.NoError(t, svc.FetchYear(context.Background(), 2025, nil))

	inYear, err := rides.CountInRange(startMs, endMs)
	require.NoError(t, err)
	assert.Equal(t, 5, inYear)
	assert.Equal(t, 3, source.calls, "two failures then one success")
}

func TestFetchYearRetryCap(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, _ := YearBounds(2025)
	source := &fakeSource{
		pages:        historyPages(startMs+10*3_600_000, 5),
		failuresLeft: 100,
	}
	retry := testRetryPolicy()
	retry.MaxAttempts = 3
	svc := NewIngestService(rides, source, retry)

	err := svc.FetchYear(context.Background(), 2025, nil)
	require.Error(t, err)
	assert.Equal(t, 3, source.calls)
}

func TestFetchYearCancellation(t *testing.T) {
	db := newTestDB(t)
	rides := repository.NewRideRepository(db)

	startMs, _ := YearBounds(2025)
	svc := NewIngestService(rides, &fakeSource{pages: historyPages(startMs+10*3_600_000, 5)}, testRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.FetchYear(ctx, 2025, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressEstimate(t *testing.T) {
	t.Run("no reference point", func(t *testing.T) {
		assert.Equal(t, 0.0, progressEstimate(0, 500, 1000))
	})

	t.Run("halfway", func(t *testing.T) {
		assert.InDelta(t, 0.5, progressEstimate(2000, 1500, 1000), 1e-9)
	})

	t.Run("past the boundary clamps to one", func(t *testing.T) {
		assert.Equal(t, 1.0, progressEstimate(2000, 500, 1000))
	})

	t.Run("first ride before boundary", func(t *testing.T) {
		assert.Equal(t, 0.0, progressEstimate(500, 400, 1000))
	})
}
