package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monbixi/stats-backend-go/internal/database"
	"github.com/monbixi/stats-backend-go/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func testRide(startMs int64, startName, endName string) models.Ride {
	return models.Ride{
		RideID:          "r",
		StartTimeMs:     startMs,
		EndTimeMs:       startMs + 600_000,
		StartAddressStr: startName,
		EndAddressStr:   endName,
		StartAddress:    models.Location{Lat: 45.50, Lon: -73.57},
		EndAddress:      models.Location{Lat: 45.51, Lon: -73.56},
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Migrate(db))
}

func TestRideRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewRideRepository(db)

	t.Run("add and dedup", func(t *testing.T) {
		inserted, err := repo.Add(testRide(1000, "A", "B"))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.Add(testRide(1000, "A", "B"))
		require.NoError(t, err)
		assert.False(t, inserted)

		count, err := repo.CountInRange(0, 2000)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("range queries", func(t *testing.T) {
		for _, ms := range []int64{2000, 3000, 4000, 5000} {
			_, err := repo.Add(testRide(ms, "A", "B"))
			require.NoError(t, err)
		}

		count, err := repo.CountInRange(2000, 5000)
		require.NoError(t, err)
		assert.Equal(t, 3, count, "upper bound is exclusive")

		desc, err := repo.ListRange(1000, 6000, true)
		require.NoError(t, err)
		require.Len(t, desc, 5)
		assert.Equal(t, int64(5000), desc[0].StartTimeMs)
		assert.Equal(t, int64(1000), desc[4].StartTimeMs)

		asc, err := repo.ListRange(1000, 6000, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), asc[0].StartTimeMs)
	})

	t.Run("newest and oldest", func(t *testing.T) {
		newest, err := repo.NewestFrom(2000)
		require.NoError(t, err)
		require.NotNil(t, newest)
		assert.Equal(t, int64(5000), newest.StartTimeMs)

		oldest, err := repo.OldestBefore(4000)
		require.NoError(t, err)
		require.NotNil(t, oldest)
		assert.Equal(t, int64(1000), oldest.StartTimeMs)

		missing, err := repo.NewestFrom(99999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("round trips fields", func(t *testing.T) {
		ride := testRide(7000, "Métro Mont-Royal", "Parc La Fontaine")
		_, err := repo.Add(ride)
		require.NoError(t, err)

		got, err := repo.NewestFrom(7000)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ride, *got)
	})
}

func TestStatsRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db)

	snap := models.StatsSnapshot{
		TimeMs: 5000,
		Stats: models.StatsDetail{
			Year:             2025,
			RideCountYearly:  2,
			MostUsedStation:  "Station A",
			MostUsedStations: map[string]int{"Station A": 2, "Station B": 1},
		},
	}

	t.Run("put and get", func(t *testing.T) {
		require.NoError(t, repo.Put(snap))

		got, err := repo.GetByTimeMs(5000)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, snap.Stats.Year, got.Stats.Year)
		assert.Equal(t, snap.Stats.MostUsedStations, got.Stats.MostUsedStations)
	})

	t.Run("put overwrites", func(t *testing.T) {
		updated := snap
		updated.Stats.RideCountYearly = 3
		require.NoError(t, repo.Put(updated))

		got, err := repo.GetByTimeMs(5000)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3, got.Stats.RideCountYearly)
	})

	t.Run("latest in range", func(t *testing.T) {
		older := models.StatsSnapshot{TimeMs: 1000, Stats: models.StatsDetail{Year: 2025}}
		require.NoError(t, repo.Put(older))

		got, err := repo.LatestInRange(0, 10000)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(5000), got.TimeMs)

		none, err := repo.LatestInRange(6000, 10000)
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}
