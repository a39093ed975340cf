package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/monbixi/stats-backend-go/internal/models"
)

// StatsRepository handles database operations for cached stats snapshots
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Put stores a snapshot, replacing any existing snapshot with the same key.
func (r *StatsRepository) Put(snap models.StatsSnapshot) error {
	detail, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats detail: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO stats (time_ms, year, detail) VALUES (?, ?, ?)
		ON CONFLICT(time_ms) DO UPDATE SET year = excluded.year, detail = excluded.detail`,
		snap.TimeMs, snap.Stats.Year, detail)
	if err != nil {
		return fmt.Errorf("failed to store stats snapshot %d: %w", snap.TimeMs, err)
	}
	return nil
}

// GetByTimeMs returns the snapshot stored under the given key, or nil.
func (r *StatsRepository) GetByTimeMs(timeMs int64) (*models.StatsSnapshot, error) {
	row := r.db.QueryRow(`SELECT time_ms, detail FROM stats WHERE time_ms = ?`, timeMs)
	return scanSnapshot(row)
}

// LatestInRange returns the most recent snapshot keyed within
// [startMs, endMs), or nil if none exists.
func (r *StatsRepository) LatestInRange(startMs, endMs int64) (*models.StatsSnapshot, error) {
	row := r.db.QueryRow(`SELECT time_ms, detail FROM stats
		WHERE time_ms >= ? AND time_ms < ?
		ORDER BY time_ms DESC LIMIT 1`, startMs, endMs)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*models.StatsSnapshot, error) {
	var snap models.StatsSnapshot
	var detail []byte
	err := row.Scan(&snap.TimeMs, &detail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stats snapshot: %w", err)
	}

	if err := json.Unmarshal(detail, &snap.Stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats detail: %w", err)
	}
	return &snap, nil
}
