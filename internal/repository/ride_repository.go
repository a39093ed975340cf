package repository

import (
	"database/sql"
	"fmt"

	"github.com/monbixi/stats-backend-go/internal/models"
)

// RideRepository handles database operations for rides
type RideRepository struct {
	db *sql.DB
}

// NewRideRepository creates a new ride repository
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

const rideColumns = `start_time_ms, ride_id, end_time_ms, start_name, end_name,
	start_lat, start_lon, end_lat, end_lon`

// Add inserts a ride, keyed by its start time. Inserting a ride that is
// already present is a no-op, which makes replayed pages safe; the returned
// bool reports whether a row was actually written.
func (r *RideRepository) Add(ride models.Ride) (bool, error) {
	res, err := r.db.Exec(`INSERT OR IGNORE INTO rides (`+rideColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ride.StartTimeMs, ride.RideID, ride.EndTimeMs,
		ride.StartAddressStr, ride.EndAddressStr,
		ride.StartAddress.Lat, ride.StartAddress.Lon,
		ride.EndAddress.Lat, ride.EndAddress.Lon,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert ride %d: %w", ride.StartTimeMs, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// NewestFrom returns the most recent ride starting at or after minMs,
// or nil if there is none.
func (r *RideRepository) NewestFrom(minMs int64) (*models.Ride, error) {
	row := r.db.QueryRow(`SELECT `+rideColumns+` FROM rides
		WHERE start_time_ms >= ? ORDER BY start_time_ms DESC LIMIT 1`, minMs)
	return scanRide(row)
}

// OldestBefore returns the oldest ride starting before maxMs,
// or nil if there is none.
func (r *RideRepository) OldestBefore(maxMs int64) (*models.Ride, error) {
	row := r.db.QueryRow(`SELECT `+rideColumns+` FROM rides
		WHERE start_time_ms < ? ORDER BY start_time_ms ASC LIMIT 1`, maxMs)
	return scanRide(row)
}

// CountInRange counts rides with start time in [startMs, endMs).
func (r *RideRepository) CountInRange(startMs, endMs int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM rides
		WHERE start_time_ms >= ? AND start_time_ms < ?`, startMs, endMs).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rides: %w", err)
	}
	return count, nil
}

// ListRange returns rides with start time in [startMs, endMs), ordered by
// start time, descending when desc is true.
func (r *RideRepository) ListRange(startMs, endMs int64, desc bool) ([]models.Ride, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	rows, err := r.db.Query(`SELECT `+rideColumns+` FROM rides
		WHERE start_time_ms >= ? AND start_time_ms < ?
		ORDER BY start_time_ms `+order, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []models.Ride
	for rows.Next() {
		var ride models.Ride
		if err := rows.Scan(
			&ride.StartTimeMs, &ride.RideID, &ride.EndTimeMs,
			&ride.StartAddressStr, &ride.EndAddressStr,
			&ride.StartAddress.Lat, &ride.StartAddress.Lon,
			&ride.EndAddress.Lat, &ride.EndAddress.Lon,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		rides = append(rides, ride)
	}

	return rides, rows.Err()
}

func scanRide(row *sql.Row) (*models.Ride, error) {
	var ride models.Ride
	err := row.Scan(
		&ride.StartTimeMs, &ride.RideID, &ride.EndTimeMs,
		&ride.StartAddressStr, &ride.EndAddressStr,
		&ride.StartAddress.Lat, &ride.StartAddress.Lon,
		&ride.EndAddress.Lat, &ride.EndAddress.Lon,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ride: %w", err)
	}
	return &ride, nil
}
