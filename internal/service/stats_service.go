package service

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/monbixi/stats-backend-go/internal/geo"
	"github.com/monbixi/stats-backend-go/internal/models"
	"github.com/monbixi/stats-backend-go/internal/repository"
)

const (
	// stationMatchRadiusMeters bounds how far a reported position may drift
	// from a known station before the reported name is considered stale.
	stationMatchRadiusMeters = 300.0
	// maxNameEditDistance is the edit distance under which a stale name is
	// assumed to be a misspelling of the nearest station.
	maxNameEditDistance = 5

	unknownStation = "Station inconnue"
	unknownBorough = "Inconnu"
)

// StatsService computes yearly ride summaries from the stored ride history.
type StatsService struct {
	rides     *repository.RideRepository
	snapshots *repository.StatsRepository
	geoIndex  *geo.Index
}

// NewStatsService creates a new stats service
func NewStatsService(rides *repository.RideRepository, snapshots *repository.StatsRepository, geoIndex *geo.Index) *StatsService {
	return &StatsService{
		rides:     rides,
		snapshots: snapshots,
		geoIndex:  geoIndex,
	}
}

// LastSnapshot returns the most recent cached snapshot for the year, or nil
// if none has been computed yet.
func (s *StatsService) LastSnapshot(year int) (*models.StatsSnapshot, error) {
	startMs, endMs := YearBounds(year)
	snap, err := s.snapshots.LatestInRange(startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("stats for year %d: %w", year, err)
	}
	return snap, nil
}

// ComputeYear computes the StatsDetail for a year from the rides currently
// stored. The result is cached under the newest contributing ride's start
// time: as long as no newer ride appears, the cached snapshot is returned
// without recomputation.
func (s *StatsService) ComputeYear(year int) (*models.StatsSnapshot, error) {
	startMs, endMs := YearBounds(year)
	rides, err := s.rides.ListRange(startMs, endMs, true)
	if err != nil {
		return nil, fmt.Errorf("stats for year %d: %w", year, err)
	}

	var timeMs int64
	if len(rides) > 0 {
		timeMs = rides[0].StartTimeMs
	}

	if cached, err := s.snapshots.GetByTimeMs(timeMs); err != nil {
		return nil, fmt.Errorf("stats for year %d: %w", year, err)
	} else if cached != nil && cached.Stats.Year == year {
		return cached, nil
	}

	detail := s.computeDetail(year, rides)
	snap := models.StatsSnapshot{TimeMs: timeMs, Stats: *detail}
	if err := s.snapshots.Put(snap); err != nil {
		return nil, fmt.Errorf("stats for year %d: %w", year, err)
	}

	return &snap, nil
}

func (s *StatsService) computeDetail(year int, rides []models.Ride) *models.StatsDetail {
	physical := physicalStats(rides)

	stationTable := models.NewFrequencyTable()
	boroughTable := models.NewFrequencyTable()
	for _, r := range rides {
		stationTable.Add(
			s.fixStationName(r.StartAddressStr, r.StartAddress),
			s.fixStationName(r.EndAddressStr, r.EndAddress),
		)
		boroughTable.Add(
			s.boroughFor(r.StartAddressStr, r.StartAddress),
			s.boroughFor(r.EndAddressStr, r.EndAddress),
		)
	}

	var totalTime, totalDist float64
	for _, p := range physical {
		totalTime += p.Duration
		totalDist += p.Distance
	}

	avgTime, avgDist := 0.0, 0.0
	if len(physical) > 0 {
		avgTime = totalTime / float64(len(physical))
		avgDist = totalDist / float64(len(physical))
	}

	return &models.StatsDetail{
		Year:                year,
		RideCountYearly:     len(physical),
		RideTimeAndDist:     physical,
		AverageRideTime:     avgTime,
		AverageRideDist:     avgDist,
		TotalTimeYearly:     totalTime,
		TotalDistanceYearly: totalDist,
		MostUsedStation:     stationTable.MostFrequent,
		MostUsedStations:    stationTable.Counts,
		MostVisitedBorough:  boroughTable.MostFrequent,
		MostVisitedBoroughs: boroughTable.Counts,
		WinterRides:         winterRideCount(rides, year),
	}
}

// physicalStats derives distance, duration and speed per ride, dropping
// problematic rides. Round trips to the same station start with zero
// distance and are then assigned a synthetic one from the average speed of
// the remaining rides.
func physicalStats(rides []models.Ride) []models.RideTimeAndDist {
	stats := make([]models.RideTimeAndDist, 0, len(rides))
	for _, r := range rides {
		duration := float64(r.EndTimeMs-r.StartTimeMs) / 1000
		if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
			log.Printf("Warning: ride %q is problematic (start %d, end %d), skipping",
				r.RideID, r.StartTimeMs, r.EndTimeMs)
			continue
		}

		var dist float64
		if r.StartAddressStr != r.EndAddressStr {
			// Two legs through an intermediate corner point; deliberately
			// longer than the direct line, to approximate street travel.
			dist = geo.Distance(r.StartAddress.Lat, r.StartAddress.Lon, r.EndAddress.Lat, r.StartAddress.Lon) +
				geo.Distance(r.EndAddress.Lat, r.StartAddress.Lon, r.EndAddress.Lat, r.EndAddress.Lon)
		}

		stats = append(stats, models.RideTimeAndDist{
			Distance: dist,
			Duration: duration,
			Speed:    dist / duration,
		})
	}

	var speedSum float64
	moving := 0
	for _, st := range stats {
		if st.Distance > 0 {
			speedSum += st.Speed
			moving++
		}
	}
	avgSpeed := 0.0
	if moving > 0 {
		avgSpeed = speedSum / float64(moving)
	}

	for i := range stats {
		if stats[i].Distance == 0 {
			stats[i].Distance = 0.75 * avgSpeed * stats[i].Duration
			stats[i].Speed = avgSpeed
		}
	}

	return stats
}

// fixStationName resolves the canonical name for a reported station. Names
// go stale upstream: stations get renamed or moved, so the reported string
// is only trusted when a station with that exact name sits near the reported
// coordinates.
func (s *StatsService) fixStationName(name string, loc models.Location) string {
	if st := s.geoIndex.StationByName(name); st != nil {
		if geo.Distance(st.Lat, st.Lon, loc.Lat, loc.Lon) < stationMatchRadiusMeters {
			return name
		}
	}

	if found := s.geoIndex.NearestStation(loc.Lat, loc.Lon, stationMatchRadiusMeters); found != nil {
		log.Printf("Station %q is probably stale, closest known station is %q in %s",
			name, found.Name, found.Borough)
		if levenshtein.ComputeDistance(name, found.Name) < maxNameEditDistance {
			return found.Name
		}
		return fmt.Sprintf("%s #%s (%s)", unknownStation, coordDigest(loc), found.Borough)
	}

	log.Printf("Warning: station %q has no close match", name)
	return unknownStation
}

// boroughFor resolves the borough a ride endpoint belongs to, going through
// the known station nearest to the reported coordinates.
func (s *StatsService) boroughFor(name string, loc models.Location) string {
	if st := s.geoIndex.StationByName(name); st != nil {
		if geo.Distance(st.Lat, st.Lon, loc.Lat, loc.Lon) < stationMatchRadiusMeters {
			return st.Borough
		}
	}

	if found := s.geoIndex.NearestStation(loc.Lat, loc.Lon, stationMatchRadiusMeters); found != nil {
		return found.Borough
	}
	return unknownBorough
}

// coordDigest derives a short deterministic tag from the coordinate sum, so
// unmatched stations stay distinguishable in the frequency table.
func coordDigest(loc models.Location) string {
	v := math.Abs(1e6 * (loc.Lat + loc.Lon))
	digits := strconv.FormatInt(int64(v), 10)
	if len(digits) >= 7 {
		return digits[3:7]
	}
	return digits
}

// winterRideCount counts rides starting in the Nov 16 - Apr 14 window of the
// query year. The window wraps the calendar year boundary, hence the OR of
// the two comparisons.
func winterRideCount(rides []models.Ride, year int) int {
	winterStart := time.Date(year, time.November, 16, 0, 0, 0, 0, time.UTC).UnixMilli()
	winterEnd := time.Date(year, time.April, 14, 23, 59, 59, 0, time.UTC).UnixMilli()

	count := 0
	for _, r := range rides {
		if r.StartTimeMs > winterStart || r.StartTimeMs < winterEnd {
			count++
		}
	}
	return count
}
