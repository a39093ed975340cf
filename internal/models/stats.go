package models

// RideTimeAndDist holds the physical stats derived for a single ride.
// Distance is in meters, Duration in seconds, Speed in m/s.
type RideTimeAndDist struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
	Duration float64 `json:"duration"`
}

// StatsDetail is the computed yearly summary for one member.
type StatsDetail struct {
	Year                int               `json:"year"`
	RideCountYearly     int               `json:"rideCountYearly"`
	RideTimeAndDist     []RideTimeAndDist `json:"rideTimeAndDist"`
	AverageRideTime     float64           `json:"averageRideTime"`
	AverageRideDist     float64           `json:"averageRideDist"`
	TotalTimeYearly     float64           `json:"totalTimeYearly"`
	TotalDistanceYearly float64           `json:"totalDistanceYearly"`
	MostUsedStation     string            `json:"mostUsedStation"`
	MostUsedStations    map[string]int    `json:"mostUsedStations"`
	MostVisitedBorough  string            `json:"mostVisitedBorough"`
	MostVisitedBoroughs map[string]int    `json:"mostVisitedBoroughs"`
	WinterRides         int               `json:"winterRides"`
}

// PageCount returns the number of slideshow pages for this summary. The
// winter page only appears when there were winter rides.
func (d *StatsDetail) PageCount() int {
	if d.WinterRides == 0 {
		return 5
	}
	return 6
}

// StatsSnapshot is a cached StatsDetail keyed by the startTimeMs of the
// newest ride that contributed to it. A newer ride changes the key, which
// forces recomputation.
type StatsSnapshot struct {
	TimeMs int64       `json:"timeMs"`
	Stats  StatsDetail `json:"stats"`
}
