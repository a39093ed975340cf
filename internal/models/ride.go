package models

// Location is a WGS84 coordinate pair
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ride represents one recorded bike trip. StartTimeMs is unique per member
// and doubles as the primary key in the rides table. The upstream API
// serializes timestamps as strings; they are parsed to epoch milliseconds at
// the client boundary and handled as integers everywhere else.
type Ride struct {
	RideID          string   `json:"rideId"`
	StartTimeMs     int64    `json:"startTimeMs"`
	EndTimeMs       int64    `json:"endTimeMs"`
	StartAddressStr string   `json:"startAddressStr"`
	EndAddressStr   string   `json:"endAddressStr"`
	StartAddress    Location `json:"startAddress"`
	EndAddress      Location `json:"endAddress"`
}

// RideBatch is one page of ride history, newest first.
type RideBatch struct {
	Rides   []Ride `json:"rides"`
	HasMore bool   `json:"hasMore"`
}

// Station is a named physical bike-share location. Borough is filled in at
// index construction time via point-in-polygon lookup.
type Station struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Borough string  `json:"borough"`
}
