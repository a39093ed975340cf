package service

import "time"

// YearBounds returns the [start, end) epoch-millisecond range of a calendar
// year in UTC.
func YearBounds(year int) (int64, int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	return start, end
}
