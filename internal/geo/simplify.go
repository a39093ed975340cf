package geo

import "math"

// SimplifyTolerance is the default ring simplification tolerance in degrees,
// roughly 10 m at Montreal's latitude.
const SimplifyTolerance = 1e-4

// SimplifyRing reduces a polygon ring with the Douglas-Peucker algorithm.
// Endpoints are always kept. A ring of fewer than 3 points is returned as-is.
func SimplifyRing(ring []LatLon, tolerance float64) []LatLon {
	if len(ring) < 3 || tolerance <= 0 {
		return ring
	}

	keep := make([]bool, len(ring))
	keep[0] = true
	keep[len(ring)-1] = true
	douglasPeucker(ring, 0, len(ring)-1, tolerance, keep)

	out := make([]LatLon, 0, len(ring))
	for i, p := range ring {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func douglasPeucker(ring []LatLon, first, last int, tolerance float64, keep []bool) {
	if last <= first+1 {
		return
	}

	maxDist := 0.0
	maxIdx := first
	for i := first + 1; i < last; i++ {
		d := perpendicularDistance(ring[i], ring[first], ring[last])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist > tolerance {
		keep[maxIdx] = true
		douglasPeucker(ring, first, maxIdx, tolerance, keep)
		douglasPeucker(ring, maxIdx, last, tolerance, keep)
	}
}

// perpendicularDistance is the planar distance from p to the segment a-b,
// in degrees. Planar math is fine here: rings span a few km and the
// tolerance is coarse.
func perpendicularDistance(p, a, b LatLon) float64 {
	dx := b.Lon - a.Lon
	dy := b.Lat - a.Lat

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.Lon-a.Lon, p.Lat-a.Lat)
	}

	t := ((p.Lon-a.Lon)*dx + (p.Lat-a.Lat)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	projX := a.Lon + t*dx
	projY := a.Lat + t*dy
	return math.Hypot(p.Lon-projX, p.Lat-projY)
}
