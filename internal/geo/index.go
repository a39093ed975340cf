package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/monbixi/stats-backend-go/internal/models"
)

// stationCellLevel is the s2 cell level used to bucket stations for
// nearest-neighbor lookups (~2 km cells downtown).
const stationCellLevel = 12

type boroughArea struct {
	name   string
	loops  []*s2.Loop
	bounds []s2.Rect
}

// Index answers point-in-borough and nearest-station queries over the static
// reference data. Build one at startup and share it by reference; it is
// immutable after construction and safe for concurrent reads.
type Index struct {
	boroughs []boroughArea
	geometry []BoroughGeometry
	stations []models.Station
	byName   map[string]*models.Station
	cells    map[s2.CellID][]*models.Station
}

// NewIndex builds the geospatial index from borough geometry and the station
// list. Rings are simplified before loop construction, and every station is
// enriched with its containing borough (or "Inconnu").
func NewIndex(boroughs []BoroughGeometry, stations []models.Station) (*Index, error) {
	idx := &Index{
		byName: make(map[string]*models.Station, len(stations)),
		cells:  make(map[s2.CellID][]*models.Station),
	}

	for _, b := range boroughs {
		area := boroughArea{name: b.Name}
		simplified := BoroughGeometry{Name: b.Name}
		for _, ring := range b.Rings {
			ring = SimplifyRing(ring, SimplifyTolerance)
			loop, err := loopFromRing(ring)
			if err != nil {
				return nil, fmt.Errorf("borough %q: %w", b.Name, err)
			}
			simplified.Rings = append(simplified.Rings, ring)
			area.loops = append(area.loops, loop)
			area.bounds = append(area.bounds, loop.RectBound())
		}
		idx.boroughs = append(idx.boroughs, area)
		idx.geometry = append(idx.geometry, simplified)
	}

	idx.stations = make([]models.Station, len(stations))
	copy(idx.stations, stations)
	for i := range idx.stations {
		st := &idx.stations[i]
		if name, ok := idx.BoroughContaining(st.Lat, st.Lon); ok {
			st.Borough = name
		} else {
			st.Borough = "Inconnu"
		}
		idx.byName[st.Name] = st

		cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(st.Lat, st.Lon)).Parent(stationCellLevel)
		idx.cells[cell] = append(idx.cells[cell], st)
	}

	return idx, nil
}

func loopFromRing(ring []LatLon) (*s2.Loop, error) {
	// GeoJSON rings repeat the first vertex at the end; s2 loops do not.
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring has only %d distinct point(s)", len(ring))
	}

	points := make([]s2.Point, 0, len(ring))
	for _, p := range ring {
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)))
	}

	loop := s2.LoopFromPoints(points)
	// Reference rings come in either winding order; keep the small side.
	if loop.Area() > 2*math.Pi {
		loop.Invert()
	}
	return loop, nil
}

// BoroughContaining returns the name of the borough whose exterior ring
// contains the point. The bounding rect check rejects most candidates before
// the full containment test.
func (idx *Index) BoroughContaining(lat, lon float64) (string, bool) {
	ll := s2.LatLngFromDegrees(lat, lon)
	p := s2.PointFromLatLng(ll)

	for _, b := range idx.boroughs {
		for i, loop := range b.loops {
			if !b.bounds[i].ContainsLatLng(ll) {
				continue
			}
			if loop.ContainsPoint(p) {
				return b.name, true
			}
		}
	}
	return "", false
}

// NearestStation returns the closest known station within radiusMeters of
// the point, or nil if there is none.
func (idx *Index) NearestStation(lat, lon float64, radiusMeters float64) *models.Station {
	ll := s2.LatLngFromDegrees(lat, lon)
	center := s2.PointFromLatLng(ll)
	region := s2.CapFromCenterAngle(center, s1.Angle(radiusMeters/EarthRadiusMeters))

	coverer := s2.RegionCoverer{
		MinLevel: stationCellLevel,
		MaxLevel: stationCellLevel,
		MaxCells: 16,
	}

	var best *models.Station
	bestDist := radiusMeters
	for _, cell := range coverer.Covering(region) {
		for _, st := range idx.cells[cell] {
			d := Distance(lat, lon, st.Lat, st.Lon)
			if d <= bestDist {
				best = st
				bestDist = d
			}
		}
	}
	return best
}

// StationByName returns the enriched station with this exact name, or nil.
func (idx *Index) StationByName(name string) *models.Station {
	return idx.byName[name]
}

// Stations returns all known stations, enriched with their borough.
func (idx *Index) Stations() []models.Station {
	return idx.stations
}

// Boroughs returns the simplified borough geometry, suitable for rendering.
func (idx *Index) Boroughs() []BoroughGeometry {
	return idx.geometry
}
