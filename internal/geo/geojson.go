package geo

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/monbixi/stats-backend-go/internal/models"
)

// LatLon is a raw coordinate as it appears in the reference data.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoroughGeometry is the exterior geometry of one borough. Rings holds one
// exterior ring per polygon part; interior rings (holes) are dropped during
// parsing.
type BoroughGeometry struct {
	Name  string     `json:"name"`
	Rings [][]LatLon `json:"rings"`
}

type geoJSONFeatureCollection struct {
	Features []struct {
		Properties struct {
			Nom string `json:"NOM"`
		} `json:"properties"`
		Geometry struct {
			Type        string           `json:"type"`
			Coordinates [][][][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ParseBoroughs decodes a GeoJSON FeatureCollection of borough polygons.
// Every feature must be a MultiPolygon; anything else means the reference
// file is broken and the index cannot be trusted, so parsing fails.
func ParseBoroughs(data []byte) ([]BoroughGeometry, error) {
	var fc geoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode borough GeoJSON: %w", err)
	}

	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("borough GeoJSON contains no features")
	}

	boroughs := make([]BoroughGeometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry.Type != "MultiPolygon" {
			return nil, fmt.Errorf("borough %q: unsupported geometry type %q", f.Properties.Nom, f.Geometry.Type)
		}

		b := BoroughGeometry{Name: f.Properties.Nom}
		for _, poly := range f.Geometry.Coordinates {
			if len(poly) == 0 {
				continue
			}
			if len(poly) > 1 {
				log.Printf("Warning: borough %q has %d interior ring(s), ignoring them", f.Properties.Nom, len(poly)-1)
			}
			// GeoJSON positions are [lon, lat]
			ring := make([]LatLon, 0, len(poly[0]))
			for _, pos := range poly[0] {
				ring = append(ring, LatLon{Lat: pos[1], Lon: pos[0]})
			}
			b.Rings = append(b.Rings, ring)
		}
		boroughs = append(boroughs, b)
	}

	return boroughs, nil
}

type stationFile struct {
	Data struct {
		Supply struct {
			Stations []struct {
				StationName string `json:"stationName"`
				Location    struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"stations"`
		} `json:"supply"`
	} `json:"data"`
}

// ParseStations decodes the station reference list (the raw supply dump
// shape, with lat/lng locations).
func ParseStations(data []byte) ([]models.Station, error) {
	var f stationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode station list: %w", err)
	}

	stations := make([]models.Station, 0, len(f.Data.Supply.Stations))
	for _, s := range f.Data.Supply.Stations {
		stations = append(stations, models.Station{
			Name: s.StationName,
			Lat:  s.Location.Lat,
			Lon:  s.Location.Lng,
		})
	}

	return stations, nil
}
