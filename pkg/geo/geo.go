// Package geo estimates trip distances from coordinates when the client did
// not supply a routed distance.
//
// Distances use the Haversine formula on WGS-84 coordinates, stretched by a
// constant road factor. Travel time assumes a constant island driving speed.
package geo

import (
	"math"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusMiles is the mean radius of Earth in miles.
	EarthRadiusMiles = 3958.8

	// RoadFactor converts straight-line distance to a typical road distance.
	RoadFactor = 1.3

	// AverageSpeedMph is the assumed average driving speed on New Providence.
	AverageSpeedMph = 22.0
)

// Point is a WGS-84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate on the globe.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// ─── Distance ───────────────────────────────────────────────

// HaversineMiles returns the great-circle distance between two points in miles.
func HaversineMiles(a, b Point) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// RoadMiles estimates the driving distance of an ordered list of stops,
// rounded to a tenth of a mile.
func RoadMiles(stops ...Point) float64 {
	total := 0.0
	for i := 0; i < len(stops)-1; i++ {
		total += HaversineMiles(stops[i], stops[i+1])
	}
	return math.Round(total*RoadFactor*10) / 10
}

// DriveMinutes estimates driving time for miles at AverageSpeedMph, rounded
// up to the next whole minute.
func DriveMinutes(miles float64) int {
	if miles <= 0 {
		return 0
	}
	return int(math.Ceil(miles / AverageSpeedMph * 60))
}

// ─── Helpers ────────────────────────────────────────────────

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
