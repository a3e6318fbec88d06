// Package geo provides the coordinate type and great-circle distance used by
// the claim scoring engine.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// Coordinate is a WGS 84 position in signed degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the coordinate is the (0,0) null island marker used
// for "unset".
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Distance returns the great-circle distance between a and b in kilometers
// using the haversine formula. Symmetric, and zero for identical points.
func Distance(a, b Coordinate) float64 {
	latDelta := radians(b.Lat - a.Lat)
	lonDelta := radians(b.Lon - a.Lon)

	sinLat := math.Sin(latDelta / 2)
	sinLon := math.Sin(lonDelta / 2)

	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon

	// Floating point can overshoot [0, 1] marginally for antipodal points,
	// which would make Sqrt(1-h) NaN.
	h = math.Min(math.Max(h, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
