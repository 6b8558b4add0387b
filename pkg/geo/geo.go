// Package geo computes great-circle distances, travel-time estimates and
// the bounding boxes used to prefilter radius queries in SQL.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by DistanceKm
	EarthRadiusKm = 6371.0
	// DefaultSpeedKmh is the assumed average travel speed for ETAs
	DefaultSpeedKmh = 40.0
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the haversine distance between two points in kilometers.
// NaN inputs produce NaN.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// DistanceMeters is DistanceKm scaled to meters
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKm(lat1, lon1, lat2, lon2) * 1000
}

// ETAMinutes returns round(distanceKm / speedKmh * 60). A non-positive speed uses DefaultSpeedKmh.
func ETAMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return int(math.Round(distanceKm / speedKmh * 60))
}

// ValidCoordinates reports whether lat/lon are finite and within range
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Box is a latitude/longitude rectangle. When WrapsLongitude is set the
// longitude bounds are meaningless and must not be used as a filter.
type Box struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	WrapsLongitude bool
}

// Bounds returns a box that contains every point within radiusMeters of (lat, lon).
// It over-approximates; callers filter exactly with DistanceMeters afterwards.
func Bounds(lat, lon, radiusMeters float64) Box {
	angular := radiusMeters / 1000 / EarthRadiusKm
	latDelta := angular * 180 / math.Pi

	box := Box{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
	}

	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.MinLon, box.MaxLon = -180, 180
		box.WrapsLongitude = true
		return box
	}

	// widest longitude span occurs at the latitude edge farthest from the equator
	maxAbsLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	ratio := math.Sin(angular) / math.Cos(toRadians(maxAbsLat))
	if ratio >= 1 {
		box.MinLon, box.MaxLon = -180, 180
		box.WrapsLongitude = true
		return box
	}
	lonDelta := math.Asin(ratio) * 180 / math.Pi

	box.MinLon = lon - lonDelta
	box.MaxLon = lon + lonDelta
	if box.MinLon < -180 || box.MaxLon > 180 {
		box.MinLon, box.MaxLon = -180, 180
		box.WrapsLongitude = true
	}
	return box
}
