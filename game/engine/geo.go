package engine

import "math"

// EarthRadiusKm is the mean spherical earth radius
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometers.
// It is used for maritime legs and as the straight-line reference for estimates.
func HaversineKm(a, b Coordinates) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// clamp rounding noise so Asin stays defined
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
