package geo

import (
	"math"

	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b models.Coordinates) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Within reports whether a and b are at most thresholdKm apart.
func Within(a, b models.Coordinates, thresholdKm float64) bool {
	return Distance(a, b) <= thresholdKm
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
