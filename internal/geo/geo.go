package geo

import (
	"math"
	"time"

	derr "egress/pkg/domainerrors"
)

const earthRadiusMeters = 6371000

// DefaultAccuracyMeters is the conservative fallback applied when a platform
// reports no horizontal accuracy. Treating unknown accuracy as zero would make
// every fix look certain, which is exactly backwards.
const DefaultAccuracyMeters = 100

// Point is an immutable position fix: coordinates plus the platform-reported
// horizontal accuracy radius (1-sigma) and capture time.
type Point struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_m"`
	CapturedAt     time.Time `json:"captured_at"`
}

// NewPoint builds a Point, coercing missing or negative accuracy to the
// conservative default rather than zero.
func NewPoint(lat, lon, accuracyMeters float64, capturedAt time.Time) Point {
	if accuracyMeters <= 0 {
		accuracyMeters = DefaultAccuracyMeters
	}
	return Point{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: accuracyMeters,
		CapturedAt:     capturedAt,
	}
}

// Fence is a circular geofence around a work location. The engine treats it as
// read-only input; it is owned by the location-configuration side.
type Fence struct {
	ID           string  `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_m"`
}

// Validate fails fast on malformed fences; the engine never silently coerces.
func (f Fence) Validate() error {
	if f.RadiusMeters <= 0 {
		return derr.New(derr.CodeBadRequest, "geofence radius must be positive")
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		return derr.New(derr.CodeBadRequest, "geofence latitude out of range")
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return derr.New(derr.CodeBadRequest, "geofence longitude out of range")
	}
	return nil
}

// HaversineMeters returns the great-circle distance between two coordinates.
// Fence radii can be under 50 m, so no flat-earth shortcut: the full formula
// keeps the error negligible even at high latitudes.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMeters returns the distance from the point to the fence center.
func (f Fence) DistanceMeters(p Point) float64 {
	return HaversineMeters(p.Latitude, p.Longitude, f.Latitude, f.Longitude)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
