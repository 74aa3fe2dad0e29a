// Package locator ranks pizza stores by great-circle distance from a point.
package locator

import (
	"errors"
	"math"

	"github.com/fjod/go_pizza/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

var (
	ErrNoStores          = errors.New("no stores to rank")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)

// Ranking is the result of Nearest.
type Ranking struct {
	Store     domain.Store      `json:"store"`
	Distances map[int64]float64 `json:"distances"` // store id -> km
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// GreatCircleDistanceKm returns the haversine distance between two points in kilometres.
func GreatCircleDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Clamp: rounding can push a past 1 for antipodal points.
	a = math.Min(1, a)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Nearest returns the store closest to origin and the distance to every store.
// Ties go to the store listed first.
func Nearest(origin domain.Coordinates, stores []domain.Store) (Ranking, error) {
	if !origin.Valid() {
		return Ranking{}, ErrInvalidCoordinate
	}
	if len(stores) == 0 {
		return Ranking{}, ErrNoStores
	}

	ranking := Ranking{Distances: make(map[int64]float64, len(stores))}
	best := math.Inf(1)
	for _, store := range stores {
		if !store.Coordinates.Valid() {
			return Ranking{}, ErrInvalidCoordinate
		}
		d := GreatCircleDistanceKm(origin.Lat, origin.Lng, store.Coordinates.Lat, store.Coordinates.Lng)
		ranking.Distances[store.ID] = d
		if d < best {
			best = d
			ranking.Store = store
		}
	}
	return ranking, nil
}
