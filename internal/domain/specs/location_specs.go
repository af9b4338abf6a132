package specs

import (
	"context"
	"math"

	"pickup-address-matcher/internal/models"
)

// InCity matches locations whose extracted city equals city.
func InCity(city string) Specification[models.PickupLocation] {
	return New(func(ctx context.Context, l models.PickupLocation) bool {
		return ctx.Err() == nil && l.City == city
	})
}

// InCountry matches locations whose extracted country equals country.
func InCountry(country string) Specification[models.PickupLocation] {
	return New(func(ctx context.Context, l models.PickupLocation) bool {
		return ctx.Err() == nil && l.Country == country
	})
}

// HasCoordinates matches locations with both latitude and longitude.
func HasCoordinates() Specification[models.PickupLocation] {
	return New(func(ctx context.Context, l models.PickupLocation) bool {
		return ctx.Err() == nil && l.HasCoordinates()
	})
}

// WithinRadius matches geocoded locations no further than meters from the
// given point. Locations without coordinates never match.
func WithinRadius(lat, lng, meters float64) Specification[models.PickupLocation] {
	return New(func(ctx context.Context, l models.PickupLocation) bool {
		if ctx.Err() != nil || !l.HasCoordinates() {
			return false
		}
		return DistanceMeters(lat, lng, *l.Latitude, *l.Longitude) <= meters
	})
}

// All matches every location.
func All() Specification[models.PickupLocation] {
	return New(func(ctx context.Context, _ models.PickupLocation) bool { return ctx.Err() == nil })
}

// DistanceMeters is the haversine distance between two points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Filter returns the locations satisfying s, preserving order.
func Filter(ctx context.Context, s Specification[models.PickupLocation], locs []models.PickupLocation) []models.PickupLocation {
	out := make([]models.PickupLocation, 0, len(locs))
	for _, l := range locs {
		if s.IsSatisfiedBy(ctx, l) {
			out = append(out, l)
		}
	}
	return out
}
