package models

import (
	"time"

	"pickup-address-matcher/pkg/address"
	"pickup-address-matcher/pkg/geography"
)

// PickupLocation is a stored, deduplicated pickup point. Normalized, City and
// Country are derived from Original when the row is created.
type PickupLocation struct {
	ID         int64     `json:"id"`
	Original   string    `json:"original"`
	Normalized string    `json:"normalized"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l PickupLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Address returns the location as a NormalizedAddress.
func (l PickupLocation) Address() address.NormalizedAddress {
	na := address.NormalizedAddress{
		Original:   l.Original,
		Normalized: l.Normalized,
		City:       l.City,
		Country:    l.Country,
	}
	if l.HasCoordinates() {
		na.Coordinates = &address.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
	}
	return na
}

// NewPickupLocation builds an unsaved location from a parsed address.
func NewPickupLocation(na address.NormalizedAddress) PickupLocation {
	l := PickupLocation{
		Original:   na.Original,
		Normalized: na.Normalized,
		City:       na.City,
		Country:    na.Country,
	}
	if na.Coordinates != nil {
		lat, lng := na.Coordinates.Latitude, na.Coordinates.Longitude
		l.Latitude, l.Longitude = &lat, &lng
	}
	return l
}

// LocationAlias records a raw input that resolved to an existing location.
type LocationAlias struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	Original   string    `json:"original"`
	Normalized string    `json:"normalized"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolution is the outcome of resolving one raw address. Exactly one of
// Created and Matched is true.
type Resolution struct {
	Location PickupLocation `json:"location"`
	Created  bool           `json:"created"`
	Matched  bool           `json:"matched"`
	Score    float64        `json:"score,omitempty"`
	Geocoded bool           `json:"geocoded"`
}

// LocationGroup is one cluster of stored locations that look alike.
type LocationGroup struct {
	Anchor    PickupLocation   `json:"anchor"`
	Locations []PickupLocation `json:"locations"`
}

// GeocodeResult is the first geocoder hit for an address.
type GeocodeResult struct {
	FormattedAddress string              `json:"formatted_address"`
	PlaceID          string              `json:"place_id"`
	Coordinates      address.Coordinates `json:"coordinates"`
	Place            geography.Place     `json:"place"`
	Path             string              `json:"path"`
}

// BackfillReport counts the outcome of a coordinate backfill run.
type BackfillReport struct {
	Scanned  int `json:"scanned"`
	Updated  int `json:"updated"`
	NotFound int `json:"not_found"`
	Failed   int `json:"failed"`
}
