package models

import (
	"testing"

	"pickup-address-matcher/pkg/address"
)

func TestNewPickupLocationRoundTrip(t *testing.T) {
	na := address.Parse("Avenue Habib Bourguiba, Sousse", &address.Coordinates{Latitude: 35.82, Longitude: 10.63})
	l := NewPickupLocation(na)
	if !l.HasCoordinates() || *l.Latitude != 35.82 || *l.Longitude != 10.63 {
		t.Fatalf("coordinates not copied: %+v", l)
	}
	got := l.Address()
	if got.Normalized != na.Normalized || got.City != "sousse" || got.Country != "tunisia" {
		t.Errorf("Address() = %+v, want %+v", got, na)
	}
	if got.Coordinates == nil || *got.Coordinates != *na.Coordinates {
		t.Errorf("Address().Coordinates = %v, want %v", got.Coordinates, na.Coordinates)
	}
}

func TestAddressWithoutCoordinates(t *testing.T) {
	l := NewPickupLocation(address.Parse("Rue de Marseille, Tunis", nil))
	if l.HasCoordinates() {
		t.Fatalf("HasCoordinates() = true for location without coordinates")
	}
	if l.Address().Coordinates != nil {
		t.Errorf("Address().Coordinates = %v, want nil", l.Address().Coordinates)
	}
}
