package geocoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"googlemaps.github.io/maps"

	"pickup-address-matcher/pkg/circuit"
	errs "pickup-address-matcher/pkg/errors"
)

type fakeClient struct {
	results []maps.GeocodingResult
	err     error
	last    *maps.GeocodingRequest
	calls   int
}

func (f *fakeClient) Geocode(_ context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	f.calls++
	f.last = r
	return f.results, f.err
}

func sousseResult() maps.GeocodingResult {
	return maps.GeocodingResult{
		FormattedAddress: "Avenue Habib Bourguiba, Sousse, Tunisia",
		PlaceID:          "ChIJ-sousse",
		Geometry: maps.AddressGeometry{
			Location: maps.LatLng{Lat: 35.8256, Lng: 10.6369},
		},
		AddressComponents: []maps.AddressComponent{
			{LongName: "Avenue Habib Bourguiba", Types: []string{"route"}},
			{LongName: "Sousse", Types: []string{"locality", "political"}},
			{LongName: "Sousse Governorate", Types: []string{"administrative_area_level_1", "political"}},
			{LongName: "Tunisia", Types: []string{"country", "political"}},
		},
	}
}

func testBreaker(t *testing.T, maxFail int) *circuit.Breaker {
	return circuit.New(circuit.Config{Name: "geocoder_test_" + t.Name(), OpenFor: time.Hour, MaxConsecFailures: maxFail}, nil)
}

func TestGeocodeMapsFirstResult(t *testing.T) {
	fc := &fakeClient{results: []maps.GeocodingResult{sousseResult(), {FormattedAddress: "second"}}}
	g := newGeocoder(fc, Options{Region: "TN", Breaker: testBreaker(t, 3)}, nil)

	res, err := g.Geocode(context.Background(), "Av. Habib Bourguiba Sousse")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if res.PlaceID != "ChIJ-sousse" || res.Coordinates.Latitude != 35.8256 || res.Coordinates.Longitude != 10.6369 {
		t.Errorf("result = %+v", res)
	}
	if res.Place.City != "Sousse" || res.Place.Country != "Tunisia" {
		t.Errorf("place = %+v", res.Place)
	}
	if want := "tunisia|sousse_governorate|sousse"; res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
	if fc.last.Region != "tn" || fc.last.Components[maps.ComponentCountry] != "tn" {
		t.Errorf("request region/components = %q %v", fc.last.Region, fc.last.Components)
	}
}

func TestGeocodeZeroResultsIsNotFound(t *testing.T) {
	b := testBreaker(t, 1)
	g := newGeocoder(&fakeClient{}, Options{Breaker: b}, nil)

	for i := 0; i < 3; i++ {
		if _, err := g.Geocode(context.Background(), "nowhere"); !errs.Is(err, errs.ErrNotFound) {
			t.Fatalf("err = %v, want not found", err)
		}
	}
	if b.State() != circuit.Closed {
		t.Errorf("zero results tripped the breaker: %v", b.State())
	}
}

func TestGeocodeFailureIsExternalAndTrips(t *testing.T) {
	fc := &fakeClient{err: errors.New("maps: OVER_QUERY_LIMIT")}
	b := testBreaker(t, 2)
	g := newGeocoder(fc, Options{Breaker: b}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Geocode(ctx, "Sousse")
		var ext *errs.ExternalAPIError
		if !errors.As(err, &ext) || ext.System != "google" {
			t.Fatalf("err = %v, want google ExternalAPIError", err)
		}
	}
	if b.State() != circuit.Open {
		t.Fatalf("State() = %v, want open", b.State())
	}
	if _, err := g.Geocode(ctx, "Sousse"); !errors.Is(err, circuit.ErrOpen) {
		t.Errorf("err = %v, want wrapped ErrOpen", err)
	}
	if fc.calls != 2 {
		t.Errorf("client called %d times, want 2", fc.calls)
	}
}

func TestGeocodeRejectsBlank(t *testing.T) {
	fc := &fakeClient{}
	g := newGeocoder(fc, Options{Breaker: testBreaker(t, 1)}, nil)
	if _, err := g.Geocode(context.Background(), "   "); !errs.Is(err, errs.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if fc.calls != 0 {
		t.Error("client called for blank address")
	}
}

func TestNewGoogleMapsGeocoderNeedsKey(t *testing.T) {
	if _, err := NewGoogleMapsGeocoder(Options{}, nil); err == nil {
		t.Error("expected error without API key")
	}
	g, err := NewGoogleMapsGeocoder(Options{APIKey: "AIza-test", Region: "tn", RPS: 2.5}, nil)
	if err != nil || g.Breaker() == nil {
		t.Fatalf("NewGoogleMapsGeocoder = %v, %v", g, err)
	}
}
