package testutil

import (
	"context"
	"sync"

	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/address"
	errs "pickup-address-matcher/pkg/errors"
)

// MockGeocoder returns canned results keyed by the raw address it is asked
// about. Unknown addresses are NotFound unless Default is set.
type MockGeocoder struct {
	Mu      sync.Mutex
	Resp    map[string]*models.GeocodeResult
	Err     map[string]error
	Default *models.GeocodeResult
	Calls   []string
}

func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{Resp: map[string]*models.GeocodeResult{}, Err: map[string]error{}}
}

// At registers a hit for raw at the given coordinates.
func (m *MockGeocoder) At(raw string, lat, lng float64) *MockGeocoder {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Resp[raw] = &models.GeocodeResult{
		FormattedAddress: raw,
		Coordinates:      address.Coordinates{Latitude: lat, Longitude: lng},
	}
	return m
}

func (m *MockGeocoder) Geocode(ctx context.Context, raw string) (*models.GeocodeResult, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls = append(m.Calls, raw)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Err[raw]; ok {
		return nil, err
	}
	if r, ok := m.Resp[raw]; ok {
		rr := *r
		return &rr, nil
	}
	if m.Default != nil {
		rr := *m.Default
		return &rr, nil
	}
	return nil, errs.NewNotFound("testutil.MockGeocoder", "geocode result", raw)
}

// CallCount returns how many times Geocode ran.
func (m *MockGeocoder) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Calls)
}
