package geocoder

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/address"
	"pickup-address-matcher/pkg/circuit"
	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/geography"
	"pickup-address-matcher/pkg/logging"
)

// geocodeClient is the slice of *maps.Client used here.
type geocodeClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type Options struct {
	APIKey  string
	Region  string        // ccTLD bias and country filter, e.g. "tn"
	RPS     float64       // client-side request rate, 0 = unlimited
	Timeout time.Duration // per HTTP call, 0 = GeocodeOperationTimeout
	Breaker *circuit.Breaker
}

// GoogleMapsGeocoder resolves free-text addresses to coordinates through the
// Google Geocoding API.
type GoogleMapsGeocoder struct {
	client  geocodeClient
	region  string
	breaker *circuit.Breaker
	log     *logging.ComponentLogger
}

func NewGoogleMapsGeocoder(opts Options, logger *logging.Logger) (*GoogleMapsGeocoder, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.GeocodeOperationTimeout
	}
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(opts.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if opts.RPS > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(int(math.Ceil(opts.RPS))))
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, errs.NewValidation("geocoder.NewGoogleMapsGeocoder", "invalid google maps client options", err)
	}
	return newGeocoder(client, opts, logger), nil
}

func newGeocoder(client geocodeClient, opts Options, logger *logging.Logger) *GoogleMapsGeocoder {
	if logger == nil {
		logger = logging.Nop()
	}
	b := opts.Breaker
	if b == nil {
		b = circuit.New(BreakerConfig(), logger)
	}
	return &GoogleMapsGeocoder{
		client:  client,
		region:  strings.ToLower(opts.Region),
		breaker: b,
		log:     logger.WithComponent("geocoder"),
	}
}

// BreakerConfig is the circuit breaker tuning for the geocoding API.
func BreakerConfig() circuit.Config {
	cfg := circuit.DefaultConfig("google_geocode")
	cfg.OperationTimeout = constants.GeocodeOperationTimeout
	cfg.OpenFor = constants.GeocodeOpenFor
	cfg.MaxConsecFailures = constants.GeocodeMaxConsecFailures
	cfg.FailureRate = constants.GeocodeFailureRate
	cfg.SlowCallThreshold = constants.GeocodeSlowCallThreshold
	cfg.SlowCallRate = constants.GeocodeSlowCallRate
	return cfg
}

// Breaker returns the breaker guarding API calls, for health reporting.
func (g *GoogleMapsGeocoder) Breaker() *circuit.Breaker { return g.breaker }

// Geocode returns the first result for raw. Zero results is a NotFoundError
// and does not count against the breaker; transport and quota failures are
// ExternalAPIErrors.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, raw string) (*models.GeocodeResult, error) {
	const op = "geocoder.Geocode"
	if strings.TrimSpace(raw) == "" {
		return nil, errs.NewValidation(op, "address is empty", nil)
	}

	req := &maps.GeocodingRequest{Address: raw, Region: g.region}
	if g.region != "" {
		req.Components = map[maps.Component]string{maps.ComponentCountry: g.region}
	}

	var results []maps.GeocodingResult
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		results, err = g.client.Geocode(ctx, req)
		return err
	}, nil)
	if err != nil {
		g.log.Ctx(ctx).Warn("geocode failed", logging.String("address", raw), logging.Error(err))
		return nil, errs.NewExternal(op, "google", "geocode request failed", err)
	}
	if len(results) == 0 {
		return nil, errs.NewNotFound(op, "geocode result", raw)
	}
	return toResult(results[0]), nil
}

func toResult(r maps.GeocodingResult) *models.GeocodeResult {
	place := geography.FromComponents(r.AddressComponents)
	return &models.GeocodeResult{
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		Coordinates: address.Coordinates{
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		},
		Place: place,
		Path:  place.Path(),
	}
}
