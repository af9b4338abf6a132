// Package locations deduplicates free-text pickup locations. Each raw input is
// either matched onto a stored location (and kept as an alias) or stored as a
// new location, geocoded when possible.
package locations

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/domain"
	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/address"
	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/logging"
	"pickup-address-matcher/pkg/metrics"
)

// Geocoder looks up coordinates for a raw address. A result that matches
// nothing is an errors.NotFoundError.
type Geocoder interface {
	Geocode(ctx context.Context, raw string) (*models.GeocodeResult, error)
}

type Options struct {
	Threshold       float64
	MaxGroupSize    int
	BackfillWorkers int
	GeocodeRPS      float64 // 0 = unlimited
}

type Service struct {
	repo     domain.LocationRepository
	matcher  *address.Matcher
	geocoder Geocoder // nil when geocoding is not configured

	threshold    atomic.Uint64 // float64 bits
	maxGroupSize int
	workers      int
	limiter      *rate.Limiter

	// serializes match-or-create per city so concurrent resolves of the same
	// new place store it once
	cityMu sync.Map // city -> *sync.Mutex

	log *logging.ComponentLogger

	mResolved  *metrics.Counter
	mMatched   *metrics.Counter
	mCreated   *metrics.Counter
	mGeocoded  *metrics.Counter
	mGeoFailed *metrics.Counter
}

func NewService(repo domain.LocationRepository, matcher *address.Matcher, geocoder Geocoder, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if matcher == nil {
		matcher = address.NewMatcher()
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = address.DefaultThreshold
	}
	if opts.BackfillWorkers <= 0 {
		opts.BackfillWorkers = 1
	}
	limit := rate.Inf
	burst := 1
	if opts.GeocodeRPS > 0 {
		limit = rate.Limit(opts.GeocodeRPS)
		burst = int(math.Max(1, math.Ceil(opts.GeocodeRPS)))
	}

	s := &Service{
		repo:         repo,
		matcher:      matcher,
		geocoder:     geocoder,
		maxGroupSize: opts.MaxGroupSize,
		workers:      opts.BackfillWorkers,
		limiter:      rate.NewLimiter(limit, burst),
		log:          logger.WithComponent("locations"),

		mResolved:  metrics.Default.Counter("locations_resolved_total", "Raw addresses resolved"),
		mMatched:   metrics.Default.Counter("locations_matched_total", "Raw addresses matched onto a stored location"),
		mCreated:   metrics.Default.Counter("locations_created_total", "New locations stored"),
		mGeocoded:  metrics.Default.Counter("locations_geocoded_total", "Locations given coordinates by the geocoder"),
		mGeoFailed: metrics.Default.Counter("locations_geocode_failures_total", "Geocoder calls that failed"),
	}
	s.threshold.Store(math.Float64bits(opts.Threshold))
	return s
}

// Threshold returns the similarity threshold currently in force.
func (s *Service) Threshold() float64 { return math.Float64frombits(s.threshold.Load()) }

// ApplyThreshold swaps the similarity threshold used by later calls.
func (s *Service) ApplyThreshold(t float64) error {
	if err := validThreshold("locations.ApplyThreshold", t); err != nil {
		return err
	}
	old := s.Threshold()
	s.threshold.Store(math.Float64bits(t))
	s.log.Info("similarity threshold changed", logging.Float64("from", old), logging.Float64("to", t))
	return nil
}

func validThreshold(op string, t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return errs.NewValidation(op, "threshold must be between 0 and 1", nil)
	}
	return nil
}

// GeocodingEnabled reports whether a geocoder is wired.
func (s *Service) GeocodingEnabled() bool { return s.geocoder != nil }

// Matcher returns the matcher the service normalizes with.
func (s *Service) Matcher() *address.Matcher { return s.matcher }

func (s *Service) lockCity(city string) func() {
	v, _ := s.cityMu.LoadOrStore(city, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Resolve matches raw against stored locations of the same city. The best
// candidate scoring at or above the threshold wins and raw is recorded as its
// alias. Otherwise a new location is stored, geocoded first when coords is
// nil and a geocoder is configured. Geocoder failures only cost the
// coordinates.
func (s *Service) Resolve(ctx context.Context, raw string, coords *address.Coordinates) (*models.Resolution, error) {
	const op = "locations.Resolve"
	if strings.TrimSpace(raw) == "" {
		return nil, errs.NewValidation(op, "address is required", nil)
	}
	if utf8.RuneCountInString(raw) > constants.MaxAddressRuneCount {
		return nil, errs.NewValidation(op, "address is too long", nil)
	}

	na := s.matcher.Parse(raw, coords)
	if na.Normalized == "" {
		return nil, errs.NewValidation(op, "address has no meaningful words", nil)
	}
	log := s.log.Ctx(ctx)

	unlock := s.lockCity(na.City)
	defer unlock()

	candidates, err := s.repo.ListLocationsByCityCtx(ctx, na.City)
	if err != nil {
		return nil, err
	}
	s.mResolved.Inc(1)

	norms := make([]string, len(candidates))
	for i, c := range candidates {
		norms[i] = c.Normalized
	}
	if m, ok := s.matcher.FindBestMatch(na.Normalized, norms, s.Threshold()); ok {
		loc := candidates[m.Index]
		alias := models.LocationAlias{LocationID: loc.ID, Original: raw, Normalized: na.Normalized, Score: m.Score}
		if err := s.repo.AddAliasCtx(ctx, &alias); err != nil {
			return nil, err
		}
		s.mMatched.Inc(1)
		log.Debug("address matched",
			logging.Int64("location_id", loc.ID),
			logging.Float64("score", m.Score),
			logging.String("city", na.City))
		return &models.Resolution{Location: loc, Matched: true, Score: m.Score}, nil
	}

	loc := models.NewPickupLocation(na)
	geocoded := false
	if !loc.HasCoordinates() {
		if res := s.geocode(ctx, raw); res != nil {
			lat, lng := res.Coordinates.Latitude, res.Coordinates.Longitude
			loc.Latitude, loc.Longitude = &lat, &lng
			geocoded = true
		}
	}
	if err := s.repo.CreateLocationCtx(ctx, &loc); err != nil {
		return nil, err
	}
	s.mCreated.Inc(1)
	log.Info("location created",
		logging.Int64("location_id", loc.ID),
		logging.String("city", loc.City),
		logging.Bool("geocoded", geocoded))
	return &models.Resolution{Location: loc, Created: true, Geocoded: geocoded}, nil
}

// geocode returns nil when no geocoder is configured or the lookup failed.
func (s *Service) geocode(ctx context.Context, raw string) *models.GeocodeResult {
	if s.geocoder == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}
	res, err := s.geocoder.Geocode(ctx, raw)
	switch {
	case err == nil:
		s.mGeocoded.Inc(1)
		return res
	case errs.Is(err, errs.ErrNotFound):
		s.log.Ctx(ctx).Debug("geocoder found nothing", logging.String("address", raw))
	default:
		s.mGeoFailed.Inc(1)
		s.log.Ctx(ctx).Warn("geocoding failed, storing without coordinates", logging.String("address", raw), logging.Error(err))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.PickupLocation, error) {
	return s.repo.GetLocationByIDCtx(ctx, id)
}

// Aliases lists the raw inputs matched onto location id.
func (s *Service) Aliases(ctx context.Context, id int64) ([]models.LocationAlias, error) {
	if _, err := s.repo.GetLocationByIDCtx(ctx, id); err != nil {
		return nil, err
	}
	aliases, err := s.repo.ListAliasesCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if aliases == nil {
		aliases = []models.LocationAlias{}
	}
	return aliases, nil
}
