package locations

import (
	"context"
	"sync"

	"pickup-address-matcher/internal/constants"
	"pickup-address-matcher/internal/domain/specs"
	"pickup-address-matcher/internal/models"
	errs "pickup-address-matcher/pkg/errors"
	"pickup-address-matcher/pkg/logging"
)

// Radius selects locations within Meters of a point.
type Radius struct {
	Latitude  float64
	Longitude float64
	Meters    float64
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	City           string
	Country        string
	HasCoordinates *bool
	Near           *Radius
}

func (f Filter) empty() bool {
	return f.City == "" && f.Country == "" && f.HasCoordinates == nil && f.Near == nil
}

func (f Filter) spec() specs.Specification[models.PickupLocation] {
	var list []specs.Specification[models.PickupLocation]
	if f.City != "" {
		list = append(list, specs.InCity(f.City))
	}
	if f.Country != "" {
		list = append(list, specs.InCountry(f.Country))
	}
	if f.HasCoordinates != nil {
		if *f.HasCoordinates {
			list = append(list, specs.HasCoordinates())
		} else {
			list = append(list, specs.HasCoordinates().Not())
		}
	}
	if f.Near != nil {
		list = append(list, specs.WithinRadius(f.Near.Latitude, f.Near.Longitude, f.Near.Meters))
	}
	return specs.AllOf(list...)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns one page of locations matching f, ordered by id, and the total
// number of matches.
func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]models.PickupLocation, int, error) {
	limit, offset = clampPage(limit, offset)
	if f.Near != nil && f.Near.Meters <= 0 {
		return nil, 0, errs.NewValidation("locations.List", "radius must be positive", nil)
	}
	if f.empty() {
		return s.repo.ListLocationsCtx(ctx, limit, offset)
	}

	all, err := s.repo.FilterBySpecCtx(ctx, f.spec())
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return []models.PickupLocation{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Groups clusters stored locations with GroupSimilar over their originals.
// threshold 0 uses the configured one. Only the first MaxGroupSize locations
// by id are grouped; truncated reports whether any were left out.
func (s *Service) Groups(ctx context.Context, threshold float64) (groups []models.LocationGroup, truncated bool, err error) {
	if threshold == 0 {
		threshold = s.Threshold()
	}
	if err := validThreshold("locations.Groups", threshold); err != nil {
		return nil, false, err
	}

	all, err := s.repo.FilterBySpecCtx(ctx, specs.All())
	if err != nil {
		return nil, false, err
	}
	if s.maxGroupSize > 0 && len(all) > s.maxGroupSize {
		all = all[:s.maxGroupSize]
		truncated = true
	}

	originals := make([]string, len(all))
	pending := make(map[string][]int, len(all))
	for i, l := range all {
		originals[i] = l.Original
		pending[l.Original] = append(pending[l.Original], i)
	}

	// Groups keep input order and identical strings always land in the same
	// group, so popping the earliest index per string maps members back.
	raw := s.matcher.GroupSimilar(originals, threshold)
	groups = make([]models.LocationGroup, 0, len(raw))
	for _, g := range raw {
		lg := models.LocationGroup{Locations: make([]models.PickupLocation, 0, len(g))}
		for _, member := range g {
			idx := pending[member][0]
			pending[member] = pending[member][1:]
			lg.Locations = append(lg.Locations, all[idx])
		}
		lg.Anchor = lg.Locations[0]
		groups = append(groups, lg)
	}
	return groups, truncated, nil
}

// Backfill geocodes stored locations that have no coordinates, using a
// bounded worker pool under the geocoder rate limit.
func (s *Service) Backfill(ctx context.Context) (models.BackfillReport, error) {
	const op = "locations.Backfill"
	var report models.BackfillReport
	if s.geocoder == nil {
		return report, errs.NewValidation(op, "geocoding is not configured", nil)
	}

	todo, err := s.repo.ListLocationsMissingCoordinatesCtx(ctx, constants.BackfillBatchSize)
	if err != nil {
		return report, err
	}
	report.Scanned = len(todo)

	jobs := make(chan models.PickupLocation)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loc := range jobs {
				outcome := s.backfillOne(ctx, loc)
				mu.Lock()
				switch outcome {
				case backfillUpdated:
					report.Updated++
				case backfillNotFound:
					report.NotFound++
				default:
					report.Failed++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, loc := range todo {
		select {
		case jobs <- loc:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	s.log.Ctx(ctx).Info("backfill complete",
		logging.Int("scanned", report.Scanned),
		logging.Int("updated", report.Updated),
		logging.Int("not_found", report.NotFound),
		logging.Int("failed", report.Failed))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type backfillOutcome int

const (
	backfillFailed backfillOutcome = iota
	backfillUpdated
	backfillNotFound
)

func (s *Service) backfillOne(ctx context.Context, loc models.PickupLocation) backfillOutcome {
	if err := s.limiter.Wait(ctx); err != nil {
		return backfillFailed
	}
	res, err := s.geocoder.Geocode(ctx, loc.Original)
	if errs.Is(err, errs.ErrNotFound) {
		return backfillNotFound
	}
	if err != nil {
		s.mGeoFailed.Inc(1)
		s.log.Ctx(ctx).Warn("backfill geocode failed", logging.Int64("location_id", loc.ID), logging.Error(err))
		return backfillFailed
	}
	if err := s.repo.UpdateCoordinatesCtx(ctx, loc.ID, res.Coordinates.Latitude, res.Coordinates.Longitude); err != nil {
		s.log.Ctx(ctx).Error("backfill update failed", err, logging.Int64("location_id", loc.ID))
		return backfillFailed
	}
	s.mGeocoded.Inc(1)
	return backfillUpdated
}
