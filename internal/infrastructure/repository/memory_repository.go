package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"pickup-address-matcher/internal/domain"
	"pickup-address-matcher/internal/domain/specs"
	"pickup-address-matcher/internal/models"
	errs "pickup-address-matcher/pkg/errors"
)

// MemoryRepository keeps locations in process. It backs the service when no
// DATABASE_URL is configured and in tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	nextAlias int64
	locations map[int64]models.PickupLocation
	aliases   map[int64][]models.LocationAlias
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locations: make(map[int64]models.PickupLocation),
		aliases:   make(map[int64][]models.LocationAlias),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.LocationRepository = (*MemoryRepository)(nil)

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// clone detaches coordinate pointers so callers cannot mutate stored rows.
func clone(l models.PickupLocation) models.PickupLocation {
	l.Latitude = copyFloat(l.Latitude)
	l.Longitude = copyFloat(l.Longitude)
	return l
}

func (m *MemoryRepository) CreateLocationCtx(ctx context.Context, loc *models.PickupLocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	loc.ID = m.nextID
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = m.now()
	}
	m.locations[loc.ID] = clone(*loc)
	return nil
}

func (m *MemoryRepository) GetLocationByIDCtx(ctx context.Context, id int64) (*models.PickupLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, errs.NewNotFound("repository.GetLocationByIDCtx", "location", strconv.FormatInt(id, 10))
	}
	l = clone(l)
	return &l, nil
}

// sorted must be called with m.mu held.
func (m *MemoryRepository) sorted() []models.PickupLocation {
	out := make([]models.PickupLocation, 0, len(m.locations))
	for _, l := range m.locations {
		out = append(out, clone(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) ListLocationsCtx(ctx context.Context, limit, offset int) ([]models.PickupLocation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	all := m.sorted()
	m.mu.RUnlock()

	total := len(all)
	if offset >= total {
		return []models.PickupLocation{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (m *MemoryRepository) ListLocationsByCityCtx(ctx context.Context, city string) ([]models.PickupLocation, error) {
	return m.FilterBySpecCtx(ctx, specs.InCity(city))
}

func (m *MemoryRepository) ListLocationsMissingCoordinatesCtx(ctx context.Context, limit int) ([]models.PickupLocation, error) {
	out, err := m.FilterBySpecCtx(ctx, specs.HasCoordinates().Not())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdateCoordinatesCtx(ctx context.Context, id int64, lat, lng float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok {
		return errs.NewNotFound("repository.UpdateCoordinatesCtx", "location", strconv.FormatInt(id, 10))
	}
	l.Latitude, l.Longitude = &lat, &lng
	m.locations[id] = l
	return nil
}

func (m *MemoryRepository) FilterBySpecCtx(ctx context.Context, s specs.Specification[models.PickupLocation]) ([]models.PickupLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := m.sorted()
	m.mu.RUnlock()
	return specs.Filter(ctx, s, all), nil
}

func (m *MemoryRepository) AddAliasCtx(ctx context.Context, alias *models.LocationAlias) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[alias.LocationID]; !ok {
		return errs.NewNotFound("repository.AddAliasCtx", "location", strconv.FormatInt(alias.LocationID, 10))
	}
	m.nextAlias++
	alias.ID = m.nextAlias
	if alias.CreatedAt.IsZero() {
		alias.CreatedAt = m.now()
	}
	m.aliases[alias.LocationID] = append(m.aliases[alias.LocationID], *alias)
	return nil
}

func (m *MemoryRepository) ListAliasesCtx(ctx context.Context, locationID int64) ([]models.LocationAlias, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LocationAlias, len(m.aliases[locationID]))
	copy(out, m.aliases[locationID])
	return out, nil
}
