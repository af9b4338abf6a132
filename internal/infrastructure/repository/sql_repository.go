package repository

import (
	"context"

	"pickup-address-matcher/internal/domain"
	"pickup-address-matcher/internal/domain/specs"
	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/database"
)

// SQLRepository is a thin adapter over pkg/database.DB.
type SQLRepository struct {
	db *database.DB
}

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

var _ domain.LocationRepository = (*SQLRepository)(nil)

func (r *SQLRepository) CreateLocationCtx(ctx context.Context, loc *models.PickupLocation) error {
	return r.db.CreateLocationCtx(ctx, loc)
}

func (r *SQLRepository) GetLocationByIDCtx(ctx context.Context, id int64) (*models.PickupLocation, error) {
	return r.db.GetLocationByIDCtx(ctx, id)
}

func (r *SQLRepository) ListLocationsCtx(ctx context.Context, limit, offset int) ([]models.PickupLocation, int, error) {
	return r.db.ListLocationsCtx(ctx, limit, offset)
}

func (r *SQLRepository) ListLocationsByCityCtx(ctx context.Context, city string) ([]models.PickupLocation, error) {
	return r.db.ListLocationsByCityCtx(ctx, city)
}

func (r *SQLRepository) ListLocationsMissingCoordinatesCtx(ctx context.Context, limit int) ([]models.PickupLocation, error) {
	return r.db.ListLocationsMissingCoordinatesCtx(ctx, limit)
}

func (r *SQLRepository) UpdateCoordinatesCtx(ctx context.Context, id int64, lat, lng float64) error {
	return r.db.UpdateCoordinatesCtx(ctx, id, lat, lng)
}

func (r *SQLRepository) AddAliasCtx(ctx context.Context, alias *models.LocationAlias) error {
	return r.db.AddAliasCtx(ctx, alias)
}

func (r *SQLRepository) ListAliasesCtx(ctx context.Context, locationID int64) ([]models.LocationAlias, error) {
	return r.db.ListAliasesCtx(ctx, locationID)
}

const scanPage = 500

// FilterBySpecCtx pages through the table and applies s in memory.
func (r *SQLRepository) FilterBySpecCtx(ctx context.Context, s specs.Specification[models.PickupLocation]) ([]models.PickupLocation, error) {
	var out []models.PickupLocation
	for offset := 0; ; offset += scanPage {
		page, total, err := r.db.ListLocationsCtx(ctx, scanPage, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, specs.Filter(ctx, s, page)...)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(page) < scanPage || offset+len(page) >= total {
			return out, nil
		}
	}
}
