package domain

import (
	"context"

	"pickup-address-matcher/internal/domain/specs"
	"pickup-address-matcher/internal/models"
)

// LocationRepository defines data access for pickup locations and the raw
// inputs that were matched onto them.
//
// Lookups of a missing row return an errors.NotFoundError.
type LocationRepository interface {
	CreateLocationCtx(ctx context.Context, loc *models.PickupLocation) error
	GetLocationByIDCtx(ctx context.Context, id int64) (*models.PickupLocation, error)
	// ListLocationsCtx returns one page ordered by id and the total row count.
	ListLocationsCtx(ctx context.Context, limit, offset int) ([]models.PickupLocation, int, error)
	ListLocationsByCityCtx(ctx context.Context, city string) ([]models.PickupLocation, error)
	ListLocationsMissingCoordinatesCtx(ctx context.Context, limit int) ([]models.PickupLocation, error)
	UpdateCoordinatesCtx(ctx context.Context, id int64, lat, lng float64) error
	// FilterBySpecCtx returns every location satisfying s, ordered by id.
	FilterBySpecCtx(ctx context.Context, s specs.Specification[models.PickupLocation]) ([]models.PickupLocation, error)

	AddAliasCtx(ctx context.Context, alias *models.LocationAlias) error
	ListAliasesCtx(ctx context.Context, locationID int64) ([]models.LocationAlias, error)
}
