package search

import (
	"context"
	"errors"

	"watchtrack/internal/domain"
)

var (
	ErrInvalidQuery        = errors.New("query is required")
	ErrInvalidPage         = errors.New("page must be >= 1")
	ErrInvalidSubscription = errors.New("subscription must be one of flatrate, free, ads, rent, buy, any")
	ErrCatalogUnavailable  = errors.New("show catalog is not configured")
)

// Catalog is the slice of the external show catalog the search core needs.
// Implementations return *domain.UpstreamError for upstream failures.
type Catalog interface {
	SearchByTitle(ctx context.Context, title string, page, limit int) (domain.CatalogPage, error)
	ShowDetail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error)
	Providers(ctx context.Context, id domain.CatalogID, country string) (domain.AvailabilitySet, error)
	SeasonProviders(ctx context.Context, id domain.CatalogID, season int, country string) (domain.SeasonAvailability, error)
}
