package search

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"watchtrack/internal/domain"
	"watchtrack/internal/metrics"
)

const defaultSeasonConcurrency = 6

// Resolution is the availability picture of one show.
type Resolution struct {
	Providers          []domain.ProviderOffer
	Availability       domain.AvailabilitySet
	SeasonAvailability []domain.SeasonAvailability
	TotalSeasons       int
}

// Resolver gathers current and per-season availability for a show. Every
// catalog failure inside Resolve degrades to missing data and is never returned.
type Resolver struct {
	catalog           Catalog
	seasonConcurrency int64
	logger            *slog.Logger
}

type ResolverOption func(*Resolver)

func WithSeasonConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.seasonConcurrency = int64(n)
		}
	}
}

func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResolver(catalog Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:           catalog,
		seasonConcurrency: defaultSeasonConcurrency,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, show domain.CatalogShow, country string, mode domain.SeasonMode) Resolution {
	result := Resolution{
		Providers:          []domain.ProviderOffer{},
		SeasonAvailability: []domain.SeasonAvailability{},
		TotalSeasons:       show.TotalSeasons,
	}

	availability, err := r.catalog.Providers(ctx, show.CatalogID, country)
	if err != nil {
		r.recordLoss(ctx, "providers", show.CatalogID, 0, err)
	} else {
		result.Availability = availability
		result.Providers = availability.Flatten()
	}

	if mode == domain.SeasonModeNone {
		return result
	}

	detail, err := r.catalog.ShowDetail(ctx, show.CatalogID)
	if err != nil {
		r.recordLoss(ctx, "detail", show.CatalogID, 0, err)
		return result
	}
	if detail == nil {
		return result
	}
	result.TotalSeasons = detail.TotalSeasons
	if detail.TotalSeasons <= 0 {
		return result
	}

	result.SeasonAvailability = r.resolveSeasons(ctx, show.CatalogID, detail.TotalSeasons, country)
	return result
}

// resolveSeasons looks up seasons 1..total concurrently. Each task owns one
// slot; a failed or empty season leaves its slot unset and is dropped.
func (r *Resolver) resolveSeasons(ctx context.Context, id domain.CatalogID, total int, country string) []domain.SeasonAvailability {
	slots := make([]*domain.SeasonAvailability, total)
	sem := semaphore.NewWeighted(r.seasonConcurrency)
	var wg sync.WaitGroup

	for index := range slots {
		season := index + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				r.recordLoss(ctx, "season", id, season, err)
				return
			}
			defer sem.Release(1)

			availability, err := r.catalog.SeasonProviders(ctx, id, season, country)
			if err != nil {
				r.recordLoss(ctx, "season", id, season, err)
				return
			}
			if len(availability.Providers) == 0 {
				return
			}
			availability.SeasonNumber = season
			slots[index] = &availability
		}()
	}
	wg.Wait()

	seasons := make([]domain.SeasonAvailability, 0, total)
	for _, slot := range slots {
		if slot != nil {
			seasons = append(seasons, *slot)
		}
	}
	return seasons
}

func (r *Resolver) recordLoss(ctx context.Context, kind string, id domain.CatalogID, season int, err error) {
	metrics.EnrichmentFailuresTotal.WithLabelValues(kind).Inc()
	attrs := []slog.Attr{
		slog.String("kind", kind),
		slog.String("catalogId", string(id)),
		slog.String("error", err.Error()),
	}
	if season > 0 {
		attrs = append(attrs, slog.Int("season", season))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "availability lookup degraded", attrs...)
}
