package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"watchtrack/internal/domain"
)

var errUpstreamBoom = errors.New("upstream boom")

type fakeCatalog struct {
	mu sync.Mutex

	page      domain.CatalogPage
	searchErr error
	lastTitle string
	lastPage  int
	lastLimit int

	details     map[domain.CatalogID]*domain.CatalogShow
	detailErr   map[domain.CatalogID]error
	providers   map[domain.CatalogID]domain.AvailabilitySet
	providerErr map[domain.CatalogID]error
	seasons     map[domain.CatalogID]map[int]domain.AvailabilitySet
	seasonErr   map[domain.CatalogID]map[int]error
	delay       func(id domain.CatalogID) time.Duration

	detailCalls   atomic.Int32
	providerCalls atomic.Int32
	seasonCalls   atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		details:     map[domain.CatalogID]*domain.CatalogShow{},
		detailErr:   map[domain.CatalogID]error{},
		providers:   map[domain.CatalogID]domain.AvailabilitySet{},
		providerErr: map[domain.CatalogID]error{},
		seasons:     map[domain.CatalogID]map[int]domain.AvailabilitySet{},
		seasonErr:   map[domain.CatalogID]map[int]error{},
	}
}

func (f *fakeCatalog) wait(ctx context.Context, id domain.CatalogID) error {
	if f.delay == nil {
		return nil
	}
	timer := time.NewTimer(f.delay(id))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *fakeCatalog) SearchByTitle(ctx context.Context, title string, page, limit int) (domain.CatalogPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTitle = title
	f.lastPage = page
	f.lastLimit = limit
	if f.searchErr != nil {
		return domain.CatalogPage{}, f.searchErr
	}
	return f.page, nil
}

func (f *fakeCatalog) ShowDetail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error) {
	f.detailCalls.Add(1)
	if err := f.wait(ctx, id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	return f.details[id], nil
}

func (f *fakeCatalog) Providers(ctx context.Context, id domain.CatalogID, country string) (domain.AvailabilitySet, error) {
	f.providerCalls.Add(1)
	if err := f.wait(ctx, id); err != nil {
		return domain.AvailabilitySet{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.providerErr[id]; err != nil {
		return domain.AvailabilitySet{}, err
	}
	return f.providers[id], nil
}

func (f *fakeCatalog) SeasonProviders(ctx context.Context, id domain.CatalogID, season int, country string) (domain.SeasonAvailability, error) {
	f.seasonCalls.Add(1)
	if err := f.wait(ctx, id); err != nil {
		return domain.SeasonAvailability{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.seasonErr[id][season]; err != nil {
		return domain.SeasonAvailability{}, err
	}
	set := f.seasons[id][season]
	return domain.SeasonAvailability{
		SeasonNumber: season,
		Providers:    set.Flatten(),
		Availability: set,
	}, nil
}

// addShow registers a show with its detail and flatrate providers.
func (f *fakeCatalog) addShow(show domain.CatalogShow, seasons int, providerIDs ...int) {
	f.page.Shows = append(f.page.Shows, show)
	detail := show
	detail.TotalSeasons = seasons
	f.details[show.CatalogID] = &detail
	var set domain.AvailabilitySet
	for _, id := range providerIDs {
		set.Add(domain.BucketFlatrate, domain.ProviderOffer{ProviderID: id, ProviderName: "provider"})
	}
	f.providers[show.CatalogID] = set
}

func flatrate(ids ...int) domain.AvailabilitySet {
	var set domain.AvailabilitySet
	for _, id := range ids {
		set.Add(domain.BucketFlatrate, domain.ProviderOffer{ProviderID: id, ProviderName: "provider"})
	}
	return set
}
