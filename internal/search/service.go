package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"watchtrack/internal/domain"
	"watchtrack/internal/metrics"
)

const (
	defaultCountry        = "US"
	defaultLimit          = 20
	maxLimit              = 100
	defaultSeasonLimit    = 5
	defaultMaxConcurrency = 8
	defaultSearchTimeout  = 20 * time.Second
)

// Service runs universal search: catalog lookup, availability enrichment,
// scoring, disambiguation and ranking.
type Service struct {
	catalog        Catalog
	resolver       *Resolver
	timeout        time.Duration
	seasonLimit    int
	maxConcurrency int
	mergePolicy    MergeScorePolicy
	logger         *slog.Logger
}

type ServiceOption func(*Service)

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithSeasonLimit sets how many leading candidates get season data in compact mode.
func WithSeasonLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit >= 0 {
			s.seasonLimit = limit
		}
	}
}

func WithMaxConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

func WithMergeScorePolicy(policy MergeScorePolicy) ServiceOption {
	return func(s *Service) {
		s.mergePolicy = NormalizeMergeScorePolicy(string(policy))
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(catalog Catalog, opts ...ServiceOption) *Service {
	svc := &Service{
		catalog:        catalog,
		timeout:        defaultSearchTimeout,
		seasonLimit:    defaultSeasonLimit,
		maxConcurrency: defaultMaxConcurrency,
		mergePolicy:    MergeScoreFirst,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if catalog != nil {
		svc.resolver = NewResolver(catalog,
			WithSeasonConcurrency(svc.maxConcurrency),
			WithResolverLogger(svc.logger),
		)
	}
	return svc
}

type preparedUniversalSearch struct {
	query        ParsedQuery
	country      string
	providerIDs  []int
	subscription domain.SubscriptionTier
	page         int
	limit        int
	seasonMode   domain.SeasonMode
}

func prepareUniversalSearch(request domain.UniversalSearchRequest) (preparedUniversalSearch, error) {
	query, err := ParseQuery(request.Query)
	if err != nil {
		return preparedUniversalSearch{}, err
	}
	if request.Page < 0 {
		return preparedUniversalSearch{}, ErrInvalidPage
	}
	tier, ok := domain.ParseSubscriptionTier(string(request.Subscription))
	if !ok {
		return preparedUniversalSearch{}, ErrInvalidSubscription
	}

	page := request.Page
	if page == 0 {
		page = 1
	}
	limit := request.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	country := strings.ToUpper(strings.TrimSpace(request.Country))
	if country == "" {
		country = defaultCountry
	}

	return preparedUniversalSearch{
		query:        query,
		country:      country,
		providerIDs:  uniqueInts(request.ProviderIDs),
		subscription: tier,
		page:         page,
		limit:        limit,
		seasonMode:   domain.NormalizeSeasonMode(string(request.SeasonMode)),
	}, nil
}

// UniversalSearch fails only when the request is invalid or the title search
// itself fails. Enrichment failures shrink the affected candidates' data.
func (s *Service) UniversalSearch(ctx context.Context, request domain.UniversalSearchRequest) (domain.UniversalSearchResponse, error) {
	prepared, err := prepareUniversalSearch(request)
	if err != nil {
		return domain.UniversalSearchResponse{}, err
	}
	if s.catalog == nil {
		return domain.UniversalSearchResponse{}, ErrCatalogUnavailable
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	page, err := s.catalog.SearchByTitle(runCtx, prepared.query.Title, prepared.page, prepared.limit)
	if err != nil {
		return domain.UniversalSearchResponse{}, fmt.Errorf("search catalog: %w", err)
	}

	candidates := s.enrich(runCtx, page.Shows, prepared)
	merged := Merge(candidates, s.mergePolicy)
	results := Rank(merged)

	metrics.SearchMergedTotal.Add(float64(len(candidates) - len(merged)))
	metrics.SearchResultsCount.Observe(float64(len(results)))
	s.logger.Debug("universal search ranked",
		slog.String("title", prepared.query.Title),
		slog.String("year", prepared.query.Year),
		slog.Int("candidates", len(candidates)),
		slog.Int("merged", len(merged)),
		slog.Int("results", len(results)),
	)

	return domain.UniversalSearchResponse{
		Results:    results,
		Pagination: page.Pagination,
		SearchInfo: domain.SearchInfo{
			OriginalQuery: prepared.query.Original,
			ParsedTitle:   prepared.query.Title,
			ParsedYear:    prepared.query.Year,
		},
		ElapsedMS: time.Since(startedAt).Milliseconds(),
	}, nil
}

// enrich resolves every show concurrently. Each task writes only its own slot,
// so results keep catalog order regardless of completion order.
func (s *Service) enrich(ctx context.Context, shows []domain.CatalogShow, prepared preparedUniversalSearch) []domain.EnrichedCandidate {
	candidates := make([]domain.EnrichedCandidate, len(shows))
	sem := semaphore.NewWeighted(int64(s.maxConcurrency))
	var wg sync.WaitGroup

	for index, show := range shows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var resolution Resolution
			if err := sem.Acquire(ctx, 1); err != nil {
				metrics.EnrichmentFailuresTotal.WithLabelValues("candidate").Inc()
				resolution = Resolution{
					Providers:          []domain.ProviderOffer{},
					SeasonAvailability: []domain.SeasonAvailability{},
				}
			} else {
				resolution = s.resolver.Resolve(ctx, show, prepared.country, s.seasonModeFor(index, prepared.seasonMode))
				sem.Release(1)
			}
			candidates[index] = buildCandidate(show, resolution, prepared)
		}()
	}
	wg.Wait()
	return candidates
}

func (s *Service) seasonModeFor(index int, mode domain.SeasonMode) domain.SeasonMode {
	if mode == domain.SeasonModeCompact && index >= s.seasonLimit {
		return domain.SeasonModeNone
	}
	return mode
}

func buildCandidate(show domain.CatalogShow, resolution Resolution, prepared preparedUniversalSearch) domain.EnrichedCandidate {
	show.TotalSeasons = resolution.TotalSeasons
	return domain.EnrichedCandidate{
		CatalogShow:        show,
		Year:               show.FirstAirYear,
		Providers:          resolution.Providers,
		Availability:       resolution.Availability,
		SeasonAvailability: resolution.SeasonAvailability,
		MatchesFilters:     MatchesProviderFilter(resolution.Availability, prepared.providerIDs, prepared.subscription),
		TitleMatchScore:    Score(show.Title, prepared.query.Title, show.FirstAirYear, prepared.query.Year),
		CatalogIDs:         []domain.CatalogID{show.CatalogID},
	}
}

func uniqueInts(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	out := make([]int, 0, len(values))
	seen := make(map[int]struct{}, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
