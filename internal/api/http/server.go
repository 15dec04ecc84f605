package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"watchtrack/internal/domain"
	"watchtrack/internal/providers/tmdb"
	"watchtrack/internal/search"
	"watchtrack/internal/watchlist"
)

type SearchService interface {
	UniversalSearch(ctx context.Context, request domain.UniversalSearchRequest) (domain.UniversalSearchResponse, error)
}

type CatalogService interface {
	PopularShows(ctx context.Context, page, limit int) (domain.CatalogPage, error)
	TrendingShows(ctx context.Context, limit int) (domain.CatalogPage, error)
	ShowsByGenre(ctx context.Context, genreID, page, limit int) (domain.CatalogPage, error)
	ShowDetail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error)
	SeasonDetail(ctx context.Context, id domain.CatalogID, season int) (*domain.SeasonDetail, error)
	Diagnostics() domain.CatalogDiagnostics
	Enabled() bool
}

type WatchlistService interface {
	QuickAdd(ctx context.Context, userID string, id domain.CatalogID) (watchlist.QuickAddResult, error)
	Show(ctx context.Context, id domain.CatalogID) (domain.StoredShow, error)
	List(ctx context.Context, userID, status string, page, limit int) (domain.WatchlistPage, error)
	UpdateProgress(ctx context.Context, userID string, id domain.CatalogID, update watchlist.ProgressUpdate) (domain.WatchlistEntry, error)
	Remove(ctx context.Context, userID string, id domain.CatalogID) error
	Bulk(ctx context.Context, userID string, request watchlist.BulkRequest) (watchlist.BulkResult, error)
}

type Server struct {
	search      SearchService
	catalog     CatalogService
	watchlist   WatchlistService
	logger      *slog.Logger
	rateRPS     float64
	rateBurst   int
	imageBase   string
	imageClient *http.Client
}

const (
	maxQueryLength     = 500
	userIDHeader       = "X-User-ID"
	defaultBrowseLimit = 20
	maxBrowseLimit     = 100
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithCatalog(catalog CatalogService) ServerOption {
	return func(s *Server) {
		s.catalog = catalog
	}
}

func WithWatchlist(service WatchlistService) ServerOption {
	return func(s *Server) {
		s.watchlist = service
	}
}

// WithRateLimit bounds inbound requests with one token bucket per caller.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func WithImageProxy(baseURL string, client *http.Client) ServerOption {
	return func(s *Server) {
		if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
			s.imageBase = base
		}
		if client != nil {
			s.imageClient = client
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		logger:    slog.Default(),
		rateRPS:   50,
		rateBurst: 100,
		imageBase: "https://image.tmdb.org/t/p",
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.imageClient == nil {
		server.imageClient = newImageProxyClient()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/shows/search", s.handleUniversalSearch)
	mux.HandleFunc("/shows/popular", s.handlePopular)
	mux.HandleFunc("/shows/trending", s.handleTrending)
	mux.HandleFunc("/shows/discover", s.handleDiscover)
	mux.HandleFunc("/shows/image", s.handleImageProxy)
	mux.HandleFunc("/shows/", s.handleShowRoutes)
	mux.HandleFunc("/catalog/health", s.handleCatalogHealth)
	mux.HandleFunc("/watchlist", s.handleWatchlist)
	mux.HandleFunc("/watchlist/", s.handleWatchlistRoutes)
	traced := otelhttp.NewHandler(accessMiddleware(s.logger, mux), "watchtrack",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	limiter := newClientLimiter(s.rateRPS, s.rateBurst)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(limiter, traced))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleUniversalSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "search service is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	providerIDs, err := parseIntCSV(r.URL.Query().Get("providers"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid providers")
		return
	}

	request := domain.UniversalSearchRequest{
		Query:        query,
		Country:      strings.TrimSpace(r.URL.Query().Get("country")),
		ProviderIDs:  providerIDs,
		Subscription: domain.SubscriptionTier(strings.TrimSpace(r.URL.Query().Get("subscription"))),
		Page:         page,
		Limit:        limit,
		SeasonMode:   domain.SeasonMode(strings.TrimSpace(r.URL.Query().Get("seasonMode"))),
	}
	response, err := s.search.UniversalSearch(r.Context(), request)
	if err != nil {
		s.logger.Warn("universal search failed",
			slog.String("query", truncate(query, 80)),
			slog.String("error", err.Error()),
		)
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	if !s.browseReady(w, r) {
		return
	}
	page, limit, ok := parsePaging(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.PopularShows(r.Context(), page, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if !s.browseReady(w, r) {
		return
	}
	_, limit, ok := parsePaging(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.TrendingShows(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if !s.browseReady(w, r) {
		return
	}
	genre, err := parsePositiveInt(r, "genre", 0)
	if err != nil || genre == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "genre is required")
		return
	}
	page, limit, ok := parsePaging(w, r)
	if !ok {
		return
	}
	result, err := s.catalog.ShowsByGenre(r.Context(), genre, page, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleShowRoutes serves /shows/{id} and /shows/{id}/seasons.
func (s *Server) handleShowRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/shows/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "seasons") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := domain.CatalogID(parts[0])
	if len(parts) == 2 {
		s.handleSeasons(w, r, id)
		return
	}

	if s.watchlist != nil {
		show, err := s.watchlist.Show(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, show)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog is not configured")
		return
	}
	show, err := s.catalog.ShowDetail(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if show == nil {
		writeError(w, http.StatusNotFound, "not_found", "show not found")
		return
	}
	writeJSON(w, http.StatusOK, show)
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request, id domain.CatalogID) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog is not configured")
		return
	}
	season, err := parsePositiveInt(r, "season", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid season")
		return
	}
	if season == 0 {
		show, err := s.catalog.ShowDetail(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if show == nil {
			writeError(w, http.StatusNotFound, "not_found", "show not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"totalSeasons": show.TotalSeasons})
		return
	}

	detail, err := s.catalog.SeasonDetail(r.Context(), id, season)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "not_found", "season not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCatalogHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, domain.CatalogDiagnostics{Operations: []domain.CatalogOperationHealth{}})
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Diagnostics())
}

func (s *Server) browseReady(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if s.catalog == nil || !s.catalog.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "catalog is not configured")
		return false
	}
	return true
}

// writeServiceError maps domain and catalog errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrInvalidPage),
		errors.Is(err, search.ErrInvalidSubscription),
		errors.Is(err, tmdb.ErrInvalidID),
		errors.Is(err, watchlist.ErrInvalidProgress),
		errors.Is(err, watchlist.ErrInvalidStatus),
		errors.Is(err, watchlist.ErrInvalidBulk):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, watchlist.ErrInvalidUser):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, watchlist.ErrShowNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, watchlist.ErrAlreadyFollowing):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, tmdb.ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "catalog_rate_limited", "catalog quota exhausted")
	case errors.Is(err, search.ErrCatalogUnavailable),
		errors.Is(err, tmdb.ErrNotConfigured),
		errors.Is(err, tmdb.ErrCircuitOpen),
		errors.Is(err, watchlist.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "catalog request timed out")
	case domain.IsUpstreamError(err):
		writeError(w, http.StatusBadGateway, "upstream_error", "catalog request failed")
	default:
		s.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parsePaging(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return 0, 0, false
	}
	limit, err := parsePositiveInt(r, "limit", defaultBrowseLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return 0, 0, false
	}
	if limit > maxBrowseLimit {
		limit = maxBrowseLimit
	}
	return page, limit, true
}

func parseIntCSV(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid provider id %q", value)
		}
		if _, exists := seen[parsed]; exists {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out, nil
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
