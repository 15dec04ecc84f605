package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"watchtrack/internal/domain"
	"watchtrack/internal/providers/tmdb"
	"watchtrack/internal/search"
	"watchtrack/internal/watchlist"
)

type fakeSearchService struct {
	lastRequest domain.UniversalSearchRequest
	err         error
	callCount   int
}

func (f *fakeSearchService) UniversalSearch(_ context.Context, request domain.UniversalSearchRequest) (domain.UniversalSearchResponse, error) {
	f.callCount++
	f.lastRequest = request
	if f.err != nil {
		return domain.UniversalSearchResponse{}, f.err
	}
	return domain.UniversalSearchResponse{
		Results: []domain.EnrichedCandidate{{
			CatalogShow:        domain.CatalogShow{CatalogID: "2316", Title: "The Office", FirstAirYear: "2005"},
			Year:               "2005",
			Providers:          []domain.ProviderOffer{{ProviderID: 8, ProviderName: "Netflix"}},
			SeasonAvailability: []domain.SeasonAvailability{},
			MatchesFilters:     true,
			TitleMatchScore:    130,
			CatalogIDs:         []domain.CatalogID{"2316", "9999"},
		}},
		Pagination: domain.Pagination{Page: request.Page, TotalPages: 1, TotalResults: 2},
		SearchInfo: domain.SearchInfo{OriginalQuery: request.Query, ParsedTitle: "The Office", ParsedYear: "2005"},
	}, nil
}

type fakeCatalogService struct {
	enabled   bool
	shows     map[domain.CatalogID]domain.CatalogShow
	seasons   map[int]domain.SeasonDetail
	err       error
	lastGenre int
	lastPage  int
	lastLimit int
}

func (f *fakeCatalogService) page(page, limit int) (domain.CatalogPage, error) {
	f.lastPage = page
	f.lastLimit = limit
	if f.err != nil {
		return domain.CatalogPage{}, f.err
	}
	return domain.CatalogPage{
		Shows:      []domain.CatalogShow{{CatalogID: "1", Title: "Lost"}},
		Pagination: domain.Pagination{Page: page, TotalPages: 4, TotalResults: 80},
	}, nil
}

func (f *fakeCatalogService) PopularShows(_ context.Context, page, limit int) (domain.CatalogPage, error) {
	return f.page(page, limit)
}

func (f *fakeCatalogService) TrendingShows(_ context.Context, limit int) (domain.CatalogPage, error) {
	return f.page(1, limit)
}

func (f *fakeCatalogService) ShowsByGenre(_ context.Context, genreID, page, limit int) (domain.CatalogPage, error) {
	f.lastGenre = genreID
	return f.page(page, limit)
}

func (f *fakeCatalogService) ShowDetail(_ context.Context, id domain.CatalogID) (*domain.CatalogShow, error) {
	if f.err != nil {
		return nil, f.err
	}
	show, ok := f.shows[id]
	if !ok {
		return nil, nil
	}
	return &show, nil
}

func (f *fakeCatalogService) SeasonDetail(_ context.Context, _ domain.CatalogID, season int) (*domain.SeasonDetail, error) {
	detail, ok := f.seasons[season]
	if !ok {
		return nil, nil
	}
	return &detail, nil
}

func (f *fakeCatalogService) Diagnostics() domain.CatalogDiagnostics {
	return domain.CatalogDiagnostics{
		Enabled:        f.enabled,
		QuotaLimit:     40,
		QuotaRemaining: 39,
		Operations:     []domain.CatalogOperationHealth{{Operation: "search", Available: true}},
	}
}

func (f *fakeCatalogService) Enabled() bool { return f.enabled }

type fakeWatchlistService struct {
	lastUser   string
	lastStatus string
	lastUpdate watchlist.ProgressUpdate
	lastBulk   watchlist.BulkRequest
	addErr     error
	restored   bool
	removed    []domain.CatalogID
}

func (f *fakeWatchlistService) QuickAdd(_ context.Context, userID string, id domain.CatalogID) (watchlist.QuickAddResult, error) {
	f.lastUser = userID
	if f.addErr != nil {
		return watchlist.QuickAddResult{}, f.addErr
	}
	return watchlist.QuickAddResult{
		Show:     domain.StoredShow{CatalogID: id, Title: "Severance", Status: "ended"},
		Entry:    domain.WatchlistEntry{ID: "e-1", UserID: userID, CatalogID: id, Status: domain.WatchStatusWantToWatch, Following: true},
		Restored: f.restored,
	}, nil
}

func (f *fakeWatchlistService) Show(_ context.Context, id domain.CatalogID) (domain.StoredShow, error) {
	if id == "404" {
		return domain.StoredShow{}, watchlist.ErrShowNotFound
	}
	return domain.StoredShow{CatalogID: id, Title: "Stored Show", Status: "ended"}, nil
}

func (f *fakeWatchlistService) List(_ context.Context, userID, status string, page, limit int) (domain.WatchlistPage, error) {
	f.lastUser = userID
	f.lastStatus = status
	if status == "paused" {
		return domain.WatchlistPage{}, watchlist.ErrInvalidStatus
	}
	return domain.WatchlistPage{
		Items:      []domain.WatchlistEntry{{ID: "e-1", UserID: userID, CatalogID: "1"}},
		Pagination: domain.Pagination{Page: page, TotalPages: 1, TotalResults: 1},
	}, nil
}

func (f *fakeWatchlistService) UpdateProgress(_ context.Context, userID string, id domain.CatalogID, update watchlist.ProgressUpdate) (domain.WatchlistEntry, error) {
	f.lastUser = userID
	f.lastUpdate = update
	entry := domain.WatchlistEntry{ID: "e-1", UserID: userID, CatalogID: id, Status: domain.WatchStatusWantToWatch}
	if update.Season != nil {
		entry.CurrentSeason = *update.Season
	}
	return entry, nil
}

func (f *fakeWatchlistService) Remove(_ context.Context, userID string, id domain.CatalogID) error {
	f.lastUser = userID
	if id == "missing" {
		return domain.ErrNotFound
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeWatchlistService) Bulk(_ context.Context, userID string, request watchlist.BulkRequest) (watchlist.BulkResult, error) {
	f.lastUser = userID
	f.lastBulk = request
	return watchlist.BulkResult{Total: len(request.CatalogIDs), Succeeded: len(request.CatalogIDs), Failed: []watchlist.BulkFailure{}}, nil
}

func serve(t *testing.T, server *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return payload.Error.Code
}

func TestUniversalSearchMissingService(t *testing.T) {
	rec := serve(t, NewServer(nil), http.MethodGet, "/shows/search?q=lost", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestUniversalSearchMissingQuery(t *testing.T) {
	fake := &fakeSearchService{}
	rec := serve(t, NewServer(fake), http.MethodGet, "/shows/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fake.callCount != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestUniversalSearchParsesParameters(t *testing.T) {
	fake := &fakeSearchService{}
	target := "/shows/search?q=The+Office+(2005)&country=gb&providers=8,337,8&subscription=flatrate&page=2&limit=10&seasonMode=all"
	rec := serve(t, NewServer(fake), http.MethodGet, target, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	request := fake.lastRequest
	if request.Query != "The Office (2005)" || request.Country != "gb" || request.Page != 2 || request.Limit != 10 {
		t.Fatalf("unexpected request: %+v", request)
	}
	if len(request.ProviderIDs) != 2 || request.ProviderIDs[0] != 8 || request.ProviderIDs[1] != 337 {
		t.Fatalf("unexpected provider ids: %v", request.ProviderIDs)
	}
	if request.Subscription != "flatrate" || request.SeasonMode != domain.SeasonModeAll {
		t.Fatalf("unexpected tier or mode: %+v", request)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"results", "pagination", "searchInfo"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("response missing %q: %s", key, rec.Body.String())
		}
	}
	if !containsAll(rec.Body.String(), []string{`"catalogIds":["2316","9999"]`, `"titleMatchScore":130`, `"parsedYear":"2005"`}) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUniversalSearchRejectsBadProviders(t *testing.T) {
	fake := &fakeSearchService{}
	rec := serve(t, NewServer(fake), http.MethodGet, "/shows/search?q=lost&providers=8,netflix", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUniversalSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "invalid query", err: search.ErrInvalidQuery, code: http.StatusBadRequest},
		{name: "invalid tier", err: search.ErrInvalidSubscription, code: http.StatusBadRequest},
		{name: "no catalog", err: search.ErrCatalogUnavailable, code: http.StatusServiceUnavailable},
		{name: "quota", err: &domain.UpstreamError{Op: "search", Err: tmdb.ErrRateLimited}, code: http.StatusTooManyRequests},
		{name: "circuit", err: &domain.UpstreamError{Op: "search", Err: tmdb.ErrCircuitOpen}, code: http.StatusServiceUnavailable},
		{name: "upstream", err: &domain.UpstreamError{Op: "search", StatusCode: 500, Err: errors.New("boom")}, code: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, NewServer(&fakeSearchService{err: tc.err}), http.MethodGet, "/shows/search?q=lost", "", nil)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestBrowseEndpoints(t *testing.T) {
	catalog := &fakeCatalogService{enabled: true}
	server := NewServer(&fakeSearchService{}, WithCatalog(catalog))

	rec := serve(t, server, http.MethodGet, "/shows/popular?page=3&limit=500", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("popular: expected 200, got %d", rec.Code)
	}
	if catalog.lastPage != 3 || catalog.lastLimit != maxBrowseLimit {
		t.Fatalf("popular: unexpected paging %d/%d", catalog.lastPage, catalog.lastLimit)
	}

	rec = serve(t, server, http.MethodGet, "/shows/trending?limit=5", "", nil)
	if rec.Code != http.StatusOK || catalog.lastLimit != 5 {
		t.Fatalf("trending: unexpected result %d limit=%d", rec.Code, catalog.lastLimit)
	}

	rec = serve(t, server, http.MethodGet, "/shows/discover", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("discover without genre: expected 400, got %d", rec.Code)
	}
	rec = serve(t, server, http.MethodGet, "/shows/discover?genre=18", "", nil)
	if rec.Code != http.StatusOK || catalog.lastGenre != 18 {
		t.Fatalf("discover: unexpected result %d genre=%d", rec.Code, catalog.lastGenre)
	}
}

func TestBrowseDisabledCatalog(t *testing.T) {
	server := NewServer(&fakeSearchService{}, WithCatalog(&fakeCatalogService{enabled: false}))
	rec := serve(t, server, http.MethodGet, "/shows/popular", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestShowDetailRoutes(t *testing.T) {
	catalog := &fakeCatalogService{
		enabled: true,
		shows:   map[domain.CatalogID]domain.CatalogShow{"1399": {CatalogID: "1399", Title: "Severance", TotalSeasons: 2}},
		seasons: map[int]domain.SeasonDetail{1: {SeasonNumber: 1, Name: "Season 1"}},
	}
	server := NewServer(&fakeSearchService{}, WithCatalog(catalog))

	rec := serve(t, server, http.MethodGet, "/shows/1399", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Severance") {
		t.Fatalf("detail: unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, server, http.MethodGet, "/shows/1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing detail: expected 404, got %d", rec.Code)
	}

	rec = serve(t, server, http.MethodGet, "/shows/1399/seasons", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalSeasons":2`) {
		t.Fatalf("seasons: unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, server, http.MethodGet, "/shows/1399/seasons?season=1", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Season 1") {
		t.Fatalf("season detail: unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, server, http.MethodGet, "/shows/1399/seasons?season=9", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing season: expected 404, got %d", rec.Code)
	}
	rec = serve(t, server, http.MethodGet, "/shows/1399/cast", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown subroute: expected 404, got %d", rec.Code)
	}
}

func TestShowDetailPrefersStoredShow(t *testing.T) {
	server := NewServer(&fakeSearchService{},
		WithCatalog(&fakeCatalogService{enabled: true}),
		WithWatchlist(&fakeWatchlistService{}),
	)
	rec := serve(t, server, http.MethodGet, "/shows/42", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Stored Show") {
		t.Fatalf("unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, server, http.MethodGet, "/shows/404", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCatalogHealthEndpoint(t *testing.T) {
	server := NewServer(&fakeSearchService{}, WithCatalog(&fakeCatalogService{enabled: true}))
	rec := serve(t, server, http.MethodGet, "/catalog/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload domain.CatalogDiagnostics
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Enabled || payload.QuotaRemaining != 39 || len(payload.Operations) != 1 {
		t.Fatalf("unexpected diagnostics: %+v", payload)
	}
}

func TestWatchlistRequiresUser(t *testing.T) {
	server := NewServer(&fakeSearchService{}, WithWatchlist(&fakeWatchlistService{}))
	rec := serve(t, server, http.MethodGet, "/watchlist", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWatchlistUnavailable(t *testing.T) {
	server := NewServer(&fakeSearchService{})
	rec := serve(t, server, http.MethodGet, "/watchlist", "", map[string]string{userIDHeader: "u1"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	fake := &fakeWatchlistService{}
	server := NewServer(&fakeSearchService{}, WithWatchlist(fake))
	user := map[string]string{userIDHeader: "u1"}

	rec := serve(t, server, http.MethodGet, "/watchlist?status=watching&page=2", "", user)
	if rec.Code != http.StatusOK || fake.lastStatus != "watching" || fake.lastUser != "u1" {
		t.Fatalf("list: unexpected %d status=%q", rec.Code, fake.lastStatus)
	}
	rec = serve(t, server, http.MethodGet, "/watchlist?status=paused", "", user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("list invalid status: expected 400, got %d", rec.Code)
	}

	rec = serve(t, server, http.MethodPost, "/watchlist/1399", "", user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("quick add: expected 201, got %d", rec.Code)
	}
	fake.restored = true
	rec = serve(t, server, http.MethodPost, "/watchlist/1399", "", user)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"restored":true`) {
		t.Fatalf("restore: unexpected %d %s", rec.Code, rec.Body.String())
	}
	fake.addErr = watchlist.ErrAlreadyFollowing
	rec = serve(t, server, http.MethodPost, "/watchlist/1399", "", user)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "conflict" {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	rec = serve(t, server, http.MethodPut, "/watchlist/1399/status", `{"status":"watching","season":2}`, user)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.lastUpdate.Status == nil || *fake.lastUpdate.Status != "watching" || fake.lastUpdate.Season == nil || *fake.lastUpdate.Season != 2 {
		t.Fatalf("progress: unexpected update %+v", fake.lastUpdate)
	}
	if fake.lastUpdate.Episode != nil {
		t.Fatalf("progress: episode should be absent")
	}
	rec = serve(t, server, http.MethodPut, "/watchlist/1399/status", `{"rating":5}`, user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("progress unknown field: expected 400, got %d", rec.Code)
	}

	rec = serve(t, server, http.MethodDelete, "/watchlist/1399", "", user)
	if rec.Code != http.StatusNoContent || len(fake.removed) != 1 {
		t.Fatalf("remove: unexpected %d", rec.Code)
	}
	rec = serve(t, server, http.MethodDelete, "/watchlist/missing", "", user)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove missing: expected 404, got %d", rec.Code)
	}

	rec = serve(t, server, http.MethodPut, "/watchlist/bulk", `{"action":"remove","catalogIds":["1","2"]}`, user)
	if rec.Code != http.StatusOK || fake.lastBulk.Action != watchlist.BulkRemove || len(fake.lastBulk.CatalogIDs) != 2 {
		t.Fatalf("bulk: unexpected %d %+v", rec.Code, fake.lastBulk)
	}
	rec = serve(t, server, http.MethodGet, "/watchlist/bulk", "", user)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bulk GET: expected 405, got %d", rec.Code)
	}
}

func TestImageProxy(t *testing.T) {
	var requested string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		if strings.HasSuffix(r.URL.Path, "/missing.jpg") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	defer upstream.Close()

	server := NewServer(&fakeSearchService{}, WithImageProxy(upstream.URL+"/t/p/", upstream.Client()))

	rec := serve(t, server, http.MethodGet, "/shows/image?path=/abc123.jpg&size=w342", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if requested != "/t/p/w342/abc123.jpg" {
		t.Fatalf("unexpected upstream path: %s", requested)
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}

	rec = serve(t, server, http.MethodGet, "/shows/image?path=/abc123.jpg", "", nil)
	if rec.Code != http.StatusOK || requested != "/t/p/w500/abc123.jpg" {
		t.Fatalf("default size: unexpected %d %s", rec.Code, requested)
	}

	rec = serve(t, server, http.MethodGet, "/shows/image?path=/missing.jpg", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing image: expected 404, got %d", rec.Code)
	}

	for _, target := range []string{
		"/shows/image",
		"/shows/image?path=https://evil.example/x.jpg",
		"/shows/image?path=/../etc/passwd",
		"/shows/image?path=/abc.jpg&size=w9999",
	} {
		rec = serve(t, server, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	server := NewServer(&fakeSearchService{}, WithRateLimit(1, 1))
	first := serve(t, server, http.MethodGet, "/catalog/health", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}
	handler := server.Handler()
	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/health", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes: %v", codes)
	}
	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health should bypass the limiter, got %d", health.Code)
	}
}

func TestRateLimitIsPerCaller(t *testing.T) {
	handler := NewServer(&fakeSearchService{}, WithRateLimit(1, 1)).Handler()
	request := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/catalog/health", nil)
		if userID != "" {
			req.Header.Set(userIDHeader, userID)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := request("alice"); code != http.StatusOK {
		t.Fatalf("expected alice's first request to pass, got %d", code)
	}
	if code := request("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("expected alice to be limited, got %d", code)
	}
	if code := request("bob"); code != http.StatusOK {
		t.Fatalf("expected bob to keep his own budget, got %d", code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	panicking := recoveryMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shows/1", nil))
	if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != "internal_error" {
		t.Fatalf("expected 500 internal_error, got %d %s", rec.Code, rec.Body.String())
	}

	partial := recoveryMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))
	rec = httptest.NewRecorder()
	partial.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shows/1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "partial" {
		t.Fatalf("expected the committed response to be left alone, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAccessLogLevel(t *testing.T) {
	tests := []struct {
		route  string
		status int
		want   slog.Level
	}{
		{route: "/shows/search", status: http.StatusOK, want: slog.LevelInfo},
		{route: "/health", status: http.StatusOK, want: slog.LevelDebug},
		{route: "/shows/image", status: http.StatusNotFound, want: slog.LevelWarn},
		{route: "/watchlist/{id}", status: http.StatusBadGateway, want: slog.LevelError},
	}
	for _, tc := range tests {
		if got := accessLogLevel(tc.route, tc.status); got != tc.want {
			t.Fatalf("accessLogLevel(%q, %d) = %s, want %s", tc.route, tc.status, got, tc.want)
		}
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/health":                 "/health",
		"/shows/search":           "/shows/search",
		"/shows/1399":             "/shows/{id}",
		"/shows/1399/seasons":     "/shows/{id}/seasons",
		"/watchlist":              "/watchlist",
		"/watchlist/bulk":         "/watchlist/bulk",
		"/watchlist/1399":         "/watchlist/{id}",
		"/watchlist/1399/status/": "/watchlist/{id}/status",
		"/admin":                  "/other",
	}
	for path, want := range tests {
		if got := normalizeRoute(path); got != want {
			t.Fatalf("normalizeRoute(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	rec := serve(t, NewServer(nil), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Status != "ok" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
}

func containsAll(value string, required []string) bool {
	for _, item := range required {
		if !strings.Contains(value, item) {
			return false
		}
	}
	return true
}
