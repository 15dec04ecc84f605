package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"watchtrack/internal/domain"
	"watchtrack/internal/metrics"
	"watchtrack/internal/ratelimit"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultLanguage = "en-US"
	redisCacheKey   = "watchtrack:catalog:"
	maxBodyBytes    = 2 << 20
	// fetchBudget bounds a shared fetch when the HTTP client has no timeout.
	fetchBudget = 30 * time.Second
)

var (
	ErrNotConfigured = errors.New("catalog api key is not configured")
	ErrRateLimited   = errors.New("catalog request quota exhausted")
	ErrCircuitOpen   = errors.New("catalog operation temporarily blocked")
	ErrInvalidID     = errors.New("invalid catalog id")

	errNotFound = errors.New("catalog resource not found")
)

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tmdb HTTP %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	UserAgent string
	Client    *http.Client
	Redis     *redis.Client
	CacheTTL  time.Duration
	Limiter   *ratelimit.Limiter
	Retry     RetryConfig
	Clock     func() time.Time
	Logger    *slog.Logger
}

type Client struct {
	apiKey    string
	baseURL   string
	language  string
	userAgent string
	http      *http.Client
	redis     *redis.Client
	cacheTTL  time.Duration
	limiter   *ratelimit.Limiter
	retry     RetryConfig
	clock     func() time.Time
	logger    *slog.Logger
	group     singleflight.Group
	health    *breaker
	budget    time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		language:  language,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      httpClient,
		redis:     cfg.Redis,
		cacheTTL:  cacheTTL,
		limiter:   cfg.Limiter,
		retry:     retry,
		clock:     clock,
		logger:    logger,
		health:    newBreaker(),
		budget:    fetchTimeout(httpClient.Timeout, retry),
	}
}

// fetchTimeout covers every attempt of one fetch plus the backoff between them.
func fetchTimeout(perRequest time.Duration, retry RetryConfig) time.Duration {
	if perRequest <= 0 {
		return fetchBudget
	}
	attempts := time.Duration(max(retry.MaxAttempts, 1))
	return perRequest*attempts + retry.MaxDelay*(attempts-1)
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) Diagnostics() domain.CatalogDiagnostics {
	return domain.CatalogDiagnostics{
		Enabled:        c.Enabled(),
		QuotaLimit:     c.limiter.Limit(),
		QuotaRemaining: c.limiter.Remaining(),
		Operations:     c.health.snapshot(c.clock()),
	}
}

// get returns the raw payload for path, served from Redis when cached.
// Concurrent identical requests share one upstream call that runs detached from
// any single caller, so one caller giving up never fails the others. A 404
// yields errNotFound; every other failure is a *domain.UpstreamError.
func (c *Client) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	if !c.Enabled() {
		return nil, &domain.UpstreamError{Op: op, Err: ErrNotConfigured}
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", c.language)
	key := path + "?" + params.Encode()

	if body, ok := c.cacheGet(ctx, op, key); ok {
		return body, nil
	}

	results := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.budget)
		defer cancel()
		return c.fetch(fetchCtx, op, key, path, params)
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, &domain.UpstreamError{Op: op, Err: ctx.Err()}
	case result = <-results:
	}
	if result.Err != nil {
		if errors.Is(result.Err, errNotFound) {
			return nil, errNotFound
		}
		upstream := &domain.UpstreamError{Op: op, Err: result.Err}
		var statusErr *statusError
		if errors.As(result.Err, &statusErr) {
			upstream.StatusCode = statusErr.StatusCode
		}
		return nil, upstream
	}
	return result.Val.([]byte), nil
}

func (c *Client) fetch(ctx context.Context, op, key, path string, params url.Values) ([]byte, error) {
	if blocked, until := c.health.blocked(op, c.clock()); blocked {
		metrics.CatalogRequestsTotal.WithLabelValues(op, "blocked").Inc()
		return nil, fmt.Errorf("%w until %s", ErrCircuitOpen, until.UTC().Format(time.RFC3339))
	}

	startedAt := time.Now()
	var body []byte
	err := retryWithBackoff(ctx, c.retry, func() error {
		if !c.limiter.TryAcquire() {
			metrics.CatalogQuotaRejectionsTotal.Inc()
			return ErrRateLimited
		}
		payload, err := c.do(ctx, path, params)
		if err != nil {
			return err
		}
		body = payload
		return nil
	})
	if errors.Is(err, ErrRateLimited) {
		metrics.CatalogRequestsTotal.WithLabelValues(op, "rate_limited").Inc()
		return nil, err
	}

	recorded := err
	if errors.Is(err, errNotFound) {
		recorded = nil
	}
	c.health.record(op, recorded, time.Since(startedAt), c.clock())
	if err != nil {
		if !errors.Is(err, errNotFound) {
			c.logger.Debug("catalog request failed",
				slog.String("operation", op),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	c.cacheSet(ctx, key, body)
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for name, values := range params {
		query[name] = values
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (c *Client) cacheGet(ctx context.Context, op, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, redisCacheKey+key).Bytes()
	if err != nil || len(data) == 0 {
		metrics.CatalogCacheMissesTotal.WithLabelValues(op).Inc()
		return nil, false
	}
	metrics.CatalogCacheHitsTotal.WithLabelValues(op).Inc()
	return data, true
}

func (c *Client) cacheSet(ctx context.Context, key string, body []byte) {
	if c.redis == nil || len(body) == 0 {
		return
	}
	if err := c.redis.Set(ctx, redisCacheKey+key, body, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("catalog cache write failed", slog.String("error", err.Error()))
	}
}

// parseID rejects identifiers the catalog cannot resolve before any request is made.
func parseID(op string, id domain.CatalogID) (string, error) {
	raw := strings.TrimSpace(string(id))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return "", &domain.UpstreamError{Op: op, Err: fmt.Errorf("%w: %q", ErrInvalidID, string(id))}
	}
	return strconv.Itoa(value), nil
}

func decodeError(op string, err error) error {
	return &domain.UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
}
