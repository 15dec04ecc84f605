package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	UserAgent string

	TMDBAPIKey       string
	TMDBBaseURL      string
	TMDBImageBaseURL string
	TMDBLanguage     string
	TMDBTimeout      time.Duration
	TMDBCacheTTL     time.Duration
	TMDBRetries      int
	TMDBCacheOff     bool

	CatalogQuota       int
	CatalogQuotaWindow time.Duration

	RedisURL string
	MongoURI string
	MongoDB  string

	SearchTimeout        time.Duration
	SearchSeasonLimit    int
	SearchMaxConcurrency int
	MergeScorePolicy     string

	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8090"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent: getEnv("CATALOG_USER_AGENT", "watchtrack/1.0"),

		TMDBAPIKey:       strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		TMDBLanguage:     getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBTimeout:      time.Duration(getEnvInt("TMDB_TIMEOUT_SECONDS", 10)) * time.Second,
		TMDBCacheTTL:     time.Duration(getEnvInt("TMDB_CACHE_TTL_HOURS", 6)) * time.Hour,
		TMDBRetries:      getEnvInt("TMDB_RETRY_ATTEMPTS", 2),
		TMDBCacheOff:     getEnvBool("TMDB_CACHE_DISABLED", false),

		CatalogQuota:       getEnvNonNegativeInt("CATALOG_QUOTA", 40),
		CatalogQuotaWindow: time.Duration(getEnvInt("CATALOG_QUOTA_WINDOW_SECONDS", 1)) * time.Second,

		RedisURL: getEnv("REDIS_URL", ""),
		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "watchtrack"),

		SearchTimeout:        time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 20)) * time.Second,
		SearchSeasonLimit:    getEnvNonNegativeInt("SEARCH_SEASON_LIMIT", 5),
		SearchMaxConcurrency: getEnvInt("SEARCH_MAX_CONCURRENCY", 8),
		MergeScorePolicy:     strings.ToLower(getEnv("SEARCH_MERGE_SCORE_POLICY", "first")),

		RateLimitRPS:   float64(getEnvInt("HTTP_RATE_LIMIT_RPS", 50)),
		RateLimitBurst: getEnvInt("HTTP_RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvNonNegativeInt accepts 0 as an explicit "off" value.
func getEnvNonNegativeInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
