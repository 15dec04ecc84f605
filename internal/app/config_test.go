package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "TMDB_API_KEY", "CATALOG_QUOTA", "SEARCH_SEASON_LIMIT", "MONGO_DB", "TMDB_CACHE_DISABLED"} {
		t.Setenv(key, "")
	}
	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8090" || cfg.MongoDB != "watchtrack" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CatalogQuota != 40 || cfg.CatalogQuotaWindow != time.Second {
		t.Fatalf("unexpected quota defaults: %d/%s", cfg.CatalogQuota, cfg.CatalogQuotaWindow)
	}
	if cfg.SearchSeasonLimit != 5 || cfg.SearchTimeout != 20*time.Second || cfg.TMDBCacheTTL != 6*time.Hour {
		t.Fatalf("unexpected search defaults: %+v", cfg)
	}
	if cfg.TMDBCacheOff {
		t.Fatalf("cache should be on by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CATALOG_QUOTA", "0")
	t.Setenv("SEARCH_SEASON_LIMIT", "-3")
	t.Setenv("SEARCH_MAX_CONCURRENCY", "abc")
	t.Setenv("SEARCH_MERGE_SCORE_POLICY", "MAX")
	t.Setenv("TMDB_CACHE_DISABLED", "yes")
	t.Setenv("TMDB_API_KEY", "  secret  ")

	cfg := LoadConfig()
	if cfg.CatalogQuota != 0 {
		t.Fatalf("expected explicit zero quota, got %d", cfg.CatalogQuota)
	}
	if cfg.SearchSeasonLimit != 5 {
		t.Fatalf("expected negative season limit to fall back, got %d", cfg.SearchSeasonLimit)
	}
	if cfg.SearchMaxConcurrency != 8 {
		t.Fatalf("expected invalid concurrency to fall back, got %d", cfg.SearchMaxConcurrency)
	}
	if cfg.MergeScorePolicy != "max" || !cfg.TMDBCacheOff || cfg.TMDBAPIKey != "secret" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}
