package domain

import "strings"

// SeasonMode controls how deep per-season availability enrichment goes.
type SeasonMode string

const (
	SeasonModeNone    SeasonMode = "none"
	SeasonModeCompact SeasonMode = "compact"
	SeasonModeAll     SeasonMode = "all"
)

func NormalizeSeasonMode(raw string) SeasonMode {
	switch SeasonMode(strings.ToLower(strings.TrimSpace(raw))) {
	case SeasonModeNone:
		return SeasonModeNone
	case SeasonModeAll:
		return SeasonModeAll
	default:
		return SeasonModeCompact
	}
}

type UniversalSearchRequest struct {
	Query        string
	Country      string
	ProviderIDs  []int
	Subscription SubscriptionTier
	Page         int
	Limit        int
	SeasonMode   SeasonMode
}

// EnrichedCandidate is a catalog show decorated with availability and scoring
// data. It lives for the duration of a single search call.
type EnrichedCandidate struct {
	CatalogShow
	Year               string               `json:"year,omitempty"`
	Providers          []ProviderOffer      `json:"providers"`
	Availability       AvailabilitySet      `json:"availability"`
	SeasonAvailability []SeasonAvailability `json:"seasonAvailability"`
	MatchesFilters     bool                 `json:"matchesFilters"`
	TitleMatchScore    int                  `json:"titleMatchScore"`
	CatalogIDs         []CatalogID          `json:"catalogIds"`
}

type SearchInfo struct {
	OriginalQuery string `json:"originalQuery"`
	ParsedTitle   string `json:"parsedTitle"`
	ParsedYear    string `json:"parsedYear,omitempty"`
}

type UniversalSearchResponse struct {
	Results    []EnrichedCandidate `json:"results"`
	Pagination Pagination          `json:"pagination"`
	SearchInfo SearchInfo          `json:"searchInfo"`
	ElapsedMS  int64               `json:"elapsedMs"`
}
