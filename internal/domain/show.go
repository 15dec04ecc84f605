package domain

import "time"

// CatalogID is the opaque identifier a show carries in the external catalog.
// It is stable per upstream record but two IDs may describe the same show.
type CatalogID string

type ShowStatus string

const (
	ShowStatusEnded     ShowStatus = "ended"
	ShowStatusReturning ShowStatus = "returning"
	ShowStatusUnknown   ShowStatus = "unknown"
)

func NormalizeShowStatus(raw string) ShowStatus {
	switch ShowStatus(raw) {
	case ShowStatusEnded:
		return ShowStatusEnded
	case ShowStatusReturning:
		return ShowStatusReturning
	default:
		return ShowStatusUnknown
	}
}

type CatalogShow struct {
	CatalogID     CatalogID  `json:"catalogId"`
	Title         string     `json:"title"`
	Overview      string     `json:"overview,omitempty"`
	FirstAirYear  string     `json:"firstAirYear,omitempty"`
	FirstAirDate  string     `json:"firstAirDate,omitempty"`
	LastAirDate   string     `json:"lastAirDate,omitempty"`
	PosterPath    string     `json:"posterPath,omitempty"`
	BackdropPath  string     `json:"backdropPath,omitempty"`
	Status        ShowStatus `json:"status"`
	Genres        []string   `json:"genres,omitempty"`
	RatingAverage float64    `json:"ratingAverage"`
	Popularity    float64    `json:"popularity"`
	TotalSeasons  int        `json:"totalSeasons,omitempty"`
}

type Pagination struct {
	Page         int `json:"page"`
	TotalPages   int `json:"totalPages"`
	TotalResults int `json:"totalResults"`
}

type CatalogPage struct {
	Shows      []CatalogShow `json:"shows"`
	Pagination Pagination    `json:"pagination"`
}

type Episode struct {
	EpisodeNumber int     `json:"episodeNumber"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview,omitempty"`
	AirDate       string  `json:"airDate,omitempty"`
	StillPath     string  `json:"stillPath,omitempty"`
	RuntimeMin    int     `json:"runtimeMin,omitempty"`
	RatingAverage float64 `json:"ratingAverage,omitempty"`
}

type SeasonDetail struct {
	SeasonNumber int       `json:"seasonNumber"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	AirDate      string    `json:"airDate,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

// CatalogOperationHealth is the circuit-breaker view of one catalog operation.
type CatalogOperationHealth struct {
	Operation           string     `json:"operation"`
	Available           bool       `json:"available"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
}

type CatalogDiagnostics struct {
	Enabled        bool                     `json:"enabled"`
	QuotaLimit     int                      `json:"quotaLimit"`
	QuotaRemaining int                      `json:"quotaRemaining"`
	Operations     []CatalogOperationHealth `json:"operations"`
}
