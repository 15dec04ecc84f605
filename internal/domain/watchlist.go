package domain

import (
	"strings"
	"time"
)

type WatchStatus string

const (
	WatchStatusWantToWatch WatchStatus = "want_to_watch"
	WatchStatusWatching    WatchStatus = "watching"
	WatchStatusCompleted   WatchStatus = "completed"
	WatchStatusDropped     WatchStatus = "dropped"
)

func ParseWatchStatus(raw string) (WatchStatus, bool) {
	switch WatchStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case WatchStatusWantToWatch:
		return WatchStatusWantToWatch, true
	case WatchStatusWatching:
		return WatchStatusWatching, true
	case WatchStatusCompleted:
		return WatchStatusCompleted, true
	case WatchStatusDropped:
		return WatchStatusDropped, true
	default:
		return "", false
	}
}

// StoredShow is the persisted copy of a catalog show. Status holds the
// storage vocabulary, not ShowStatus.
type StoredShow struct {
	CatalogID    CatalogID `json:"catalogId"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	FirstAirDate string    `json:"firstAirDate,omitempty"`
	LastAirDate  string    `json:"lastAirDate,omitempty"`
	Status       string    `json:"status"`
	Genres       []string  `json:"genres,omitempty"`
	Rating       float64   `json:"rating"`
	Popularity   float64   `json:"popularity"`
	TotalSeasons int       `json:"totalSeasons"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type WatchlistEntry struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	CatalogID      CatalogID   `json:"catalogId"`
	Show           *StoredShow `json:"show,omitempty"`
	Status         WatchStatus `json:"status"`
	CurrentSeason  int         `json:"currentSeason"`
	CurrentEpisode int         `json:"currentEpisode"`
	Notes          string      `json:"notes,omitempty"`
	Following      bool        `json:"following"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	DeletedAt      *time.Time  `json:"deletedAt,omitempty"`
}

type WatchlistFilter struct {
	UserID string
	Status WatchStatus
	Offset int
	Limit  int
}

type WatchlistPage struct {
	Items      []WatchlistEntry `json:"items"`
	Pagination Pagination       `json:"pagination"`
}
