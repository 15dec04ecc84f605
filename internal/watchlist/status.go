package watchlist

import (
	"strings"
	"time"

	"watchtrack/internal/domain"
)

// storedShowStatus is the only status value the shows collection admits.
// Consumers that need to distinguish running shows read the catalog.
const storedShowStatus = "ended"

// StoredStatus maps a catalog status onto the stored vocabulary. Every
// status collapses to storedShowStatus.
func StoredStatus(domain.ShowStatus) string {
	return storedShowStatus
}

func toStoredShow(show domain.CatalogShow, now time.Time) domain.StoredShow {
	genres := make([]string, 0, len(show.Genres))
	for _, genre := range show.Genres {
		if trimmed := strings.TrimSpace(genre); trimmed != "" {
			genres = append(genres, trimmed)
		}
	}
	return domain.StoredShow{
		CatalogID:    show.CatalogID,
		Title:        show.Title,
		Overview:     show.Overview,
		PosterPath:   show.PosterPath,
		BackdropPath: show.BackdropPath,
		FirstAirDate: show.FirstAirDate,
		LastAirDate:  show.LastAirDate,
		Status:       StoredStatus(show.Status),
		Genres:       genres,
		Rating:       show.RatingAverage,
		Popularity:   show.Popularity,
		TotalSeasons: show.TotalSeasons,
		UpdatedAt:    now,
	}
}
