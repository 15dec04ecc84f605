package tmdb

import (
	"strconv"
	"strings"

	"watchtrack/internal/domain"
)

type tvResult struct {
	ID               int          `json:"id"`
	Name             string       `json:"name"`
	OriginalName     string       `json:"original_name,omitempty"`
	Overview         string       `json:"overview,omitempty"`
	PosterPath       string       `json:"poster_path,omitempty"`
	BackdropPath     string       `json:"backdrop_path,omitempty"`
	FirstAirDate     string       `json:"first_air_date,omitempty"`
	LastAirDate      string       `json:"last_air_date,omitempty"`
	Status           string       `json:"status,omitempty"`
	VoteAverage      float64      `json:"vote_average,omitempty"`
	Popularity       float64      `json:"popularity,omitempty"`
	Genres           []genreEntry `json:"genres,omitempty"`
	NumberOfSeasons  int          `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int          `json:"number_of_episodes,omitempty"`
}

type genreEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type pagedResponse struct {
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
	Results      []tvResult `json:"results"`
}

type providerEntry struct {
	ProviderID      int    `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path,omitempty"`
	DisplayPriority int    `json:"display_priority,omitempty"`
}

type countryProviders struct {
	Link     string          `json:"link,omitempty"`
	Flatrate []providerEntry `json:"flatrate,omitempty"`
	Free     []providerEntry `json:"free,omitempty"`
	Ads      []providerEntry `json:"ads,omitempty"`
	Rent     []providerEntry `json:"rent,omitempty"`
	Buy      []providerEntry `json:"buy,omitempty"`
}

type watchProvidersResponse struct {
	ID      int                         `json:"id"`
	Results map[string]countryProviders `json:"results"`
}

type episodeEntry struct {
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview,omitempty"`
	AirDate       string  `json:"air_date,omitempty"`
	StillPath     string  `json:"still_path,omitempty"`
	Runtime       int     `json:"runtime,omitempty"`
	VoteAverage   float64 `json:"vote_average,omitempty"`
}

type seasonResponse struct {
	SeasonNumber int            `json:"season_number"`
	Name         string         `json:"name"`
	Overview     string         `json:"overview,omitempty"`
	AirDate      string         `json:"air_date,omitempty"`
	PosterPath   string         `json:"poster_path,omitempty"`
	Episodes     []episodeEntry `json:"episodes"`
}

// mapStatus folds the catalog's status vocabulary into ShowStatus.
func mapStatus(raw string) domain.ShowStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ended", "canceled", "cancelled":
		return domain.ShowStatusEnded
	case "returning series", "in production", "planned", "pilot":
		return domain.ShowStatusReturning
	default:
		return domain.ShowStatusUnknown
	}
}

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(date[:4]); err != nil {
		return ""
	}
	return date[:4]
}

func (r tvResult) toShow() domain.CatalogShow {
	title := strings.TrimSpace(r.Name)
	if title == "" {
		title = strings.TrimSpace(r.OriginalName)
	}
	show := domain.CatalogShow{
		CatalogID:     domain.CatalogID(strconv.Itoa(r.ID)),
		Title:         title,
		Overview:      strings.TrimSpace(r.Overview),
		FirstAirYear:  yearOf(r.FirstAirDate),
		FirstAirDate:  strings.TrimSpace(r.FirstAirDate),
		LastAirDate:   strings.TrimSpace(r.LastAirDate),
		PosterPath:    r.PosterPath,
		BackdropPath:  r.BackdropPath,
		Status:        mapStatus(r.Status),
		RatingAverage: r.VoteAverage,
		Popularity:    r.Popularity,
		TotalSeasons:  r.NumberOfSeasons,
	}
	for _, genre := range r.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			show.Genres = append(show.Genres, name)
		}
	}
	return show
}

func (p pagedResponse) toPage(limit int) domain.CatalogPage {
	results := p.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	shows := make([]domain.CatalogShow, 0, len(results))
	for _, item := range results {
		shows = append(shows, item.toShow())
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return domain.CatalogPage{
		Shows: shows,
		Pagination: domain.Pagination{
			Page:         page,
			TotalPages:   p.TotalPages,
			TotalResults: p.TotalResults,
		},
	}
}

// availabilityFor returns the offers for country, or an empty set when the
// catalog lists nothing there.
func (w watchProvidersResponse) availabilityFor(country string) domain.AvailabilitySet {
	var set domain.AvailabilitySet
	entry, ok := w.Results[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return set
	}
	buckets := []struct {
		bucket  domain.AvailabilityBucket
		entries []providerEntry
	}{
		{domain.BucketFlatrate, entry.Flatrate},
		{domain.BucketFree, entry.Free},
		{domain.BucketAds, entry.Ads},
		{domain.BucketRent, entry.Rent},
		{domain.BucketBuy, entry.Buy},
	}
	for _, item := range buckets {
		for _, provider := range item.entries {
			set.Add(item.bucket, domain.ProviderOffer{
				ProviderID:   provider.ProviderID,
				ProviderName: strings.TrimSpace(provider.ProviderName),
				LogoPath:     provider.LogoPath,
			})
		}
	}
	return set
}

func (s seasonResponse) toSeason() domain.SeasonDetail {
	detail := domain.SeasonDetail{
		SeasonNumber: s.SeasonNumber,
		Name:         s.Name,
		Overview:     s.Overview,
		AirDate:      s.AirDate,
		PosterPath:   s.PosterPath,
		Episodes:     make([]domain.Episode, 0, len(s.Episodes)),
	}
	for _, ep := range s.Episodes {
		detail.Episodes = append(detail.Episodes, domain.Episode{
			EpisodeNumber: ep.EpisodeNumber,
			Name:          ep.Name,
			Overview:      ep.Overview,
			AirDate:       ep.AirDate,
			StillPath:     ep.StillPath,
			RuntimeMin:    ep.Runtime,
			RatingAverage: ep.VoteAverage,
		})
	}
	return detail
}
