package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"watchtrack/internal/domain"
)

const (
	opSearch          = "search"
	opDetail          = "detail"
	opProviders       = "providers"
	opSeasonProviders = "season_providers"
	opSeasonDetail    = "season_detail"
	opPopular         = "popular"
	opTrending        = "trending"
	opDiscover        = "discover"
)

// SearchByTitle runs a TV title search and truncates the page to limit entries.
func (c *Client) SearchByTitle(ctx context.Context, title string, page, limit int) (domain.CatalogPage, error) {
	params := url.Values{
		"query":         {strings.TrimSpace(title)},
		"page":          {strconv.Itoa(max(page, 1))},
		"include_adult": {"false"},
	}
	return c.pagedShows(ctx, opSearch, "/search/tv", params, limit)
}

func (c *Client) PopularShows(ctx context.Context, page, limit int) (domain.CatalogPage, error) {
	params := url.Values{"page": {strconv.Itoa(max(page, 1))}}
	return c.pagedShows(ctx, opPopular, "/tv/popular", params, limit)
}

func (c *Client) TrendingShows(ctx context.Context, limit int) (domain.CatalogPage, error) {
	return c.pagedShows(ctx, opTrending, "/trending/tv/day", url.Values{}, limit)
}

func (c *Client) ShowsByGenre(ctx context.Context, genreID, page, limit int) (domain.CatalogPage, error) {
	params := url.Values{
		"with_genres": {strconv.Itoa(genreID)},
		"sort_by":     {"popularity.desc"},
		"page":        {strconv.Itoa(max(page, 1))},
	}
	return c.pagedShows(ctx, opDiscover, "/discover/tv", params, limit)
}

func (c *Client) pagedShows(ctx context.Context, op, path string, params url.Values, limit int) (domain.CatalogPage, error) {
	body, err := c.get(ctx, op, path, params)
	if errors.Is(err, errNotFound) {
		return domain.CatalogPage{Shows: []domain.CatalogShow{}, Pagination: domain.Pagination{Page: 1}}, nil
	}
	if err != nil {
		return domain.CatalogPage{}, err
	}
	var response pagedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return domain.CatalogPage{}, decodeError(op, err)
	}
	return response.toPage(limit), nil
}

// ShowDetail returns nil without error when the catalog has no such show.
func (c *Client) ShowDetail(ctx context.Context, id domain.CatalogID) (*domain.CatalogShow, error) {
	tvID, err := parseID(opDetail, id)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, opDetail, "/tv/"+tvID, nil)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var response tvResult
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, decodeError(opDetail, err)
	}
	show := response.toShow()
	return &show, nil
}

// Providers returns the show's offers in country. A country the catalog does
// not list yields an empty set.
func (c *Client) Providers(ctx context.Context, id domain.CatalogID, country string) (domain.AvailabilitySet, error) {
	tvID, err := parseID(opProviders, id)
	if err != nil {
		return domain.AvailabilitySet{}, err
	}
	response, err := c.watchProviders(ctx, opProviders, "/tv/"+tvID+"/watch/providers")
	if err != nil {
		return domain.AvailabilitySet{}, err
	}
	return response.availabilityFor(country), nil
}

func (c *Client) SeasonProviders(ctx context.Context, id domain.CatalogID, season int, country string) (domain.SeasonAvailability, error) {
	result := domain.SeasonAvailability{SeasonNumber: season, Providers: []domain.ProviderOffer{}}
	tvID, err := parseID(opSeasonProviders, id)
	if err != nil {
		return result, err
	}
	response, err := c.watchProviders(ctx, opSeasonProviders, "/tv/"+tvID+"/season/"+strconv.Itoa(season)+"/watch/providers")
	if err != nil {
		return result, err
	}
	result.Availability = response.availabilityFor(country)
	result.Providers = result.Availability.Flatten()
	return result, nil
}

func (c *Client) watchProviders(ctx context.Context, op, path string) (watchProvidersResponse, error) {
	var response watchProvidersResponse
	body, err := c.get(ctx, op, path, nil)
	if errors.Is(err, errNotFound) {
		return response, nil
	}
	if err != nil {
		return response, err
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, decodeError(op, err)
	}
	return response, nil
}

// SeasonDetail returns the episode list of one season, or nil when it does not exist.
func (c *Client) SeasonDetail(ctx context.Context, id domain.CatalogID, season int) (*domain.SeasonDetail, error) {
	tvID, err := parseID(opSeasonDetail, id)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, opSeasonDetail, "/tv/"+tvID+"/season/"+strconv.Itoa(season), nil)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var response seasonResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, decodeError(opSeasonDetail, err)
	}
	detail := response.toSeason()
	return &detail, nil
}
