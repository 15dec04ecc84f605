package search

import (
	"sort"
	"strings"

	"watchtrack/internal/domain"
)

// MergeScorePolicy decides which score a merged record keeps.
type MergeScorePolicy string

const (
	// MergeScoreFirst keeps the score of the first-seen member.
	MergeScoreFirst MergeScorePolicy = "first"
	// MergeScoreMax keeps the highest score in the group.
	MergeScoreMax MergeScorePolicy = "max"
)

func NormalizeMergeScorePolicy(raw string) MergeScorePolicy {
	if MergeScorePolicy(strings.ToLower(strings.TrimSpace(raw))) == MergeScoreMax {
		return MergeScoreMax
	}
	return MergeScoreFirst
}

// MatchesProviderFilter reports whether any requested provider is present in
// the availability pool for tier. An empty request matches everything.
func MatchesProviderFilter(availability domain.AvailabilitySet, providerIDs []int, tier domain.SubscriptionTier) bool {
	if len(providerIDs) == 0 {
		return true
	}
	pool := availability.Pool(tier)
	available := make(map[int]struct{}, len(pool))
	for _, offer := range pool {
		available[offer.ProviderID] = struct{}{}
	}
	for _, id := range providerIDs {
		if _, ok := available[id]; ok {
			return true
		}
	}
	return false
}

// Merge folds candidates sharing a disambiguation key into the first-seen
// member. Buckets, flattened providers and catalog IDs are unioned, and the
// merged record matches filters when any member did. Input order of the
// surviving records is preserved.
func Merge(candidates []domain.EnrichedCandidate, policy MergeScorePolicy) []domain.EnrichedCandidate {
	out := make([]domain.EnrichedCandidate, 0, len(candidates))
	index := make(map[string]int, len(candidates))

	for _, candidate := range candidates {
		if len(candidate.CatalogIDs) == 0 {
			candidate.CatalogIDs = []domain.CatalogID{candidate.CatalogID}
		}
		key := disambiguationKey(candidate.Title, candidate.Year)
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			candidate.CatalogIDs = append([]domain.CatalogID(nil), candidate.CatalogIDs...)
			out = append(out, candidate)
			continue
		}

		base := &out[pos]
		base.Availability = base.Availability.Union(candidate.Availability)
		base.Providers = nonNilProviders(domain.UnionOffers(base.Providers, candidate.Providers))
		base.CatalogIDs = appendUniqueIDs(base.CatalogIDs, candidate.CatalogIDs)
		base.MatchesFilters = base.MatchesFilters || candidate.MatchesFilters
		if policy == MergeScoreMax && candidate.TitleMatchScore > base.TitleMatchScore {
			base.TitleMatchScore = candidate.TitleMatchScore
		}
	}
	return out
}

// Rank drops candidates that failed the provider filter and orders the rest by
// score, then popularity. Title and first catalog ID break remaining ties so
// the order never depends on fetch completion order.
func Rank(candidates []domain.EnrichedCandidate) []domain.EnrichedCandidate {
	out := make([]domain.EnrichedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.MatchesFilters {
			out = append(out, candidate)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		left, right := out[i], out[j]
		if cmp := compareInt(left.TitleMatchScore, right.TitleMatchScore); cmp != 0 {
			return cmp > 0
		}
		if cmp := compareFloat(left.Popularity, right.Popularity); cmp != 0 {
			return cmp > 0
		}
		if lt, rt := normalizeTitle(left.Title), normalizeTitle(right.Title); lt != rt {
			return lt < rt
		}
		return firstCatalogID(left) < firstCatalogID(right)
	})
	return out
}

func compareInt(left, right int) int {
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	default:
		return 0
	}
}

func compareFloat(left, right float64) int {
	switch {
	case left > right:
		return 1
	case left < right:
		return -1
	default:
		return 0
	}
}

func firstCatalogID(candidate domain.EnrichedCandidate) domain.CatalogID {
	if len(candidate.CatalogIDs) > 0 {
		return candidate.CatalogIDs[0]
	}
	return candidate.CatalogID
}

func appendUniqueIDs(ids []domain.CatalogID, more []domain.CatalogID) []domain.CatalogID {
	for _, id := range more {
		exists := false
		for _, existing := range ids {
			if existing == id {
				exists = true
				break
			}
		}
		if !exists {
			ids = append(ids, id)
		}
	}
	return ids
}

func nonNilProviders(items []domain.ProviderOffer) []domain.ProviderOffer {
	if items == nil {
		return []domain.ProviderOffer{}
	}
	return items
}
