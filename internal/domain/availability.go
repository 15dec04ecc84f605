package domain

import (
	"encoding/json"
	"strings"
)

type ProviderOffer struct {
	ProviderID   int    `json:"providerId"`
	ProviderName string `json:"providerName"`
	LogoPath     string `json:"logoPath,omitempty"`
}

// AvailabilityBucket names one of the five fixed offer categories.
type AvailabilityBucket string

const (
	BucketFlatrate AvailabilityBucket = "flatrate"
	BucketFree     AvailabilityBucket = "free"
	BucketAds      AvailabilityBucket = "ads"
	BucketRent     AvailabilityBucket = "rent"
	BucketBuy      AvailabilityBucket = "buy"
)

// AvailabilityBuckets lists the buckets in the order they are flattened.
var AvailabilityBuckets = []AvailabilityBucket{BucketFlatrate, BucketFree, BucketAds, BucketRent, BucketBuy}

// SubscriptionTier selects the availability pool a provider filter runs against.
// TierAny unions every bucket; the other tiers share their bucket's name.
type SubscriptionTier string

const TierAny SubscriptionTier = "any"

func ParseSubscriptionTier(raw string) (SubscriptionTier, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == string(TierAny) {
		return TierAny, true
	}
	for _, bucket := range AvailabilityBuckets {
		if value == string(bucket) {
			return SubscriptionTier(bucket), true
		}
	}
	return "", false
}

// AvailabilitySet groups offers by bucket. Every bucket is deduplicated by
// provider ID, keeping the first occurrence.
type AvailabilitySet struct {
	Flatrate []ProviderOffer `json:"flatrate"`
	Free     []ProviderOffer `json:"free"`
	Ads      []ProviderOffer `json:"ads"`
	Rent     []ProviderOffer `json:"rent"`
	Buy      []ProviderOffer `json:"buy"`
}

func (a AvailabilitySet) Bucket(bucket AvailabilityBucket) []ProviderOffer {
	switch bucket {
	case BucketFlatrate:
		return a.Flatrate
	case BucketFree:
		return a.Free
	case BucketAds:
		return a.Ads
	case BucketRent:
		return a.Rent
	case BucketBuy:
		return a.Buy
	default:
		return nil
	}
}

func (a *AvailabilitySet) bucketRef(bucket AvailabilityBucket) *[]ProviderOffer {
	switch bucket {
	case BucketFlatrate:
		return &a.Flatrate
	case BucketFree:
		return &a.Free
	case BucketAds:
		return &a.Ads
	case BucketRent:
		return &a.Rent
	case BucketBuy:
		return &a.Buy
	default:
		return nil
	}
}

// Add appends offer to bucket unless the bucket already holds its provider ID.
func (a *AvailabilitySet) Add(bucket AvailabilityBucket, offer ProviderOffer) bool {
	ref := a.bucketRef(bucket)
	if ref == nil {
		return false
	}
	for _, existing := range *ref {
		if existing.ProviderID == offer.ProviderID {
			return false
		}
	}
	*ref = append(*ref, offer)
	return true
}

func (a AvailabilitySet) IsEmpty() bool {
	for _, bucket := range AvailabilityBuckets {
		if len(a.Bucket(bucket)) > 0 {
			return false
		}
	}
	return true
}

// Flatten returns every offer across the buckets, deduplicated by provider ID.
func (a AvailabilitySet) Flatten() []ProviderOffer {
	var out []ProviderOffer
	for _, bucket := range AvailabilityBuckets {
		out = UnionOffers(out, a.Bucket(bucket))
	}
	if out == nil {
		return []ProviderOffer{}
	}
	return out
}

// Pool returns the offers a provider filter should consider for tier.
func (a AvailabilitySet) Pool(tier SubscriptionTier) []ProviderOffer {
	if tier == "" || tier == TierAny {
		return a.Flatten()
	}
	return a.Bucket(AvailabilityBucket(tier))
}

// Union merges other into a copy of a, bucket by bucket.
func (a AvailabilitySet) Union(other AvailabilitySet) AvailabilitySet {
	var out AvailabilitySet
	for _, bucket := range AvailabilityBuckets {
		*out.bucketRef(bucket) = UnionOffers(a.Bucket(bucket), other.Bucket(bucket))
	}
	return out
}

func (a AvailabilitySet) MarshalJSON() ([]byte, error) {
	type plain AvailabilitySet
	return json.Marshal(plain{
		Flatrate: nonNilOffers(a.Flatrate),
		Free:     nonNilOffers(a.Free),
		Ads:      nonNilOffers(a.Ads),
		Rent:     nonNilOffers(a.Rent),
		Buy:      nonNilOffers(a.Buy),
	})
}

// UnionOffers concatenates left and right, dropping any offer whose provider
// ID was already seen. The result never aliases the inputs.
func UnionOffers(left, right []ProviderOffer) []ProviderOffer {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	out := make([]ProviderOffer, 0, len(left)+len(right))
	seen := make(map[int]struct{}, len(left)+len(right))
	for _, list := range [][]ProviderOffer{left, right} {
		for _, offer := range list {
			if _, exists := seen[offer.ProviderID]; exists {
				continue
			}
			seen[offer.ProviderID] = struct{}{}
			out = append(out, offer)
		}
	}
	return out
}

func nonNilOffers(items []ProviderOffer) []ProviderOffer {
	if items == nil {
		return []ProviderOffer{}
	}
	return items
}

type SeasonAvailability struct {
	SeasonNumber int             `json:"seasonNumber"`
	Providers    []ProviderOffer `json:"providers"`
	Availability AvailabilitySet `json:"availability"`
}
