package places

import (
	"math"
	"sort"
	"strings"

	"github.com/wanderkit/wanderkit/internal/domain"
)

// sortByNameMatch orders candidates for a text query: exact or substring
// name matches first, then rating descending. The sort is stable, so
// re-ranking an already ordered list is a no-op.
func sortByNameMatch(places []domain.Place, query string) {
	queryLower := strings.ToLower(query)

	sort.SliceStable(places, func(i, j int) bool {
		a, b := places[i], places[j]
		aMatch := nameMatches(a.Name, queryLower)
		bMatch := nameMatches(b.Name, queryLower)

		if aMatch != bMatch {
			return aMatch
		}
		return a.Rating > b.Rating
	})
}

func nameMatches(name, queryLower string) bool {
	nameLower := strings.ToLower(name)
	return nameLower == queryLower ||
		strings.Contains(nameLower, queryLower) ||
		strings.Contains(queryLower, nameLower)
}

// TrendingScore combines average rating with log-scaled review volume, so a
// 4.5-star place with thousands of reviews outranks a 5.0-star place with
// three. A zero review count is clamped to one to keep log10 in domain.
func TrendingScore(p domain.Place) float64 {
	total := p.UserRatingsTotal
	if total < 1 {
		total = 1
	}
	return p.Rating * math.Log10(float64(total))
}

func sortByTrending(places []domain.Place) {
	sort.SliceStable(places, func(i, j int) bool {
		return TrendingScore(places[i]) > TrendingScore(places[j])
	})
}

// mergePlaces unions two candidate sets keyed by place id. A place found by
// both strategies appears once, keeping the richer record: missing fields
// on the first hit are filled from the second.
func mergePlaces(primary, secondary []domain.Place) []domain.Place {
	merged := make([]domain.Place, 0, len(primary)+len(secondary))
	index := make(map[string]int, len(primary))

	for _, p := range primary {
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}

	for _, p := range secondary {
		i, seen := index[p.ID]
		if !seen {
			index[p.ID] = len(merged)
			merged = append(merged, p)
			continue
		}
		merged[i] = enrich(merged[i], p)
	}

	return merged
}

// enrich fills gaps in base from other without overwriting populated fields.
func enrich(base, other domain.Place) domain.Place {
	if base.Name == "" {
		base.Name = other.Name
	}
	if base.Address == "" || base.Address == "Address unavailable" {
		if other.Address != "" {
			base.Address = other.Address
		}
	}
	if base.Location == nil {
		base.Location = other.Location
	}
	if base.Rating == 0 {
		base.Rating = other.Rating
	}
	if base.UserRatingsTotal == 0 {
		base.UserRatingsTotal = other.UserRatingsTotal
	}
	if base.PriceLevel == "" || base.PriceLevel == "N/A" {
		if other.PriceLevel != "" {
			base.PriceLevel = other.PriceLevel
		}
	}
	if !base.OpenNow {
		base.OpenNow = other.OpenNow
	}
	if len(base.Types) == 0 {
		base.Types = other.Types
	}
	if len(base.Photos) == 0 {
		base.Photos = other.Photos
		base.Image = other.Image
	}
	if base.Description == "" {
		base.Description = other.Description
	}
	return base
}
