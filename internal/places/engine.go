// Package places implements the search and ranking engine behind the travel
// guide: strategy selection over the Maps search APIs, result merging and
// deduplication, name-match ranking and trending-score ranking.
package places

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wanderkit/wanderkit/internal/domain"
	"github.com/wanderkit/wanderkit/internal/maps"
)

const (
	// A short query with no whitespace reads like a literal establishment
	// name ("Wendys"), not a descriptive phrase.
	businessNameMaxLen = 15

	businessBiasRadius  = 15000
	exactMatchRadius    = 5000
	shortQueryRadius    = 10000
	defaultSearchRadius = 5000
	nearbyRadius        = 5000

	trendingLimit = 12
)

// Searcher is the slice of the maps client the engine needs. Tests swap in
// a fake.
type Searcher interface {
	TextSearch(ctx context.Context, p maps.TextSearchParams) (*maps.SearchPage, error)
	FindPlace(ctx context.Context, p maps.FindPlaceParams) (*maps.SearchPage, error)
	NearbySearch(ctx context.Context, p maps.NearbySearchParams) (*maps.SearchPage, error)
}

type Engine struct {
	maps Searcher
	log  *slog.Logger
}

func NewEngine(searcher Searcher, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{maps: searcher, log: log}
}

// Result is a ranked, deduplicated search outcome.
type Result struct {
	Places        []domain.Place `json:"results"`
	Status        string         `json:"status"`
	NextPageToken string         `json:"next_page_token"`
}

// IsBusinessName reports whether a query looks like a literal establishment
// name rather than a descriptive search phrase.
func IsBusinessName(query string) bool {
	return len(query) < businessNameMaxLen && !strings.Contains(query, " ") && query != ""
}

// Search resolves a PlaceQuery through the strategy ladder:
//  1. likely business name with coordinates: find-place and text-search run
//     concurrently and their results are merged;
//  2. exactMatch: find-place first, downgrading to text search when empty;
//  3. general text search, biased by coordinates when present;
//  4. coordinates plus category only: nearby search.
func (e *Engine) Search(ctx context.Context, q domain.PlaceQuery) (*Result, error) {
	if q.Text == "" && q.Coordinates == nil {
		return nil, fmt.Errorf("%w: either query text or coordinates must be provided", domain.ErrInvalidInput)
	}

	if q.Text != "" {
		if IsBusinessName(q.Text) && q.Coordinates != nil {
			result, err := e.businessNameSearch(ctx, q)
			if err != nil {
				return nil, err
			}
			if len(result.Places) > 0 {
				return result, nil
			}
			e.log.Debug("business-name search found nothing, falling back", "query", q.Text)
		}

		if q.ExactMatch {
			page, err := e.maps.FindPlace(ctx, maps.FindPlaceParams{
				Input:      q.Text,
				Bias:       q.Coordinates,
				BiasRadius: exactMatchRadius,
			})
			if err != nil {
				e.log.Warn("find-place failed, downgrading to text search", "query", q.Text, "error", err)
			} else if len(page.Places) > 0 {
				return &Result{Places: page.Places, Status: page.Status}, nil
			}
		}

		return e.textSearch(ctx, q)
	}

	if q.Category == "" {
		return nil, fmt.Errorf("%w: category is required when searching by coordinates alone", domain.ErrInvalidInput)
	}

	page, err := e.maps.NearbySearch(ctx, maps.NearbySearchParams{
		Location: *q.Coordinates,
		Radius:   nearbyRadius,
		Type:     q.Category,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Places: page.Places, Status: page.Status, NextPageToken: page.NextPageToken}, nil
}

// businessNameSearch runs find-place and text-search concurrently; both
// result sets are needed for recall. A failure in one branch degrades that
// branch to empty instead of failing the search.
func (e *Engine) businessNameSearch(ctx context.Context, q domain.PlaceQuery) (*Result, error) {
	var (
		findPage *maps.SearchPage
		textPage *maps.SearchPage
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := e.maps.FindPlace(gctx, maps.FindPlaceParams{
			Input:      q.Text,
			Bias:       q.Coordinates,
			BiasRadius: businessBiasRadius,
		})
		if err != nil {
			e.log.Warn("find-place branch failed", "query", q.Text, "error", err)
			return nil
		}
		findPage = page
		return nil
	})

	g.Go(func() error {
		page, err := e.maps.TextSearch(gctx, maps.TextSearchParams{
			Query:    q.Text,
			Location: q.Coordinates,
			Radius:   businessBiasRadius,
		})
		if err != nil {
			e.log.Warn("text-search branch failed", "query", q.Text, "error", err)
			return nil
		}
		textPage = page
		return nil
	})

	_ = g.Wait()

	var primary, secondary []domain.Place
	var nextPageToken string
	if findPage != nil {
		primary = findPage.Places
	}
	if textPage != nil {
		secondary = textPage.Places
		nextPageToken = textPage.NextPageToken
	}

	merged := mergePlaces(primary, secondary)
	sortByNameMatch(merged, q.Text)

	return &Result{
		Places:        merged,
		Status:        "OK",
		NextPageToken: nextPageToken,
	}, nil
}

func (e *Engine) textSearch(ctx context.Context, q domain.PlaceQuery) (*Result, error) {
	params := maps.TextSearchParams{
		Query: q.Text,
		Type:  q.Category,
	}

	if q.Coordinates != nil {
		params.Location = q.Coordinates
		if len(q.Text) < 10 && !strings.Contains(q.Text, " ") {
			// Short space-free tokens get a wider net and an
			// establishment filter when no category narrows it.
			params.Radius = shortQueryRadius
			if q.Category == "" {
				params.Type = "establishment"
			}
		} else {
			params.Radius = defaultSearchRadius
		}
	}

	page, err := e.maps.TextSearch(ctx, params)
	if err != nil {
		return nil, err
	}

	results := page.Places
	if len(results) > 1 {
		sortByNameMatch(results, q.Text)
	}

	return &Result{Places: results, Status: page.Status, NextPageToken: page.NextPageToken}, nil
}

// categoryTypes maps UI category keys onto Google place types.
var categoryTypes = map[string]string{
	"restaurant":    "restaurant",
	"beach":         "natural_feature",
	"hotel":         "lodging",
	"bar":           "bar",
	"cafe":          "cafe",
	"services":      "point_of_interest",
	"entertainment": "tourist_attraction",
	"shopping":      "shopping_mall",
}

// categoryKeywords augments nearby searches whose mapped type is too broad
// to be useful on its own.
var categoryKeywords = map[string]string{
	"beach":         "beach",
	"services":      "services",
	"entertainment": "entertainment",
}

// CategoryKeys lists the category identifiers CountByCategory understands.
func CategoryKeys() []string {
	keys := make([]string, 0, len(categoryTypes))
	for k := range categoryTypes {
		keys = append(keys, k)
	}
	return keys
}

// Trending returns nearby places for a category ranked by popularity score,
// truncated to the top 12.
func (e *Engine) Trending(ctx context.Context, location domain.Coordinates, category string) ([]domain.Place, int, error) {
	page, err := e.nearbyByCategory(ctx, location, category)
	if err != nil {
		return nil, 0, err
	}

	results := page.Places
	sortByTrending(results)

	total := len(results)
	if len(results) > trendingLimit {
		results = results[:trendingLimit]
	}
	return results, total, nil
}

// TrendingCount reports only the result-set size for a category.
func (e *Engine) TrendingCount(ctx context.Context, location domain.Coordinates, category string) (int, error) {
	page, err := e.nearbyByCategory(ctx, location, category)
	if err != nil {
		return 0, err
	}
	return len(page.Places), nil
}

func (e *Engine) nearbyByCategory(ctx context.Context, location domain.Coordinates, category string) (*maps.SearchPage, error) {
	googleType, ok := categoryTypes[category]
	if !ok {
		googleType = category
	}

	return e.maps.NearbySearch(ctx, maps.NearbySearchParams{
		Location: location,
		Radius:   nearbyRadius,
		Type:     googleType,
		Keyword:  categoryKeywords[category],
		RankBy:   "prominence",
	})
}

// CountByCategory issues one nearby search per category concurrently and
// reports just the result-set size for each. A failed category degrades to
// zero rather than failing the aggregation.
func (e *Engine) CountByCategory(ctx context.Context, location domain.Coordinates, categories []string) map[string]int {
	counts := make(map[string]int, len(categories))
	results := make([]int, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			n, err := e.TrendingCount(gctx, location, category)
			if err != nil {
				e.log.Warn("category count failed", "category", category, "error", err)
				return nil
			}
			results[i] = n
			return nil
		})
	}
	_ = g.Wait()

	for i, category := range categories {
		counts[category] = results[i]
	}
	return counts
}
