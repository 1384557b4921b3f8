package maps

import (
	"fmt"
	"strings"

	"github.com/wanderkit/wanderkit/internal/domain"
)

// PhotoProxyPath is the same-origin route photo references are rewritten
// to, so the Places API key never reaches the browser.
const PhotoProxyPath = "/places/photo"

type rawGeometry struct {
	Location domain.Coordinates `json:"location"`
}

type rawOpeningHours struct {
	OpenNow     bool     `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

type rawPhoto struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type rawReview struct {
	AuthorName              string  `json:"author_name"`
	ProfilePhotoURL         string  `json:"profile_photo_url"`
	Rating                  float64 `json:"rating"`
	Time                    int64   `json:"time"`
	Text                    string  `json:"text"`
	RelativeTimeDescription string  `json:"relative_time_description"`
}

type rawPlace struct {
	PlaceID          string           `json:"place_id"`
	Name             string           `json:"name"`
	FormattedAddress string           `json:"formatted_address"`
	Vicinity         string           `json:"vicinity"`
	Geometry         *rawGeometry     `json:"geometry"`
	Rating           float64          `json:"rating"`
	UserRatingsTotal int              `json:"user_ratings_total"`
	PriceLevel       *int             `json:"price_level"`
	OpeningHours     *rawOpeningHours `json:"opening_hours"`
	Photos           []rawPhoto       `json:"photos"`
	Types            []string         `json:"types"`
	Reviews          []rawReview      `json:"reviews"`
	Phone            string           `json:"formatted_phone_number"`
	Website          string           `json:"website"`
}

// FormatPriceLevel renders Google's 0-4 price level as a run of dollar
// signs, or "N/A" when absent or zero.
func FormatPriceLevel(level *int) string {
	if level == nil || *level <= 0 {
		return "N/A"
	}
	n := *level
	if n > 4 {
		n = 4
	}
	return strings.Repeat("$", n)
}

func photoURL(reference string, maxWidth int) string {
	return fmt.Sprintf("%s?reference=%s&maxwidth=%d", PhotoProxyPath, reference, maxWidth)
}

// formatPlace normalizes one upstream place record. photoWidth bounds the
// proxied photo size (400 for search listings, 800 for detail views).
func formatPlace(p rawPlace, photoWidth int) domain.Place {
	address := p.FormattedAddress
	if address == "" {
		address = p.Vicinity
	}
	if address == "" {
		address = "Address unavailable"
	}

	place := domain.Place{
		ID:               p.PlaceID,
		Name:             p.Name,
		Address:          address,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		PriceLevel:       FormatPriceLevel(p.PriceLevel),
		Types:            p.Types,
		Photos:           []domain.Photo{},
		Phone:            p.Phone,
		Website:          p.Website,
		Description:      describeTypes(p.Types),
	}

	if p.Geometry != nil {
		loc := p.Geometry.Location
		place.Location = &loc
	}

	if p.OpeningHours != nil {
		place.OpenNow = p.OpeningHours.OpenNow
		place.OpeningHours = p.OpeningHours.WeekdayText
	}

	for _, photo := range p.Photos {
		place.Photos = append(place.Photos, domain.Photo{
			Reference: photo.PhotoReference,
			Width:     photo.Width,
			Height:    photo.Height,
			URL:       photoURL(photo.PhotoReference, photoWidth),
		})
	}
	if len(place.Photos) > 0 {
		place.Image = place.Photos[0].URL
	}

	for _, r := range p.Reviews {
		place.Reviews = append(place.Reviews, domain.Review{
			AuthorName:   r.AuthorName,
			AuthorPhoto:  r.ProfilePhotoURL,
			Rating:       r.Rating,
			Time:         r.Time,
			Text:         r.Text,
			RelativeTime: r.RelativeTimeDescription,
		})
	}

	return place
}

var typeDescriptions = map[string]string{
	"restaurant":         "A place to enjoy delicious meals",
	"bar":                "A place to relax and enjoy drinks",
	"cafe":               "A cozy place for coffee and snacks",
	"tourist_attraction": "A popular destination for visitors",
	"hotel":              "Accommodation for travelers",
	"lodging":            "Accommodation for travelers",
	"shopping_mall":      "A center with various stores and shops",
	"beach":              "A beautiful coastal area",
	"park":               "A green space for recreation",
	"spa":                "A place for relaxation and treatments",
	"museum":             "A cultural institution for history and art",
	"bakery":             "A place for freshly baked goods",
	"supermarket":        "A large store selling groceries and household items",
}

func describeTypes(types []string) string {
	for _, t := range types {
		if d, ok := typeDescriptions[t]; ok {
			return d
		}
	}
	return "A point of interest worth visiting"
}
