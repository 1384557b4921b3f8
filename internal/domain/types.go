package domain

// ChatMessage is one turn of a conversation. Order in a slice is the
// conversation history and is never reordered by the router.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is the provider-agnostic input to the router.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// Completion is the normalized result shared by all three providers.
type Completion struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceQuery describes one place search. At least one of Text and
// Coordinates must be set.
type PlaceQuery struct {
	Text        string
	Coordinates *Coordinates
	Category    string
	ExactMatch  bool
}

type Photo struct {
	Reference string `json:"reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	URL       string `json:"url"`
}

type Review struct {
	AuthorName   string  `json:"authorName"`
	AuthorPhoto  string  `json:"authorPhoto"`
	Rating       float64 `json:"rating"`
	Time         int64   `json:"time"`
	Text         string  `json:"text"`
	RelativeTime string  `json:"relativeTime"`
}

// Place is the canonical normalized point-of-interest record. ID is the
// upstream place identifier and the sole dedup key when merging result sets.
type Place struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Address          string       `json:"address"`
	Location         *Coordinates `json:"location,omitempty"`
	Rating           float64      `json:"rating"`
	UserRatingsTotal int          `json:"userRatingsTotal"`
	PriceLevel       string       `json:"priceLevel"`
	OpenNow          bool         `json:"openNow"`
	OpeningHours     []string     `json:"openingHours,omitempty"`
	Types            []string     `json:"types"`
	Photos           []Photo      `json:"photos"`
	Image            string       `json:"image,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	Website          string       `json:"website,omitempty"`
	Description      string       `json:"description,omitempty"`
	Reviews          []Review     `json:"reviews,omitempty"`

	// AI enrichment, attached only when requested and only on success.
	AIDescription     string `json:"aiDescription,omitempty"`
	AIRecommendations string `json:"aiRecommendations,omitempty"`
}

// LocationSuggestion is one autocomplete prediction.
type LocationSuggestion struct {
	PlaceID       string `json:"placeId"`
	Description   string `json:"description"`
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText"`
}

type GeocodeResult struct {
	Location         Coordinates `json:"location"`
	FormattedAddress string      `json:"formatted_address"`
}

type ResearchSource struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Date    string `json:"date"`
}

type ResearchResult struct {
	Summary string           `json:"summary"`
	Sources []ResearchSource `json:"sources"`
}

// Suggestion is one AI travel recommendation.
type Suggestion struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
