package directory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultHours        = "Hours not available"
	DefaultBusinessType = "Motorcycle Shop"
	HoursBadgeOpen      = "Open"
	HoursBadgeClosed    = "Closed"
	StarGlyph           = "★"
	MapsSearchURL       = "https://www.google.com/maps/search/?api=1&query="

	emptyIcon    = "🔍"
	emptyHeading = "No shops found"
	emptyHint    = "Try adjusting your filters or search terms"
)

// ResultsView is the render tree for one filter pass.
type ResultsView struct {
	Count      int         `json:"count"`
	CountLabel string      `json:"count_label"`
	Cards      []Card      `json:"cards"`
	Empty      *EmptyState `json:"empty,omitempty"`
}

// EmptyState is the "no results" placeholder.
type EmptyState struct {
	Icon    string `json:"icon"`
	Heading string `json:"heading"`
	Hint    string `json:"hint"`
}

// RatingBlock is shown only for records whose rating parses.
type RatingBlock struct {
	Stars        string  `json:"stars"`
	Value        float64 `json:"value"`
	Display      string  `json:"display"`
	Reviews      int64   `json:"reviews,omitempty"`
	ReviewsLabel string  `json:"reviews_label,omitempty"`
}

// Card is one rendered shop.
type Card struct {
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Location     string       `json:"location"`
	BusinessType string       `json:"business_type"`
	Rating       *RatingBlock `json:"rating,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	PhoneURL     string       `json:"phone_url,omitempty"`
	Website      string       `json:"website,omitempty"`
	MapURL       string       `json:"map_url,omitempty"`
	Hours        string       `json:"hours"`
	HoursBadge   string       `json:"hours_badge"`
	Open         bool         `json:"open"`
}

// Render builds the results tree for view.
func Render(view []*ShopRecord, loc Locale) ResultsView {
	if len(view) == 0 {
		return ResultsView{
			Count:      0,
			CountLabel: "0",
			Cards:      []Card{},
			Empty:      &EmptyState{Icon: emptyIcon, Heading: emptyHeading, Hint: emptyHint},
		}
	}

	cards := make([]Card, 0, len(view))
	for _, shop := range view {
		cards = append(cards, RenderCard(shop, loc))
	}
	return ResultsView{
		Count:      len(view),
		CountLabel: loc.FormatCount(int64(len(view))),
		Cards:      cards,
	}
}

// RenderCard derives the card for a single record.
func RenderCard(shop *ShopRecord, loc Locale) Card {
	card := Card{
		Name:         shop.Name,
		Address:      shop.Address,
		Location:     shop.City,
		BusinessType: shop.BusinessType.Or(DefaultBusinessType),
	}

	if rating, ok := shop.ParsedRating(); ok {
		block := &RatingBlock{
			Stars:   strings.Repeat(StarGlyph, starCount(rating)),
			Value:   rating,
			Display: FormatRating(rating),
		}
		if reviews, ok := shop.ParsedReviews(); ok && reviews > 0 {
			block.Reviews = reviews
			block.ReviewsLabel = fmt.Sprintf("(%s reviews)", loc.FormatCount(reviews))
		}
		card.Rating = block
	}

	if shop.Phone.Truthy() && shop.Phone.String() != NotAvailable {
		card.Phone = shop.Phone.String()
		card.PhoneURL = "tel:" + strings.ReplaceAll(card.Phone, " ", "")
	}
	if shop.Website.Truthy() && shop.Website.String() != NotAvailable {
		card.Website = shop.Website.String()
	}
	if shop.Latitude.Truthy() && shop.Longitude.Truthy() {
		card.MapURL = MapsSearchURL + shop.Latitude.String() + "," + shop.Longitude.String()
	}

	card.Hours = shop.Hours.Or(DefaultHours)
	card.HoursBadge = HoursBadge(card.Hours)
	card.Open = card.HoursBadge == HoursBadgeOpen
	return card
}

// HoursBadge is a substring heuristic over free text, not a schedule parser:
// any mention of "closed" marks the shop closed.
func HoursBadge(hours string) string {
	if strings.Contains(strings.ToLower(hours), "closed") {
		return HoursBadgeClosed
	}
	return HoursBadgeOpen
}

// maxStars bounds the star string for absurd inputs such as "1e9".
const maxStars = 1000

// starCount rounds half up; negative ratings draw no stars.
func starCount(rating float64) int {
	if math.IsInf(rating, 0) || math.IsNaN(rating) {
		return 0
	}
	n := math.Floor(rating + 0.5)
	if n < 0 {
		return 0
	}
	if n > maxStars {
		n = maxStars
	}
	return int(n)
}

// FormatRating prints one decimal, rounding ties up.
func FormatRating(rating float64) string {
	return strconv.FormatFloat(math.Floor(rating*10+0.5)/10, 'f', 1, 64)
}
