package directory

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortKey selects the ordering of a filtered view.
type SortKey string

const (
	SortByRating  SortKey = "rating"
	SortByReviews SortKey = "reviews"
	SortByName    SortKey = "name"
)

// Query parameter names of the five filter controls.
const (
	ParamSearch    = "search"
	ParamCountry   = "country"
	ParamCity      = "city"
	ParamMinRating = "min_rating"
	ParamSort      = "sort"
)

// MinRatingChoices are the values offered by the minimum rating selector.
var MinRatingChoices = []float64{0, 3, 3.5, 4, 4.5}

// FilterState is the current value of the five filter controls.
type FilterState struct {
	Search    string  `json:"search"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
	MinRating float64 `json:"min_rating"`
	Sort      SortKey `json:"sort"`
}

// DefaultFilterState is what the reset control restores.
func DefaultFilterState() FilterState {
	return FilterState{Sort: SortByRating}
}

// ParseFilterState reads the controls from query values. Missing controls keep
// their defaults; an unparsable minimum rating means no rating filter.
func ParseFilterState(values url.Values) FilterState {
	state := DefaultFilterState()
	state.Search = values.Get(ParamSearch)
	state.Country = values.Get(ParamCountry)
	state.City = values.Get(ParamCity)

	if raw := strings.TrimSpace(values.Get(ParamMinRating)); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) {
			state.MinRating = v
		}
	}
	if raw := values.Get(ParamSort); raw != "" {
		state.Sort = SortKey(raw)
	}
	return state
}

// Values encodes the state back into query values, omitting defaults.
func (s FilterState) Values() url.Values {
	values := url.Values{}
	if s.Search != "" {
		values.Set(ParamSearch, s.Search)
	}
	if s.Country != "" {
		values.Set(ParamCountry, s.Country)
	}
	if s.City != "" {
		values.Set(ParamCity, s.City)
	}
	if s.MinRating != 0 {
		values.Set(ParamMinRating, strconv.FormatFloat(s.MinRating, 'f', -1, 64))
	}
	if s.Sort != "" && s.Sort != SortByRating {
		values.Set(ParamSort, string(s.Sort))
	}
	return values
}

// Matches reports whether the record passes every active predicate.
func (s FilterState) Matches(shop *ShopRecord) bool {
	if s.Search != "" && !strings.Contains(strings.ToLower(shop.Name), strings.ToLower(s.Search)) {
		return false
	}

	city, country := SplitLocation(shop.City)
	if s.Country != "" && country != s.Country {
		return false
	}
	if s.City != "" && city != s.City {
		return false
	}

	if s.MinRating > 0 {
		rating, ok := shop.ParsedRating()
		if !ok || rating < s.MinRating {
			return false
		}
	}
	return true
}

// Apply returns the records matching state, ordered by state.Sort. The view
// points into records; nothing is copied.
func Apply(records []ShopRecord, state FilterState, loc Locale) []*ShopRecord {
	view := make([]*ShopRecord, 0, len(records))
	for i := range records {
		if state.Matches(&records[i]) {
			view = append(view, &records[i])
		}
	}
	SortView(view, state.Sort, loc)
	return view
}

// SortView orders view in place. Unknown keys sort by name.
func SortView(view []*ShopRecord, key SortKey, loc Locale) {
	switch key {
	case SortByRating:
		sort.SliceStable(view, func(i, j int) bool {
			return ratingOrZero(view[i]) > ratingOrZero(view[j])
		})
	case SortByReviews:
		sort.SliceStable(view, func(i, j int) bool {
			return reviewsOrZero(view[i]) > reviewsOrZero(view[j])
		})
	default:
		compare := loc.compareStrings()
		sort.SliceStable(view, func(i, j int) bool {
			return compare(view[i].Name, view[j].Name) < 0
		})
	}
}

func ratingOrZero(shop *ShopRecord) float64 {
	rating, ok := shop.ParsedRating()
	if !ok {
		return 0
	}
	return rating
}

func reviewsOrZero(shop *ShopRecord) int64 {
	reviews, ok := shop.ParsedReviews()
	if !ok {
		return 0
	}
	return reviews
}
