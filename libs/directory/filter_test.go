package directory

import (
	"net/url"
	"strings"
	"testing"
)

func alphaBeta() []ShopRecord {
	return []ShopRecord{
		{Name: "Alpha", City: "Paris, France", Rating: StringField("4.5"), ReviewsCount: StringField("10")},
		{Name: "Beta", City: "Lyon, France", Rating: StringField("3.0"), ReviewsCount: StringField("50")},
	}
}

func sampleShops() []ShopRecord {
	return []ShopRecord{
		{Name: "Moto Berlin", City: "Berlin, Germany", Rating: StringField("4.2"), ReviewsCount: StringField("120")},
		{Name: "Zweirad Klaus", City: "Munich, Germany", Rating: NumberField(4.8), ReviewsCount: NumberField(15)},
		{Name: "atelier moto", City: "Paris, France", Rating: StringField("N/A"), ReviewsCount: StringField("0")},
		{Name: "Garage Lyon", City: "Lyon, France", Rating: StringField("3.9"), ReviewsCount: StringField("1,234")},
		{Name: "Mystery Bikes", City: "UnknownFormat", Rating: StringField("5")},
		{Name: "Ducati Roma", City: "Rome, Lazio, Italy", Rating: StringField("4.5 stars"), ReviewsCount: StringField("77")},
	}
}

func names(view []*ShopRecord) []string {
	out := make([]string, 0, len(view))
	for _, shop := range view {
		out = append(out, shop.Name)
	}
	return out
}

func equalNames(t *testing.T, got []*ShopRecord, want ...string) {
	t.Helper()
	gotNames := names(got)
	if strings.Join(gotNames, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected order: got %v want %v", gotNames, want)
	}
}

func TestApplyCountryFilterSortedByReviews(t *testing.T) {
	view := Apply(alphaBeta(), FilterState{Country: "France", Sort: SortByReviews}, Locale{})
	equalNames(t, view, "Beta", "Alpha")
}

func TestApplyMinRatingKeepsOnlyQualifying(t *testing.T) {
	view := Apply(alphaBeta(), FilterState{MinRating: 4, Sort: SortByRating}, Locale{})
	equalNames(t, view, "Alpha")
}

func TestApplyDefaultStateSortsAllByRatingDescending(t *testing.T) {
	shops := sampleShops()
	view := Apply(shops, DefaultFilterState(), Locale{})

	if len(view) != len(shops) {
		t.Fatalf("expected every record, got %d of %d", len(view), len(shops))
	}
	// "N/A" sorts as zero, "4.5 stars" parses as 4.5
	equalNames(t, view, "Mystery Bikes", "Zweirad Klaus", "Ducati Roma", "Moto Berlin", "Garage Lyon", "atelier moto")
}

func TestApplyReturnsPointersIntoRecords(t *testing.T) {
	shops := alphaBeta()
	view := Apply(shops, DefaultFilterState(), Locale{})
	if view[0] != &shops[0] {
		t.Fatal("expected view to reference the loaded records")
	}
}

func TestApplyUnknownFormatNeverMatchesCountry(t *testing.T) {
	shops := sampleShops()
	for _, country := range []string{"France", "Germany", "UnknownFormat", "Italy"} {
		view := Apply(shops, FilterState{Country: country, Sort: SortByName}, Locale{})
		for _, shop := range view {
			if shop.Name == "Mystery Bikes" {
				t.Fatalf("record without a country matched country filter %q", country)
			}
		}
	}

	view := Apply(shops, FilterState{City: "UnknownFormat", Sort: SortByName}, Locale{})
	equalNames(t, view, "Mystery Bikes")
}

func TestApplyUsesLastSegmentForCountryAndFirstForCity(t *testing.T) {
	shops := sampleShops()
	equalNames(t, Apply(shops, FilterState{Country: "Italy"}, Locale{}), "Ducati Roma")
	equalNames(t, Apply(shops, FilterState{Country: "Lazio"}, Locale{}))
	equalNames(t, Apply(shops, FilterState{City: "Rome", Country: "Italy"}, Locale{}), "Ducati Roma")
}

func TestApplySearchIsCaseInsensitiveSubstring(t *testing.T) {
	view := Apply(sampleShops(), FilterState{Search: "MOTO", Sort: SortByName}, Locale{})
	equalNames(t, view, "atelier moto", "Moto Berlin")
}

func TestApplyNameSortUsesCollation(t *testing.T) {
	shops := []ShopRecord{
		{Name: "zeta"}, {Name: "Ölwerk"}, {Name: "Alpha"}, {Name: "beta"},
	}
	loc, err := NewLocale("de")
	if err != nil {
		t.Fatalf("locale: %v", err)
	}
	view := Apply(shops, FilterState{Sort: SortByName}, loc)
	equalNames(t, view, "Alpha", "beta", "Ölwerk", "zeta")
}

func TestApplyUnknownSortKeyFallsBackToName(t *testing.T) {
	view := Apply(alphaBeta(), FilterState{Sort: SortKey("distance")}, Locale{})
	equalNames(t, view, "Alpha", "Beta")
}

func TestApplyReviewsSortTreatsUnparsableAsZero(t *testing.T) {
	shops := []ShopRecord{
		{Name: "A", ReviewsCount: StringField("n/a")},
		{Name: "B", ReviewsCount: StringField("3")},
		{Name: "C"},
		{Name: "D", ReviewsCount: StringField("1,234")},
	}
	view := Apply(shops, FilterState{Sort: SortByReviews}, Locale{})
	// "1,234" parses as 1; unparsable ties keep source order
	equalNames(t, view, "B", "D", "A", "C")
}

func TestApplyPredicatesAreSoundAndComplete(t *testing.T) {
	shops := sampleShops()
	states := []FilterState{
		DefaultFilterState(),
		{Search: "o", Sort: SortByName},
		{Country: "France", Sort: SortByRating},
		{Country: "Germany", City: "Munich", Sort: SortByReviews},
		{MinRating: 4, Sort: SortByRating},
		{MinRating: 4.5, Search: "a", Sort: SortByName},
		{Country: "Nowhere"},
	}

	for _, state := range states {
		view := Apply(shops, state, Locale{})
		inView := map[*ShopRecord]bool{}
		for _, shop := range view {
			inView[shop] = true
			if !state.Matches(shop) {
				t.Fatalf("state %+v: %q in view but fails a predicate", state, shop.Name)
			}
		}
		for i := range shops {
			if !inView[&shops[i]] && state.Matches(&shops[i]) {
				t.Fatalf("state %+v: %q matches but is missing from view", state, shops[i].Name)
			}
		}
	}
}

func TestSortViewIsIdempotent(t *testing.T) {
	for _, key := range []SortKey{SortByRating, SortByReviews, SortByName} {
		view := Apply(sampleShops(), FilterState{Sort: key}, Locale{})
		first := names(view)
		SortView(view, key, Locale{})
		if strings.Join(first, "|") != strings.Join(names(view), "|") {
			t.Fatalf("sort %s not idempotent: %v vs %v", key, first, names(view))
		}
	}
}

func TestApplyEmptyInput(t *testing.T) {
	view := Apply(nil, DefaultFilterState(), Locale{})
	if len(view) != 0 {
		t.Fatalf("expected empty view, got %d", len(view))
	}
}

func TestParseFilterState(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  FilterState
	}{
		{name: "defaults", query: "", want: FilterState{Sort: SortByRating}},
		{
			name:  "all controls",
			query: "search=moto&country=France&city=Paris&min_rating=4.5&sort=reviews",
			want:  FilterState{Search: "moto", Country: "France", City: "Paris", MinRating: 4.5, Sort: SortByReviews},
		},
		{name: "bad rating", query: "min_rating=abc", want: FilterState{Sort: SortByRating}},
		{name: "unknown sort kept", query: "sort=distance", want: FilterState{Sort: SortKey("distance")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			if got := ParseFilterState(values); got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterStateValuesRoundTrip(t *testing.T) {
	state := FilterState{Search: "moto", Country: "France", City: "Paris", MinRating: 4, Sort: SortByName}
	if got := ParseFilterState(state.Values()); got != state {
		t.Fatalf("got %+v want %+v", got, state)
	}
	if encoded := DefaultFilterState().Values().Encode(); encoded != "" {
		t.Fatalf("expected defaults to encode empty, got %q", encoded)
	}
}
