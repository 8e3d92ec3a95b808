package directory

const (
	AllCitiesLabel    = "All Cities"
	AllCountriesLabel = "All Countries"
)

// SelectOption is one entry of a selector control.
type SelectOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// CitySelector is the city control after a country change.
type CitySelector struct {
	Options  []SelectOption `json:"options"`
	Enabled  bool           `json:"enabled"`
	Selected string         `json:"selected"`
}

// Cascade rebuilds the city selector for country. The "All Cities" sentinel is
// always first. Without a known country the selector is disabled and holds only
// the sentinel. A city that is not offered for country does not survive.
func Cascade(index CountryCityIndex, country, city string) CitySelector {
	selector := CitySelector{
		Options: []SelectOption{{Value: "", Label: AllCitiesLabel}},
	}

	cities := index[country]
	if country == "" || len(cities) == 0 {
		selector.Options[0].Selected = true
		return selector
	}

	selector.Enabled = true
	for _, name := range cities {
		if city != "" && name == city {
			selector.Selected = name
		}
		selector.Options = append(selector.Options, SelectOption{Value: name, Label: name})
	}
	for i := range selector.Options {
		selector.Options[i].Selected = selector.Options[i].Value == selector.Selected
	}
	return selector
}

// CascadeState runs the cascade for state and returns the state with the city
// the selector actually holds. Handlers call this before Apply.
func CascadeState(index CountryCityIndex, state FilterState) (FilterState, CitySelector) {
	selector := Cascade(index, state.Country, state.City)
	state.City = selector.Selected
	return state, selector
}

// CountryOptions builds the country selector: the "All Countries" sentinel
// followed by every country in collation order.
func CountryOptions(index CountryCityIndex, selected string, loc Locale) []SelectOption {
	names := index.SortedCountries(loc)
	options := make([]SelectOption, 0, len(names)+1)
	options = append(options, SelectOption{Value: "", Label: AllCountriesLabel, Selected: selected == ""})
	for _, name := range names {
		options = append(options, SelectOption{Value: name, Label: name, Selected: name == selected})
	}
	return options
}
