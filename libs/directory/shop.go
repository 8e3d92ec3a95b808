// Package directory holds the in-memory shop directory: the record model, the
// filter/sort engine, the country to city cascade and the render tree builder.
// Nothing in this package performs I/O beyond decoding a reader handed to it.
package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// NotAvailable is the sentinel the source data uses for missing contact fields.
	NotAvailable = "N/A"
	// LocationSeparator joins the city and country parts of ShopRecord.City.
	LocationSeparator = ", "
	// LoadFailureMessage is the one message shown for any load failure.
	LoadFailureMessage = "Error Loading Data"
)

// ErrLoadFailure is the only error kind the data loader surfaces. Network,
// storage and decode failures all collapse into it.
var ErrLoadFailure = errors.New("directory load failed")

// ErrEmptyDocument is returned for a document with neither shops nor countries.
var ErrEmptyDocument = errors.New("directory document has no shops or countries")

// ShopRecord is one directory entry.
type ShopRecord struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Phone        Field  `json:"phone"`
	Website      Field  `json:"website"`
	Latitude     Field  `json:"latitude"`
	Longitude    Field  `json:"longitude"`
	Rating       Field  `json:"rating"`
	ReviewsCount Field  `json:"reviews_count"`
	Hours        Field  `json:"hours"`
	BusinessType Field  `json:"business_type"`
}

// SplitLocation splits a combined "City, Country" string. The first segment is
// the city and the last is the country; a string without the separator is all
// city and has no country.
func SplitLocation(location string) (city, country string) {
	parts := strings.Split(location, LocationSeparator)
	if len(parts) == 1 {
		return location, ""
	}
	return parts[0], parts[len(parts)-1]
}

// CityName returns the city segment of the record's location.
func (s *ShopRecord) CityName() string {
	city, _ := SplitLocation(s.City)
	return city
}

// Country returns the country segment of the record's location.
func (s *ShopRecord) Country() string {
	_, country := SplitLocation(s.City)
	return country
}

// ParsedRating returns the rating and whether it parsed at all.
func (s *ShopRecord) ParsedRating() (float64, bool) {
	return ParseLeadingFloat(s.Rating.String())
}

// ParsedReviews returns the review count and whether it parsed at all.
func (s *ShopRecord) ParsedReviews() (int64, bool) {
	return ParseLeadingInt(s.ReviewsCount.String())
}

// CountryCityIndex maps a country to its cities in source order.
type CountryCityIndex map[string][]string

// TotalCities is the sum of the city list lengths across all countries.
func (idx CountryCityIndex) TotalCities() int {
	total := 0
	for _, cities := range idx {
		total += len(cities)
	}
	return total
}

// SortedCountries returns the country names ordered with the locale collator.
func (idx CountryCityIndex) SortedCountries(loc Locale) []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	compare := loc.compareStrings()
	sort.SliceStable(names, func(i, j int) bool { return compare(names[i], names[j]) < 0 })
	return names
}

// Dataset is the decoded directory file.
type Dataset struct {
	Shops     []ShopRecord     `json:"shops"`
	Countries CountryCityIndex `json:"countries"`
}

// Decode reads a directory document from r.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	if ds.Shops == nil && ds.Countries == nil {
		return nil, fmt.Errorf("decode directory: %w", ErrEmptyDocument)
	}
	if ds.Shops == nil {
		ds.Shops = []ShopRecord{}
	}
	if ds.Countries == nil {
		ds.Countries = CountryCityIndex{}
	}
	return &ds, nil
}
