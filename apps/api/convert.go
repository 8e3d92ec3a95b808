package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"motodirectory/libs/directory"
)

const (
	unknownCity         = "Unknown City"
	unknownCountry      = "Unknown Country"
	addressNotAvailable = "Address not available"
	unnamedShop         = "Unnamed Shop"
	defaultConvertInput = "motorcycle_repair_shops.csv"
	geocodeTimeout      = 10 * time.Second
)

var errMissingCoordinates = errors.New("missing coordinates")

// osmRow is one row of the OSM extractor CSV keyed by column name.
type osmRow map[string]string

type convertOptions struct {
	IncludeUnnamed bool
	Geocoder       Geocoder
}

type convertSummary struct {
	Rows      int
	Shops     int
	Skipped   int
	Geocoded  int
	Countries int
	Cities    int
}

func runConvert(ctx context.Context, cfg *Config, logger *slog.Logger, args []string) error {
	flags := flag.NewFlagSet("convert", flag.ContinueOnError)
	input := flags.String("input", defaultConvertInput, "CSV produced by the OSM extractor")
	output := flags.String("output", defaultDataPath, "directory JSON to write")
	includeUnnamed := flags.Bool("include-unnamed", false, "keep shops without a proper name")
	geocode := flags.Bool("geocode", false, "reverse-geocode rows without a city")
	if err := flags.Parse(args); err != nil {
		return err
	}

	in, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("open input (run the OSM extractor first): %w", err)
	}
	defer in.Close()

	opts := convertOptions{IncludeUnnamed: *includeUnnamed}
	if *geocode {
		opts.Geocoder = newGeocoder(cfg, &http.Client{Timeout: geocodeTimeout})
	}

	logger.Info("converting shops", "input", *input, "output", *output, "geocode", *geocode)
	ds, summary, err := convertShops(ctx, in, opts, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		return err
	}
	out, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := writeDirectoryJSON(out, ds); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	for _, country := range ds.Countries.SortedCountries(directory.Locale{}) {
		logger.Info("country indexed", "country", country, "cities", len(ds.Countries[country]))
	}
	logger.Info("conversion complete",
		"rows", summary.Rows,
		"shops", summary.Shops,
		"skipped", summary.Skipped,
		"geocoded", summary.Geocoded,
		"countries", summary.Countries,
		"cities", summary.Cities,
		"output", *output,
	)
	return nil
}

// convertShops reads the extractor CSV and builds the directory document.
// Rows that cannot be used are counted as skipped; only I/O errors abort.
func convertShops(ctx context.Context, r io.Reader, opts convertOptions, logger *slog.Logger) (*directory.Dataset, convertSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, convertSummary{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimPrefix(strings.TrimSpace(header[i]), "\ufeff")
	}

	var summary convertSummary
	shops := []directory.ShopRecord{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				summary.Rows++
				summary.Skipped++
				logger.Warn("skipping malformed csv row", "line", parseErr.Line, "err", err)
				continue
			}
			return nil, summary, err
		}
		summary.Rows++

		row := make(osmRow, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}

		if opts.Geocoder != nil && geocodeMissingCity(ctx, opts.Geocoder, row, logger) {
			summary.Geocoded++
		}

		shop, err := shopFromOSMRow(row)
		if err != nil {
			summary.Skipped++
			logger.Warn("skipping row", "row", summary.Rows, "osm_id", row["osm_id"], "err", err)
			continue
		}
		if !opts.IncludeUnnamed && (shop.Name == unnamedShop || shop.Name == "") {
			summary.Skipped++
			continue
		}
		shops = append(shops, shop)
	}

	countries := buildCountryIndex(shops)
	summary.Shops = len(shops)
	summary.Countries = len(countries)
	summary.Cities = countries.TotalCities()
	return &directory.Dataset{Shops: shops, Countries: countries}, summary, nil
}

// shopFromOSMRow maps an extractor row to a directory record. Rows without
// usable coordinates are rejected.
func shopFromOSMRow(row osmRow) (directory.ShopRecord, error) {
	lat, err := parseCoordinate(row["latitude"])
	if err != nil {
		return directory.ShopRecord{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := parseCoordinate(row["longitude"])
	if err != nil {
		return directory.ShopRecord{}, fmt.Errorf("longitude: %w", err)
	}

	address := addressNotAvailable
	if street := row["address_street"]; street != "" {
		address = street
		if number := row["address_housenumber"]; number != "" {
			address = street + " " + number
		}
	}

	name := firstNonEmpty(row["name"], row["operator"], row["brand"], unnamedShop)

	return directory.ShopRecord{
		Name:         strings.TrimSpace(name),
		Address:      address,
		City:         locationString(strings.TrimSpace(row["address_city"]), countryForRow(row)),
		Phone:        directory.StringField(firstNonEmpty(row["phone"], row["mobile"], directory.NotAvailable)),
		Website:      directory.StringField(firstNonEmpty(row["website"], directory.NotAvailable)),
		Latitude:     directory.NumberField(lat),
		Longitude:    directory.NumberField(lng),
		Rating:       directory.StringField(directory.NotAvailable),
		ReviewsCount: directory.StringField("0"),
		Hours:        directory.StringField(firstNonEmpty(row["opening_hours"], directory.DefaultHours)),
		BusinessType: directory.StringField(businessTypeFor(row)),
	}, nil
}

// parseCoordinate rejects empty, unparsable and zero values.
func parseCoordinate(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errMissingCoordinates
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", raw)
	}
	if value == 0 {
		return 0, errMissingCoordinates
	}
	return value, nil
}

// countryForRow prefers the OSM country tag and falls back to the country of the extract.
func countryForRow(row osmRow) string {
	if code := strings.TrimSpace(row["address_country"]); code != "" {
		return countryNameForCode(code)
	}
	return strings.TrimSpace(row["source_country"])
}

func locationString(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + directory.LocationSeparator + country
	case country != "":
		return unknownCity + directory.LocationSeparator + country
	case city != "":
		return city + directory.LocationSeparator + unknownCountry
	default:
		return unknownCity + directory.LocationSeparator + unknownCountry
	}
}

func businessTypeFor(row osmRow) string {
	shopType := row["shop_type"]
	amenity := row["amenity"]
	craft := row["craft"]

	switch {
	case shopType == "motorcycle_repair" || amenity == "motorcycle_repair" || craft == "motorcycle_repair":
		return "Motorcycle Repair Shop"
	case shopType == "motorcycle":
		return "Motorcycle Dealership"
	case strings.Contains(strings.ToLower(shopType), "repair") || strings.Contains(strings.ToLower(amenity), "repair"):
		return "Repair Service"
	default:
		return directory.DefaultBusinessType
	}
}

// buildCountryIndex collects the unique cities per country, sorted.
func buildCountryIndex(shops []directory.ShopRecord) directory.CountryCityIndex {
	sets := map[string]map[string]struct{}{}
	for i := range shops {
		location := shops[i].City
		if !strings.Contains(location, directory.LocationSeparator) {
			continue
		}
		city := strings.TrimSpace(shops[i].CityName())
		country := strings.TrimSpace(shops[i].Country())
		if city == "" || country == "" {
			continue
		}
		if sets[country] == nil {
			sets[country] = map[string]struct{}{}
		}
		sets[country][city] = struct{}{}
	}

	index := make(directory.CountryCityIndex, len(sets))
	for country, cities := range sets {
		list := make([]string, 0, len(cities))
		for city := range cities {
			list = append(list, city)
		}
		sort.Strings(list)
		index[country] = list
	}
	return index
}

// geocodeMissingCity fills address_city (and address_country when empty) from
// the geocoder. Lookup failures leave the row untouched.
func geocodeMissingCity(ctx context.Context, geocoder Geocoder, row osmRow, logger *slog.Logger) bool {
	if strings.TrimSpace(row["address_city"]) != "" {
		return false
	}
	lat, err := parseCoordinate(row["latitude"])
	if err != nil {
		return false
	}
	lng, err := parseCoordinate(row["longitude"])
	if err != nil {
		return false
	}

	res, err := geocoder.Geocode(ctx, lat, lng)
	if err != nil {
		logger.Warn("geocoding failed", "osm_id", row["osm_id"], "err", err)
		return false
	}
	if res == nil || res.City == "" {
		return false
	}
	row["address_city"] = res.City
	if strings.TrimSpace(row["address_country"]) == "" && res.CountryCode != "" {
		row["address_country"] = res.CountryCode
	}
	return true
}

func writeDirectoryJSON(w io.Writer, ds *directory.Dataset) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ds)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
