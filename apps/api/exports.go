package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"motodirectory/libs/directory"

	"github.com/go-pdf/fpdf"
)

const (
	exportFormatCSV     = "csv"
	exportFormatGeoJSON = "geojson"
	exportFormatPDF     = "pdf"
	exportTopRatedLimit = 10
)

type exportArtifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

func buildExport(format string, view []*directory.ShopRecord, state directory.FilterState, loc directory.Locale, at time.Time) (exportArtifact, error) {
	baseName := "motorcycle-shops-" + at.UTC().Format("20060102-150405")

	switch format {
	case exportFormatCSV:
		data, err := buildShopsCSV(view)
		if err != nil {
			return exportArtifact{}, err
		}
		return exportArtifact{Filename: baseName + ".csv", ContentType: "text/csv; charset=utf-8", Body: []byte(data)}, nil
	case exportFormatGeoJSON:
		data, err := buildShopsGeoJSON(view)
		if err != nil {
			return exportArtifact{}, err
		}
		return exportArtifact{Filename: baseName + ".geojson", ContentType: "application/geo+json", Body: []byte(data)}, nil
	case exportFormatPDF:
		data, err := buildShopsPDF(view, state, loc, at)
		if err != nil {
			return exportArtifact{}, err
		}
		return exportArtifact{Filename: baseName + ".pdf", ContentType: "application/pdf", Body: data}, nil
	default:
		return exportArtifact{}, &apiError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_format",
			Message: fmt.Sprintf("Unsupported export format %q (use csv, geojson or pdf)", format),
		}
	}
}

func buildShopsCSV(view []*directory.ShopRecord) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)
	headers := []string{"name", "address", "city", "country", "phone", "website", "rating", "reviews_count", "hours", "business_type", "latitude", "longitude"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, shop := range view {
		row := []string{
			shop.Name,
			shop.Address,
			shop.CityName(),
			shop.Country(),
			shop.Phone.String(),
			shop.Website.String(),
			shop.Rating.String(),
			shop.ReviewsCount.String(),
			shop.Hours.String(),
			shop.BusinessType.String(),
			shop.Latitude.String(),
			shop.Longitude.String(),
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// buildShopsGeoJSON emits a Point feature for every shop with usable coordinates.
func buildShopsGeoJSON(view []*directory.ShopRecord) (string, error) {
	features := make([]map[string]any, 0, len(view))
	for _, shop := range view {
		lat, err := fieldCoordinate(shop.Latitude)
		if err != nil {
			continue
		}
		lng, err := fieldCoordinate(shop.Longitude)
		if err != nil {
			continue
		}

		properties := map[string]any{
			"name":          shop.Name,
			"address":       shop.Address,
			"city":          shop.CityName(),
			"country":       shop.Country(),
			"business_type": shop.BusinessType.Or(directory.DefaultBusinessType),
			"hours":         shop.Hours.Or(directory.DefaultHours),
		}
		if rating, ok := shop.ParsedRating(); ok {
			properties["rating"] = rating
		}
		if reviews, ok := shop.ParsedReviews(); ok && reviews > 0 {
			properties["reviews_count"] = reviews
		}
		if phone := shop.Phone.String(); phone != "" && phone != directory.NotAvailable {
			properties["phone"] = phone
		}
		if website := shop.Website.String(); website != "" && website != directory.NotAvailable {
			properties["website"] = website
		}

		features = append(features, map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{lng, lat},
			},
			"properties": properties,
		})
	}
	payload := map[string]any{"type": "FeatureCollection", "features": features}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func buildShopsPDF(view []*directory.ShopRecord, state directory.FilterState, loc directory.Locale, at time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, "Motorcycle Shop Directory")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", at.UTC().Format(time.RFC3339)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr("Filters: "+describeFilters(state)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total shops: %s", loc.FormatCount(int64(len(view)))))
	pdf.Ln(10)

	countryCounts := map[string]int{}
	for _, shop := range view {
		country := shop.Country()
		if country == "" {
			country = unknownCountry
		}
		countryCounts[country]++
	}
	countries := make([]string, 0, len(countryCounts))
	for country := range countryCounts {
		countries = append(countries, country)
	}
	sort.Slice(countries, func(i, j int) bool {
		if countryCounts[countries[i]] != countryCounts[countries[j]] {
			return countryCounts[countries[i]] > countryCounts[countries[j]]
		}
		return countries[i] < countries[j]
	})

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Country distribution")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, country := range countries {
		pdf.Cell(0, 6, tr(fmt.Sprintf("- %s: %d", country, countryCounts[country])))
		pdf.Ln(6)
	}

	topRated := make([]*directory.ShopRecord, 0, len(view))
	for _, shop := range view {
		if _, ok := shop.ParsedRating(); ok {
			topRated = append(topRated, shop)
		}
	}
	directory.SortView(topRated, directory.SortByRating, loc)
	if len(topRated) > exportTopRatedLimit {
		topRated = topRated[:exportTopRatedLimit]
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Top rated")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	if len(topRated) == 0 {
		pdf.Cell(0, 6, "No rated shops in this selection")
		pdf.Ln(6)
	}
	for i, shop := range topRated {
		rating, _ := shop.ParsedRating()
		pdf.Cell(0, 6, tr(fmt.Sprintf("%d. %s (%s) - %s", i+1, shop.Name, shop.City, directory.FormatRating(rating))))
		pdf.Ln(6)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}

func describeFilters(state directory.FilterState) string {
	var parts []string
	if state.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", state.Search))
	}
	if state.Country != "" {
		parts = append(parts, "country "+state.Country)
	}
	if state.City != "" {
		parts = append(parts, "city "+state.City)
	}
	if state.MinRating > 0 {
		parts = append(parts, fmt.Sprintf("rating %.1f+", state.MinRating))
	}
	parts = append(parts, "sorted by "+string(effectiveSort(state.Sort)))
	return strings.Join(parts, ", ")
}

// effectiveSort maps unknown sort keys to the name ordering they fall back to.
func effectiveSort(key directory.SortKey) directory.SortKey {
	switch key {
	case directory.SortByRating, directory.SortByReviews:
		return key
	default:
		return directory.SortByName
	}
}
