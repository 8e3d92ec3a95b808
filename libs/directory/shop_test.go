package directory

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDecodeMixedFieldTypes(t *testing.T) {
	doc := `{
		"shops": [
			{"name": "Moto Berlin", "address": "Hauptstrasse 1", "city": "Berlin, Germany",
			 "phone": "N/A", "website": null, "latitude": 52.52, "longitude": "13.405",
			 "rating": "4.5", "reviews_count": 12, "hours": "Mo-Fr 9-18", "business_type": "Motorcycle Shop"},
			{"name": "Bare", "city": "Paris, France"}
		],
		"countries": {"Germany": ["Berlin"], "France": ["Paris"]}
	}`

	ds, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ds.Shops) != 2 {
		t.Fatalf("expected 2 shops, got %d", len(ds.Shops))
	}

	shop := ds.Shops[0]
	if !shop.Latitude.IsNumber() || shop.Latitude.String() != "52.52" {
		t.Fatalf("unexpected latitude %+v", shop.Latitude)
	}
	if shop.Longitude.IsNumber() || shop.Longitude.String() != "13.405" {
		t.Fatalf("unexpected longitude %+v", shop.Longitude)
	}
	if shop.Website.Present() {
		t.Fatal("null website should be absent")
	}
	if reviews, ok := shop.ParsedReviews(); !ok || reviews != 12 {
		t.Fatalf("unexpected reviews %d %v", reviews, ok)
	}
	if ds.Shops[1].Phone.Present() {
		t.Fatal("missing phone should be absent")
	}
	if ds.Countries.TotalCities() != 2 {
		t.Fatalf("expected 2 cities, got %d", ds.Countries.TotalCities())
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	for _, doc := range []string{
		`{"shops": [`,
		`not json`,
		`{"shops": [{"name": "X", "rating": {"value": 4}}]}`,
		`{"countries": {"Germany": "Berlin"}}`,
	} {
		if _, err := Decode(strings.NewReader(doc)); err == nil {
			t.Fatalf("expected decode error for %q", doc)
		}
	}
}

func TestDecodeEmptyDocumentHasEmptyCollections(t *testing.T) {
	for _, doc := range []string{`{"shops": []}`, `{"countries": {}}`} {
		ds, err := Decode(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("decode %q: %v", doc, err)
		}
		if ds.Shops == nil || ds.Countries == nil {
			t.Fatalf("expected non-nil collections for %q", doc)
		}
	}
}

func TestDecodeRejectsDocumentWithoutCollections(t *testing.T) {
	for _, doc := range []string{`null`, `{}`, `{"shops": null}`, `{"total": 3}`} {
		_, err := Decode(strings.NewReader(doc))
		if !errors.Is(err, ErrEmptyDocument) {
			t.Fatalf("expected ErrEmptyDocument for %q, got %v", doc, err)
		}
	}
}

func TestFieldMarshalKeepsKind(t *testing.T) {
	shop := ShopRecord{
		Name:         "X",
		Rating:       StringField("N/A"),
		ReviewsCount: StringField("0"),
		Latitude:     NumberField(52.52),
	}
	encoded, err := json.Marshal(shop)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(encoded)
	for _, part := range []string{`"rating":"N/A"`, `"reviews_count":"0"`, `"latitude":52.52`, `"longitude":null`} {
		if !strings.Contains(body, part) {
			t.Fatalf("expected %s in %s", part, body)
		}
	}
}

func TestFieldTruthy(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  bool
	}{
		{name: "absent", field: Field{}, want: false},
		{name: "empty string", field: StringField(""), want: false},
		{name: "zero number", field: NumberField(0), want: false},
		{name: "zero string", field: StringField("0"), want: true},
		{name: "number", field: NumberField(13.4), want: true},
		{name: "sentinel", field: StringField("N/A"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.Truthy(); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		in, city, country string
	}{
		{in: "Paris, France", city: "Paris", country: "France"},
		{in: "Rome, Lazio, Italy", city: "Rome", country: "Italy"},
		{in: "UnknownFormat", city: "UnknownFormat", country: ""},
		{in: "", city: "", country: ""},
		{in: "Paris,France", city: "Paris,France", country: ""},
	}
	for _, tt := range tests {
		city, country := SplitLocation(tt.in)
		if city != tt.city || country != tt.country {
			t.Fatalf("SplitLocation(%q) = %q, %q; want %q, %q", tt.in, city, country, tt.city, tt.country)
		}
	}
}

func TestParseLeadingFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "4.5", want: 4.5, ok: true},
		{in: "  4.5 stars", want: 4.5, ok: true},
		{in: ".5", want: 0.5, ok: true},
		{in: "-3", want: -3, ok: true},
		{in: "1e1", want: 10, ok: true},
		{in: "N/A", ok: false},
		{in: "", ok: false},
		{in: "stars 4", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingFloat(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("ParseLeadingFloat(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if got, ok := ParseLeadingFloat("Infinity"); !ok || !math.IsInf(got, 1) {
		t.Fatalf("expected +Inf, got %v %v", got, ok)
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{in: "123", want: 123, ok: true},
		{in: "1,234", want: 1, ok: true},
		{in: "12.9", want: 12, ok: true},
		{in: " -7 reviews", want: -7, ok: true},
		{in: "0x1f", want: 31, ok: true},
		{in: "abc", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingInt(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("ParseLeadingInt(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
