package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	mapboxReverseURL    = "https://api.mapbox.com/search/geocode/v6/reverse"
	nominatimReverseURL = "https://nominatim.openstreetmap.org/reverse"
)

// GeocodeResult is the place found for a coordinate pair.
type GeocodeResult struct {
	Address     string
	City        string
	PostalCode  string
	CountryCode string
}

// Geocoder looks up the place at a coordinate pair. A nil result without error means nothing was found.
type Geocoder interface {
	Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
}

func newGeocoder(cfg *Config, client *http.Client) Geocoder {
	mapbox := &MapboxGeocoder{AccessToken: cfg.MapboxAccessToken, Client: client}
	nominatim := &NominatimGeocoder{UserAgent: geocoderUserAgent, Client: client}

	switch cfg.GeocoderProvider {
	case "mapbox":
		return mapbox
	case "nominatim":
		return nominatim
	default:
		return &FallbackGeocoder{Primary: mapbox, Secondary: nominatim}
	}
}

// MapboxGeocoder implements Geocoder using Mapbox API v6
type MapboxGeocoder struct {
	AccessToken string
	Client      *http.Client
	BaseURL     string
}

func (g *MapboxGeocoder) Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	if g.AccessToken == "" {
		return nil, errors.New("mapbox access token missing")
	}

	base := g.BaseURL
	if base == "" {
		base = mapboxReverseURL
	}
	query := url.Values{}
	query.Set("longitude", fmt.Sprintf("%f", lng))
	query.Set("latitude", fmt.Sprintf("%f", lat))
	query.Set("access_token", g.AccessToken)
	query.Set("types", "address,place")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mapbox error (%d): %s", resp.StatusCode, string(body))
	}

	var data struct {
		Features []struct {
			Properties struct {
				FullAddress string `json:"full_address"`
				Context     struct {
					Place struct {
						Name string `json:"name"`
					} `json:"place"`
					Postcode struct {
						Name string `json:"name"`
					} `json:"postcode"`
					Country struct {
						CountryCode string `json:"country_code"`
					} `json:"country"`
				} `json:"context"`
			} `json:"properties"`
		} `json:"features"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if len(data.Features) == 0 {
		return nil, nil
	}

	props := data.Features[0].Properties
	return &GeocodeResult{
		Address:     props.FullAddress,
		City:        props.Context.Place.Name,
		PostalCode:  props.Context.Postcode.Name,
		CountryCode: strings.ToUpper(props.Context.Country.CountryCode),
	}, nil
}

// NominatimGeocoder implements Geocoder using OSM Nominatim.
// Nominatim requires a User-Agent and allows one request per second.
type NominatimGeocoder struct {
	UserAgent string
	Client    *http.Client
	BaseURL   string
	mu        sync.Mutex
	lastCall  time.Time
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	if err := g.throttle(ctx); err != nil {
		return nil, err
	}

	base := g.BaseURL
	if base == "" {
		base = nominatimReverseURL
	}
	u := fmt.Sprintf("%s?format=jsonv2&lat=%f&lon=%f&addressdetails=1", base, lat, lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim error: %d", resp.StatusCode)
	}

	var data struct {
		Address struct {
			Road        string `json:"road"`
			HouseNumber string `json:"house_number"`
			City        string `json:"city"`
			Town        string `json:"town"`
			Village     string `json:"village"`
			Postcode    string `json:"postcode"`
			CountryCode string `json:"country_code"`
		} `json:"address"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	city := data.Address.City
	if city == "" {
		city = data.Address.Town
	}
	if city == "" {
		city = data.Address.Village
	}

	addr := data.Address.Road
	if data.Address.HouseNumber != "" {
		addr = fmt.Sprintf("%s %s", addr, data.Address.HouseNumber)
	}

	if addr == "" && city == "" {
		return nil, nil
	}

	return &GeocodeResult{
		Address:     addr,
		City:        city,
		PostalCode:  data.Address.Postcode,
		CountryCode: strings.ToUpper(data.Address.CountryCode),
	}, nil
}

func (g *NominatimGeocoder) throttle(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := time.Second - time.Since(g.lastCall); wait > 0 && !g.lastCall.IsZero() {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastCall = time.Now()
	return nil
}

// FallbackGeocoder asks Secondary when Primary fails or finds nothing.
type FallbackGeocoder struct {
	Primary   Geocoder
	Secondary Geocoder
}

func (g *FallbackGeocoder) Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	res, err := g.Primary.Geocode(ctx, lat, lng)
	if err != nil || res == nil {
		return g.Secondary.Geocode(ctx, lat, lng)
	}
	return res, nil
}
