package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"motodirectory/libs/directory"

	"github.com/gin-gonic/gin"
)

const (
	directoryPageTitle = "EU Motorcycle Shop Directory"
	outputHTML         = "html"
	outputJSON         = "json"
	outputExport       = "export"
)

// filterPass is one request's trip through cascade, filter and sort.
type filterPass struct {
	State  directory.FilterState
	Cities directory.CitySelector
	View   []*directory.ShopRecord
}

type shopsResponse struct {
	Count        int                    `json:"count"`
	CountLabel   string                 `json:"count_label"`
	Filters      directory.FilterState  `json:"filters"`
	CitySelector directory.CitySelector `json:"city_selector"`
	Cards        []directory.Card       `json:"cards"`
	Empty        *directory.EmptyState  `json:"empty,omitempty"`
}

type exportLink struct {
	Label string
	URL   string
}

type directoryPage struct {
	Title        string
	Status       string
	ErrorMessage string
	TotalShops   string
	TotalCities  string
	Filters      directory.FilterState
	Countries    []directory.SelectOption
	Cities       directory.CitySelector
	Ratings      []directory.SelectOption
	Sorts        []directory.SelectOption
	Results      directory.ResultsView
	Exports      []exportLink
}

// readySnapshot answers 503 unless the directory is loaded.
func (a *App) readySnapshot(c *gin.Context) (directorySnapshot, bool) {
	snap := a.state.snapshot()
	switch snap.status {
	case statusReady:
		return snap, true
	case statusFailed:
		writeAPIError(c, &apiError{Status: http.StatusServiceUnavailable, Code: "load_failed", Message: directory.LoadFailureMessage})
	default:
		c.Header("Retry-After", "1")
		writeAPIError(c, &apiError{Status: http.StatusServiceUnavailable, Code: "loading", Message: "Directory is still loading"})
	}
	return snap, false
}

func (a *App) runFilterPass(snap directorySnapshot, query url.Values, output string) filterPass {
	state, cities := directory.CascadeState(snap.dataset.Countries, directory.ParseFilterState(query))
	view := directory.Apply(snap.dataset.Shops, state, a.locale)
	a.metrics.recordFilter(effectiveSort(state.Sort), output, len(view))
	return filterPass{State: state, Cities: cities, View: view}
}

func (a *App) directoryPageHandler(c *gin.Context) {
	snap := a.state.snapshot()
	page := directoryPage{Title: directoryPageTitle, Status: snap.status.String()}

	switch snap.status {
	case statusLoading:
		c.Header("Retry-After", "1")
		a.renderDirectoryPage(c, http.StatusOK, page)
		return
	case statusFailed:
		page.ErrorMessage = directory.LoadFailureMessage
		a.renderDirectoryPage(c, http.StatusServiceUnavailable, page)
		return
	}

	pass := a.runFilterPass(snap, c.Request.URL.Query(), outputHTML)
	page.TotalShops = a.locale.FormatCount(int64(len(snap.dataset.Shops)))
	page.TotalCities = a.locale.FormatCount(int64(snap.totalCities))
	page.Filters = pass.State
	page.Countries = directory.CountryOptions(snap.dataset.Countries, pass.State.Country, a.locale)
	page.Cities = pass.Cities
	page.Ratings = ratingOptions(pass.State.MinRating)
	page.Sorts = sortOptions(pass.State.Sort)
	page.Results = directory.Render(pass.View, a.locale)
	page.Exports = exportLinks(pass.State)

	a.renderDirectoryPage(c, http.StatusOK, page)
}

func (a *App) renderDirectoryPage(c *gin.Context, status int, page directoryPage) {
	templates, err := a.templates.templatesForRender(directoryIndexTemplate)
	if err != nil {
		c.String(http.StatusInternalServerError, "directory template error: %v", err)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if executeErr := templates.ExecuteTemplate(c.Writer, "layout", page); executeErr != nil {
		a.log.Error("render directory page failed", "error", executeErr)
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, "render failure")
		}
	}
}

// resetHandler drops every control back to its default by redirecting to the bare page.
func (a *App) resetHandler(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) shopsHandler(c *gin.Context) {
	snap, ok := a.readySnapshot(c)
	if !ok {
		return
	}

	pass := a.runFilterPass(snap, c.Request.URL.Query(), outputJSON)
	results := directory.Render(pass.View, a.locale)
	c.JSON(http.StatusOK, shopsResponse{
		Count:        results.Count,
		CountLabel:   results.CountLabel,
		Filters:      pass.State,
		CitySelector: pass.Cities,
		Cards:        results.Cards,
		Empty:        results.Empty,
	})
}

func (a *App) countriesHandler(c *gin.Context) {
	snap, ok := a.readySnapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"countries":       snap.countries,
		"total_countries": len(snap.countries),
		"total_cities":    snap.totalCities,
		"total_shops":     len(snap.dataset.Shops),
	})
}

func (a *App) citiesHandler(c *gin.Context) {
	snap, ok := a.readySnapshot(c)
	if !ok {
		return
	}
	country := c.Param("country")
	selector := directory.Cascade(snap.dataset.Countries, country, c.Query(directory.ParamCity))
	c.JSON(http.StatusOK, gin.H{
		"country":       country,
		"city_selector": selector,
	})
}

func (a *App) exportHandler(c *gin.Context) {
	snap, ok := a.readySnapshot(c)
	if !ok {
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", exportFormatCSV)))
	pass := a.runFilterPass(snap, c.Request.URL.Query(), outputExport)
	artifact, err := buildExport(format, pass.View, pass.State, a.locale, time.Now())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	a.metrics.recordExport(format)

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Body)
}

func ratingOptions(selected float64) []directory.SelectOption {
	options := make([]directory.SelectOption, 0, len(directory.MinRatingChoices))
	for _, choice := range directory.MinRatingChoices {
		label := "Any rating"
		value := ""
		if choice > 0 {
			value = strconv.FormatFloat(choice, 'f', -1, 64)
			label = value + "+ stars"
		}
		options = append(options, directory.SelectOption{Value: value, Label: label, Selected: choice == selected})
	}
	return options
}

func sortOptions(selected directory.SortKey) []directory.SelectOption {
	return []directory.SelectOption{
		{Value: string(directory.SortByRating), Label: "Highest rated", Selected: selected == directory.SortByRating},
		{Value: string(directory.SortByReviews), Label: "Most reviews", Selected: selected == directory.SortByReviews},
		{Value: string(directory.SortByName), Label: "Name (A-Z)", Selected: effectiveSort(selected) == directory.SortByName},
	}
}

func exportLinks(state directory.FilterState) []exportLink {
	formats := []struct{ format, label string }{
		{exportFormatCSV, "CSV"},
		{exportFormatGeoJSON, "GeoJSON"},
		{exportFormatPDF, "PDF"},
	}
	links := make([]exportLink, 0, len(formats))
	for _, f := range formats {
		values := state.Values()
		values.Set("format", f.format)
		links = append(links, exportLink{Label: f.label, URL: "/api/v1/shops/export?" + values.Encode()})
	}
	return links
}
