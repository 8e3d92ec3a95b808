package main

import (
	"net/http"
	"strconv"
	"time"

	"motodirectory/libs/directory"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type directoryMetrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	loadStatus      *prometheus.GaugeVec
	loadDuration    prometheus.Gauge
	shopsLoaded     prometheus.Gauge
	citiesLoaded    prometheus.Gauge
	filterRequests  *prometheus.CounterVec
	filterResults   prometheus.Histogram
	exportsRendered *prometheus.CounterVec
}

// newDirectoryMetrics registers on a private registry so tests can build many apps.
func newDirectoryMetrics() *directoryMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &directoryMetrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		loadStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "directory_load_status",
				Help: "1 for the current directory load status",
			},
			[]string{"status"},
		),
		loadDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "directory_load_duration_seconds",
			Help: "Duration of the directory load",
		}),
		shopsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "directory_shops",
			Help: "Number of shop records loaded",
		}),
		citiesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "directory_cities",
			Help: "Number of cities in the country index",
		}),
		filterRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_filter_requests_total",
				Help: "Filter passes by sort key and output",
			},
			[]string{"sort", "output"},
		),
		filterResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "directory_filter_results",
			Help:    "Number of records in a filtered view",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		exportsRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_exports_total",
				Help: "Exports rendered by format",
			},
			[]string{"format"},
		),
	}
	m.setLoadStatus(statusLoading)
	return m
}

func (m *directoryMetrics) setLoadStatus(current loadStatus) {
	for _, s := range []loadStatus{statusLoading, statusReady, statusFailed} {
		value := 0.0
		if s == current {
			value = 1
		}
		m.loadStatus.WithLabelValues(s.String()).Set(value)
	}
}

func (m *directoryMetrics) recordLoad(status loadStatus, elapsed time.Duration, ds *directory.Dataset) {
	m.setLoadStatus(status)
	m.loadDuration.Set(elapsed.Seconds())
	if ds != nil {
		m.shopsLoaded.Set(float64(len(ds.Shops)))
		m.citiesLoaded.Set(float64(ds.Countries.TotalCities()))
	}
}

func (m *directoryMetrics) recordFilter(sort directory.SortKey, output string, results int) {
	m.filterRequests.WithLabelValues(string(sort), output).Inc()
	m.filterResults.Observe(float64(results))
}

func (m *directoryMetrics) recordExport(format string) {
	m.exportsRendered.WithLabelValues(format).Inc()
}

// middleware labels by route template, not raw path, to bound cardinality.
func (m *directoryMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *directoryMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
