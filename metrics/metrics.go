// Package metrics provides Prometheus metrics for the intelligence engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketpulse"

var (
	// ForecastPathTotal counts analyses by the forecast path that served them.
	ForecastPathTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_path_total",
			Help:      "Total number of analyses by forecast method",
		},
		[]string{"method"},
	)

	// GatewayRequestsTotal counts calls to the forecasting service.
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ml_gateway_requests_total",
			Help:      "Total number of forecasting service calls",
		},
		[]string{"operation", "outcome"},
	)

	// GatewayDuration measures forecasting service call duration.
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ml_gateway_duration_seconds",
			Help:      "Duration of forecasting service calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CacheLookupsTotal counts analysis cache lookups.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_lookups_total",
			Help:      "Total number of analysis cache lookups",
		},
		[]string{"result"},
	)

	// RefreshProductsTotal counts products processed by the refresh job.
	RefreshProductsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_products_total",
			Help:      "Total number of products processed by the refresh job",
		},
		[]string{"status"},
	)

	// ReportSourceTotal counts weekly reports by where they were built.
	ReportSourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_report_total",
			Help:      "Total number of weekly reports by source",
		},
		[]string{"source"},
	)
)

// RecordForecastPath records which forecast path served an analysis.
func RecordForecastPath(method string) {
	ForecastPathTotal.WithLabelValues(method).Inc()
}

// RecordGatewayCall records a forecasting service call.
func RecordGatewayCall(operation, outcome string, seconds float64) {
	GatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	GatewayDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records one product processed by the refresh job.
func RecordRefresh(status string) {
	RefreshProductsTotal.WithLabelValues(status).Inc()
}

// RecordReport records where a weekly report came from.
func RecordReport(source string) {
	ReportSourceTotal.WithLabelValues(source).Inc()
}
