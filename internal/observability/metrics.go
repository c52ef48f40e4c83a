// Package observability holds the Prometheus collectors shared across the API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skozubek/startsnap/internal/logging"
)

var (
	lastWriteGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "startsnap",
		Subsystem: "persistence",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed write, labeled by aggregate.",
	}, []string{"aggregate"})

	lastProjectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "startsnap",
		Subsystem: "persistence",
		Name:      "last_activity_projected_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity log row projected from an event.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "startsnap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by route template, method, and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "startsnap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	tipOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "startsnap",
		Subsystem: "tips",
		Name:      "submissions_total",
		Help:      "Tip submissions by currency and outcome (confirmed or an error kind).",
	}, []string{"currency", "outcome"})

	tipConfirmSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "startsnap",
		Subsystem: "tips",
		Name:      "confirmation_seconds",
		Help:      "Time from raw submission to confirmed round.",
		Buckets:   prometheus.LinearBuckets(1, 2, 12),
	})

	tipRecordFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "startsnap",
		Subsystem: "tips",
		Name:      "record_failures_total",
		Help:      "Confirmed tips whose database record could not be written.",
	})
)

func init() {
	prometheus.MustRegister(lastWriteGauge, lastProjectedGauge, httpRequests, httpDuration, tipOutcomes, tipConfirmSeconds, tipRecordFailures)
}

// RecordWrite updates the persistence watermark for an aggregate.
func RecordWrite(aggregate string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastWriteGauge.WithLabelValues(aggregate).Set(float64(ts.Unix()))
}

// RecordActivityProjected updates the projection watermark gauge.
func RecordActivityProjected(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastProjectedGauge.Set(float64(ts.Unix()))
}

// RecordTipOutcome counts a tip submission result.
func RecordTipOutcome(currency, outcome string) {
	tipOutcomes.WithLabelValues(currency, outcome).Inc()
}

// TipOutcomeCount returns the current counter value, for tests.
func TipOutcomeCount(currency, outcome string) prometheus.Counter {
	return tipOutcomes.WithLabelValues(currency, outcome)
}

// ObserveTipConfirmation records how long a tip took to confirm.
func ObserveTipConfirmation(d time.Duration) {
	tipConfirmSeconds.Observe(d.Seconds())
}

// RecordTipRecordFailure counts a confirmed tip that could not be persisted.
func RecordTipRecordFailure() {
	tipRecordFailures.Inc()
}

// TipRecordFailures exposes the record failure counter, for tests.
func TipRecordFailures() prometheus.Counter {
	return tipRecordFailures
}

// HTTPMiddleware records request counts and latency labeled by the mux route template.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &logging.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(recorder.Status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
