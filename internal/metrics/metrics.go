// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for exporting agent runtime metrics.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Internal state, source of truth for the JSON snapshot.
var (
	runs             int64
	windowSkips      int64
	signalsDetected  int64
	dispatchSuccess  int64
	dispatchFailure  int64
	sourceErrorsMail int64
	sourceErrorsChat int64
	lastRun          int64
)

// Prometheus collectors.
var (
	promRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_runs_total",
			Help: "Total agent runs started",
		},
	)
	promWindowSkips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_window_skips_total",
			Help: "Total runs skipped because the time window was closed",
		},
	)
	promSignals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_signals_detected_total",
			Help: "Total alert-worthy signals detected across all sources",
		},
	)
	promDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_dispatch_total",
			Help: "Total dispatch strategy executions",
		},
		[]string{"outcome"},
	)
	promSourceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_source_errors_total",
			Help: "Total signal source failures degraded to empty results",
		},
		[]string{"source"},
	)
	promLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agent_last_run_timestamp_seconds",
			Help: "Unix timestamp of last run",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promRuns,
		promWindowSkips,
		promSignals,
		promDispatch,
		promSourceErrors,
		promLastRun,
	)
}

// IncRun increments the count of started runs.
func IncRun() {
	atomic.AddInt64(&runs, 1)
	promRuns.Inc()
}

// IncWindowSkip increments the count of runs skipped by the time window.
func IncWindowSkip() {
	atomic.AddInt64(&windowSkips, 1)
	promWindowSkips.Inc()
}

// AddSignals records n detected signals.
func AddSignals(n int) {
	atomic.AddInt64(&signalsDetected, int64(n))
	promSignals.Add(float64(n))
}

// IncDispatchSuccess records a satisfied dispatch strategy.
func IncDispatchSuccess() {
	atomic.AddInt64(&dispatchSuccess, 1)
	promDispatch.WithLabelValues("success").Inc()
}

// IncDispatchFailure records an exhausted dispatch strategy.
func IncDispatchFailure() {
	atomic.AddInt64(&dispatchFailure, 1)
	promDispatch.WithLabelValues("failure").Inc()
}

// IncSourceError records a degraded signal source. source is "mail" or
// "slack".
func IncSourceError(source string) {
	switch source {
	case "mail":
		atomic.AddInt64(&sourceErrorsMail, 1)
	case "slack":
		atomic.AddInt64(&sourceErrorsChat, 1)
	}
	promSourceErrors.WithLabelValues(source).Inc()
}

// SetLastRun stores the provided time as the last run timestamp.
func SetLastRun(t time.Time) {
	atomic.StoreInt64(&lastRun, t.Unix())
	promLastRun.Set(float64(t.Unix()))
}

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Runs             int64  `json:"runs"`
	WindowSkips      int64  `json:"window_skips"`
	SignalsDetected  int64  `json:"signals_detected"`
	DispatchSuccess  int64  `json:"dispatch_success"`
	DispatchFailure  int64  `json:"dispatch_failure"`
	SourceErrorsMail int64  `json:"source_errors_mail"`
	SourceErrorsChat int64  `json:"source_errors_slack"`
	LastRun          int64  `json:"last_run_timestamp"`
	LastRunHuman     string `json:"last_run_human"`
}

// GetSnapshot returns the current values of all internal counters.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastRun)
	return StatsSnapshot{
		Runs:             atomic.LoadInt64(&runs),
		WindowSkips:      atomic.LoadInt64(&windowSkips),
		SignalsDetected:  atomic.LoadInt64(&signalsDetected),
		DispatchSuccess:  atomic.LoadInt64(&dispatchSuccess),
		DispatchFailure:  atomic.LoadInt64(&dispatchFailure),
		SourceErrorsMail: atomic.LoadInt64(&sourceErrorsMail),
		SourceErrorsChat: atomic.LoadInt64(&sourceErrorsChat),
		LastRun:          ts,
		LastRunHuman:     time.Unix(ts, 0).Format(time.RFC3339),
	}
}

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as a
// JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}
