// Package metrics exposes Prometheus collectors for the transfer pipeline.
// Collectors live in the default registry; Handler serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for BytesTransferred.
const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

// Label values for StageAttempts.
const (
	ResultOK       = "ok"
	ResultMismatch = "mismatch"
	ResultError    = "error"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaferry_runs_total",
		Help: "Completed pipeline runs by outcome (disposition on success, error kind on failure)",
	}, []string{"outcome"})

	StageAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaferry_stage_attempts_total",
		Help: "Attempts per pipeline stage by result",
	}, []string{"stage", "result"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediaferry_stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage, all attempts included",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 14),
	}, []string{"stage"})

	BytesTransferred = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaferry_bytes_transferred_total",
		Help: "Bytes copied to or from the remote host",
	}, []string{"direction"})

	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaferry_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})
)

// ObserveRun records the end of a run.
func ObserveRun(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	RunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAttempt records one attempt of a stage.
func ObserveAttempt(stage, result string) {
	StageAttempts.WithLabelValues(stage, result).Inc()
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddBytes counts transferred bytes. Non-positive sizes are ignored.
func AddBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	BytesTransferred.WithLabelValues(direction).Add(float64(n))
}

// MarkSuccess stamps LastSuccess with t.
func MarkSuccess(t time.Time) {
	LastSuccess.Set(float64(t.Unix()))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
