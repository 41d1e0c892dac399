// Package metrics provides counters and Prometheus collectors describing
// promotion runs, and pushes them to a Pushgateway or InfluxDB once a run
// finishes.
package metrics

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// 1. Internal State (Source of Truth)
var (
	runs          int64
	runsFailed    int64
	dryRuns       int64
	aliasesMoved  int64
	aliasesKept   int64
	writeFailures int64
	lastRun       int64
)

const counterInc int64 = 1

// Registry holds every collector of this package. A dedicated registry keeps
// Go runtime metrics out of the pushed payload.
var Registry = prometheus.NewRegistry()

// 2. Prometheus Collectors
var (
	promRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oci_semver_tagging_runs_total",
			Help: "Total promotion runs by outcome",
		},
		[]string{"outcome"},
	)
	promAliases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oci_semver_tagging_aliases_total",
			Help: "Alias decisions by result",
		},
		[]string{"result"},
	)
	promWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oci_semver_tagging_write_failures_total",
			Help: "Total failed alias tag writes",
		},
	)
	promRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oci_semver_tagging_run_duration_seconds",
			Help:    "Duration of promotion runs",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	promLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oci_semver_tagging_last_run_timestamp_seconds",
			Help: "Unix timestamp of last run",
		},
	)
)

func init() {
	Registry.MustRegister(
		promRuns,
		promAliases,
		promWriteFailures,
		promRunDuration,
		promLastRun,
	)
}

// 3. Public API (Updates both Atomic and Prometheus)

// IncRun counts a finished run. failed marks runs that ended in a fatal or
// partial failure.
func IncRun(failed bool) {
	atomic.AddInt64(&runs, counterInc)
	if failed {
		atomic.AddInt64(&runsFailed, counterInc)
		promRuns.WithLabelValues("failure").Inc()
		return
	}
	promRuns.WithLabelValues("success").Inc()
}

// IncDryRun counts a run that computed decisions without writing.
func IncDryRun() {
	atomic.AddInt64(&dryRuns, counterInc)
	promRuns.WithLabelValues("dry_run").Inc()
}

// IncAliasMoved counts an alias that was (or in dry-run would be) moved.
func IncAliasMoved() {
	atomic.AddInt64(&aliasesMoved, counterInc)
	promAliases.WithLabelValues("moved").Inc()
}

// IncAliasKept counts an alias left where it was.
func IncAliasKept() {
	atomic.AddInt64(&aliasesKept, counterInc)
	promAliases.WithLabelValues("kept").Inc()
}

// IncWriteFailure counts a failed alias tag write.
func IncWriteFailure() {
	atomic.AddInt64(&writeFailures, counterInc)
	promWriteFailures.Inc()
}

// ObserveRunDuration records the duration (in seconds) of a run.
func ObserveRunDuration(seconds float64) {
	promRunDuration.Observe(seconds)
}

// SetLastRun stores the provided time as the last run timestamp and
// updates the corresponding Prometheus gauge.
func SetLastRun(t time.Time) {
	atomic.StoreInt64(&lastRun, t.Unix())
	promLastRun.Set(float64(t.Unix()))
}

// 4. Snapshot Struct

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Runs          int64  `json:"runs"`
	RunsFailed    int64  `json:"runs_failed"`
	DryRuns       int64  `json:"dry_runs"`
	AliasesMoved  int64  `json:"aliases_moved"`
	AliasesKept   int64  `json:"aliases_kept"`
	WriteFailures int64  `json:"write_failures"`
	LastRun       int64  `json:"last_run_timestamp"`
	LastRunHuman  string `json:"last_run_human"`
}

// GetSnapshot returns a StatsSnapshot with the current values of all
// internal counters and timestamps.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastRun)
	return StatsSnapshot{
		Runs:          atomic.LoadInt64(&runs),
		RunsFailed:    atomic.LoadInt64(&runsFailed),
		DryRuns:       atomic.LoadInt64(&dryRuns),
		AliasesMoved:  atomic.LoadInt64(&aliasesMoved),
		AliasesKept:   atomic.LoadInt64(&aliasesKept),
		WriteFailures: atomic.LoadInt64(&writeFailures),
		LastRun:       ts,
		LastRunHuman:  time.Unix(ts, 0).Format(time.RFC3339),
	}
}

// 5. Push

// PushGateway pushes Registry to a Prometheus Pushgateway under job,
// grouped by repository.
func PushGateway(ctx context.Context, url, job, repository string) error {
	if url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(Registry)
	if repository != "" {
		p = p.Grouping("repository", repository)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push to %s: %w", url, err)
	}
	return nil
}
