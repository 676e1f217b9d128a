// Package metrics exposes the orchestrator's prometheus counters and
// histograms: rows ingested, enrichment duration, and cumulative-cache
// rebuild duration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krxdb_rows_ingested_total",
		Help: "Total number of snapshot rows written by the S1 ingestion stage",
	})

	EnrichmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "krxdb_enrichment_duration_seconds",
		Help:    "Wall-clock duration of an enrichment stage over a window",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CacheRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "krxdb_cumulative_cache_rebuild_duration_seconds",
		Help:    "Wall-clock duration of rebuilding the ephemeral cumulative-multiplier cache",
		Buckets: prometheus.DefBuckets,
	})

	DateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "krxdb_date_failures_total",
		Help: "Total number of dates that failed S1 ingestion and were isolated by the orchestrator",
	})
)

// Handler returns the HTTP handler the CLI mounts at -metrics-addr.
func Handler() http.Handler {
	return promhttp.Handler()
}
