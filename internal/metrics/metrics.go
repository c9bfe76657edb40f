// Package metrics exposes Prometheus instrumentation for the media store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles all collectors. Create one per process with New and share
// it across services.
type Metrics struct {
	// IngestTotal counts ingestion outcomes by result: "stored", "linked",
	// "discarded", "copy", "error".
	IngestTotal *prometheus.CounterVec

	// DuplicatesTotal counts fingerprint matches against existing entries.
	DuplicatesTotal prometheus.Counter

	// BytesStoredTotal counts bytes written into blob storage.
	BytesStoredTotal prometheus.Counter

	// ExtractionFailuresTotal counts extractor failures by media kind.
	ExtractionFailuresTotal *prometheus.CounterVec

	// GCLastRunTime records when the last orphan scan finished.
	GCLastRunTime prometheus.Gauge

	// GCOrphanBlobs records the orphan count found by the last scan.
	GCOrphanBlobs prometheus.Gauge

	// GCRunDuration observes orphan scan durations in seconds.
	GCRunDuration prometheus.Histogram

	// GCBlobsDeleted counts blobs removed by the garbage collector.
	GCBlobsDeleted prometheus.Counter

	// GCBytesFreed counts bytes reclaimed by the garbage collector.
	GCBytesFreed prometheus.Counter
}

// New creates the collectors and registers them with the given registerer.
// Pass prometheus.DefaultRegisterer for the usual /metrics endpoint.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IngestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediavault_ingest_total",
			Help: "Ingestion outcomes by result.",
		}, []string{"result"}),

		DuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_duplicates_total",
			Help: "Fingerprint matches against existing catalog entries.",
		}),

		BytesStoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_bytes_stored_total",
			Help: "Bytes written into blob storage.",
		}),

		ExtractionFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediavault_extraction_failures_total",
			Help: "Metadata extractor failures by media kind.",
		}, []string{"kind"}),

		GCLastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediavault_gc_last_run_timestamp_seconds",
			Help: "Unix time of the last completed orphan scan.",
		}),

		GCOrphanBlobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediavault_gc_orphan_blobs",
			Help: "Orphan blobs found by the last scan.",
		}),

		GCRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediavault_gc_run_duration_seconds",
			Help:    "Orphan scan duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		GCBlobsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_gc_blobs_deleted_total",
			Help: "Blobs removed by the garbage collector.",
		}),

		GCBytesFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_gc_bytes_freed_total",
			Help: "Bytes reclaimed by the garbage collector.",
		}),
	}
}

// RecordIngest counts one ingestion with the given result label.
func (m *Metrics) RecordIngest(result string) {
	m.IngestTotal.WithLabelValues(result).Inc()
}

// RecordGCRun records the outcome of one orphan scan.
func (m *Metrics) RecordGCRun(durationSeconds float64, blobsDeleted int, bytesFreed int64) {
	m.GCRunDuration.Observe(durationSeconds)
	m.GCBlobsDeleted.Add(float64(blobsDeleted))
	m.GCBytesFreed.Add(float64(bytesFreed))
}
