package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage metrics
	RecordsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_storage_records_total",
			Help: "Total number of record indices ever allocated in the primary storage file, including ones now on the free list",
		},
	)

	FreeRecordsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_storage_free_records_total",
			Help: "Total number of records currently on the free list",
		},
	)

	StorageSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_storage_size_bytes",
			Help: "Size in bytes of the primary storage file",
		},
	)

	// Graph metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_graph_nodes_total",
			Help: "Total number of nodes in the graph",
		},
	)

	EdgesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_graph_edges_total",
			Help: "Total number of edges in the graph",
		},
	)

	// Write-ahead log metrics
	WalEntriesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agdb_wal_entries_total",
			Help: "Number of before-image entries currently held in the write-ahead log",
		},
	)

	WalRecoveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agdb_wal_recoveries_total",
			Help: "Total number of times open() reverse-replayed a non-empty write-ahead log",
		},
	)

	// Container (hash map / multimap) metrics
	HashMapLoadFactor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agdb_hashmap_load_factor",
			Help: "Current load factor (len/capacity) of a storage-backed hash map, by name",
		},
		[]string{"map"},
	)

	HashMapRehashesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agdb_hashmap_rehashes_total",
			Help: "Total number of grow/shrink rehashes performed on a hash map, by name",
		},
		[]string{"map"},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agdb_transactions_total",
			Help: "Total number of top-level transactions by outcome (committed, rolled_back)",
		},
		[]string{"outcome"},
	)

	TransactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_transaction_duration_seconds",
			Help:    "Duration of top-level (outermost) transactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UndoLogLength = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_transaction_undo_log_length",
			Help:    "Number of undo commands recorded by a transaction at commit or rollback time",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	// Blob storage record operations
	RecordInsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_storage_insert_duration_seconds",
			Help:    "Time taken to insert a record into storage in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordResizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_storage_resize_duration_seconds",
			Help:    "Time taken to resize an existing record's value in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ShrinkToFitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_storage_shrink_to_fit_duration_seconds",
			Help:    "Time taken by shrink_to_fit to compact the primary file in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Open/recovery metrics
	OpenDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agdb_open_duration_seconds",
			Help:    "Time taken to open a database, including any WAL recovery, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(FreeRecordsTotal)
	prometheus.MustRegister(StorageSizeBytes)
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(EdgesTotal)
	prometheus.MustRegister(WalEntriesTotal)
	prometheus.MustRegister(WalRecoveriesTotal)
	prometheus.MustRegister(HashMapLoadFactor)
	prometheus.MustRegister(HashMapRehashesTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionDuration)
	prometheus.MustRegister(UndoLogLength)
	prometheus.MustRegister(RecordInsertDuration)
	prometheus.MustRegister(RecordResizeDuration)
	prometheus.MustRegister(ShrinkToFitDuration)
	prometheus.MustRegister(OpenDuration)
}

// Handler returns the Prometheus HTTP handler. The module carries no HTTP
// listener of its own; a host process mounts this at whatever path its own
// mux uses.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
