package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track projection volume
var (
	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "willvault_events_applied_total",
			Help: "Total number of journal events applied to the replica by kind",
		},
		[]string{"kind"},
	)

	EventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "willvault_events_skipped_total",
			Help: "Total number of journal events skipped by reason",
		},
		[]string{"reason"},
	)

	BatchesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "willvault_batches_applied_total",
		Help: "Total number of event batches applied and checkpointed",
	})
)

// Performance metrics - Track projection speed and latency
var (
	EventApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "willvault_event_apply_duration_seconds",
		Help:    "Time taken to apply a single journal event",
		Buckets: prometheus.DefBuckets,
	})

	BatchApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "willvault_batch_apply_duration_seconds",
		Help:    "Time taken to apply and checkpoint one batch of events",
		Buckets: prometheus.DefBuckets,
	})
)

// State metrics - Track current projection position
var (
	LastAppliedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "willvault_last_applied_block",
		Help: "Block of the last journal event applied to the replica",
	})

	JournalLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "willvault_journal_lag_blocks",
		Help: "Number of blocks between the journal head and the replica",
	})

	BackfillActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "willvault_backfill_active",
		Help: "Whether the projection is backfilling: 0=live, 1=backfill",
	})
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "willvault_errors_total",
			Help: "Total number of errors by service",
		},
		[]string{"service"},
	)
)
