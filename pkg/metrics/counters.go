package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TreeOps counts structural mutations by operation and outcome.
	TreeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "tree",
		Name:      "operations_total",
		Help:      "Structural tree operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// Normalizations counts sibling-order rewrites by trigger.
	Normalizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "tree",
		Name:      "normalizations_total",
		Help:      "Sibling order normalizations by trigger.",
	}, []string{"trigger"})

	// ImportRecords counts bulk import records by final state.
	ImportRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor",
		Subsystem: "import",
		Name:      "records_total",
		Help:      "Bulk import records by final state.",
	}, []string{"state"})

	// ImportDuration observes wall time per import phase.
	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arbor",
		Subsystem: "import",
		Name:      "phase_duration_seconds",
		Help:      "Wall time per bulk import phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})
)
