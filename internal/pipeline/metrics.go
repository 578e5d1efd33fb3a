package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's Prometheus collectors. A Pipeline
// constructed with nil metrics gets collectors that are not registered
// anywhere; callers that want them exported pass a Metrics built with
// their own registry.
type Metrics struct {
	NotesProcessed *prometheus.CounterVec
	NotesFailed    *prometheus.CounterVec
	BatchLatency   prometheus.Histogram
}

// NewMetrics constructs and registers the pipeline's collectors against
// reg. Registration errors (e.g. double-registration in tests) are
// ignored, matching the teacher's best-effort posture for non-critical
// instrumentation.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brain_pipeline_notes_processed_total",
			Help: "Notes successfully (re)embedded.",
		}, []string{"project"}),
		NotesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brain_pipeline_notes_failed_total",
			Help: "Notes that failed to (re)embed.",
		}, []string{"project"}),
		BatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "brain_pipeline_batch_latency_seconds",
			Help:    "Latency of a single embed_batch call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		_ = reg.Register(m.NotesProcessed)
		_ = reg.Register(m.NotesFailed)
		_ = reg.Register(m.BatchLatency)
	}
	return m
}
