package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions tracks the number of live mailbox sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadbox_active_sessions",
		Help: "Number of active mailbox sync sessions.",
	})

	// MessagesIngested counts canonical messages persisted for the first time.
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadbox_messages_ingested_total",
		Help: "Total number of messages ingested.",
	})

	// MessagesDuplicate counts messages skipped by the dedup gate.
	MessagesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadbox_messages_duplicate_total",
		Help: "Total number of messages skipped as already ingested.",
	})

	// ParseFailures counts raw messages dropped because they could not be parsed.
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadbox_parse_failures_total",
		Help: "Total number of raw messages that failed normalization.",
	})

	// PipelineStepFailures counts collaborator failures per fan-out step.
	PipelineStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadbox_pipeline_step_failures_total",
		Help: "Total number of fan-out step failures, by step.",
	}, []string{"step"})

	// SessionErrors counts sessions that ended in the errored state.
	SessionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadbox_session_errors_total",
		Help: "Total number of sessions terminated by a transport error.",
	})
)

// Handler returns the HTTP handler serving the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
