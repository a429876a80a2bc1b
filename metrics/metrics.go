package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "agent",
			Name:      "actions_total",
			Help:      "Total agent actions by tool and resulting status",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "agent",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	ReasoningDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "agent",
			Name:      "reasoning_duration_seconds",
			Help:      "Reasoning engine call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	SessionsCleanedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "agent",
			Name:      "sessions_cleaned_total",
			Help:      "Total expired sessions removed",
		},
	)
)

func RecordAction(tool, status string) {
	ActionsTotal.WithLabelValues(tool, status).Inc()
}

func RecordToolDuration(tool string, durationSec float64) {
	ToolDuration.WithLabelValues(tool).Observe(durationSec)
}

func RecordReasoning(durationSec float64) {
	ReasoningDuration.Observe(durationSec)
}

func RecordSessionsCleaned(n int64) {
	SessionsCleanedTotal.Add(float64(n))
}
