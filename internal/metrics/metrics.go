package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpilot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskpilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpilot_chat_turns_total",
			Help: "Total number of AI chat turns processed.",
		},
		[]string{"outcome"},
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpilot_quota_denials_total",
			Help: "Total number of requests denied by the quota service.",
		},
		[]string{"period"},
	)

	ActionExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpilot_action_executions_total",
			Help: "Total number of confirmed action executions by outcome.",
		},
		[]string{"action_type", "status"},
	)

	PendingActionsProposed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpilot_actions_proposed_total",
			Help: "Total number of pending actions proposed.",
		},
	)

	SSEConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpilot_sse_connected_clients",
			Help: "Number of currently connected SSE event stream clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ChatTurnsTotal,
		QuotaDenialsTotal,
		ActionExecutionsTotal,
		PendingActionsProposed,
		SSEConnectedClients,
	)
}
