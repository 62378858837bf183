// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoutedQueries counts routed chat queries by resolved agent and outcome
	RoutedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "routed_queries_total",
		Help:      "Chat queries routed to an agent, by agent and outcome.",
	}, []string{"agent", "outcome"})

	// RouteDuration observes end-to-end routing latency per agent
	RouteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "energy_agent",
		Name:      "route_duration_seconds",
		Help:      "Time spent routing and handling a chat query.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"agent"})

	ScopeGuardFlags = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "scope_guard_flags_total",
		Help:      "Queries that referenced data outside the session collection.",
	})

	AccessApprovals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "access_approvals_total",
		Help:      "Expanded data access approvals recorded on sessions.",
	})

	DroppedArtifacts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "dropped_artifacts_total",
		Help:      "Artifacts dropped because they could not be JSON encoded.",
	})

	ThoughtStepStreamDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "thought_step_stream_drops_total",
		Help:      "Thought step updates dropped because the stream queue was full.",
	})

	ThoughtStepStreamErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "thought_step_stream_errors_total",
		Help:      "Thought step updates that failed to persist.",
	})

	// HTTPRequests counts served requests by route pattern and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "energy_agent",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
)
