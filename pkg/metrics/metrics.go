package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks sessions currently held in the store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablecast_active_sessions",
			Help: "Number of sessions resident in memory",
		},
	)

	// ConnectedSubscribers tracks live websocket subscribers across all sessions.
	ConnectedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablecast_connected_subscribers",
			Help: "Number of connected realtime subscribers",
		},
	)

	// Broadcasts counts state snapshots fanned out per session mutation.
	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablecast_broadcasts_total",
			Help: "Total number of state broadcasts",
		},
		[]string{"session"},
	)

	// DroppedConnections counts subscribers detached because a send failed or backed up.
	DroppedConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablecast_dropped_connections_total",
			Help: "Total number of subscribers dropped on failed sends",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablecast_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
