// Package metrics exposes the Prometheus instruments for swarmdeck's two
// processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts REST requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmdeck",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total REST requests handled, by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration observes REST handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swarmdeck",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "REST handler latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// NotificationsPublishedTotal counts notify-channel publishes by event.
	NotificationsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmdeck",
		Subsystem: "api",
		Name:      "notifications_published_total",
		Help:      "Notifications emitted on the pub/sub channel, by event.",
	}, []string{"event"})

	// BridgeClientsConnected tracks currently connected WS clients.
	BridgeClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swarmdeck",
		Subsystem: "bridge",
		Name:      "clients_connected",
		Help:      "Number of currently connected WS clients.",
	})

	// BridgeEventsDeliveredTotal counts event frames sent to clients.
	BridgeEventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmdeck",
		Subsystem: "bridge",
		Name:      "events_delivered_total",
		Help:      "Event frames delivered to WS clients, by event and attempt outcome.",
	}, []string{"event", "outcome"})

	// BridgePendingDeliveries tracks the in-flight at-least-once pending map size.
	BridgePendingDeliveries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swarmdeck",
		Subsystem: "bridge",
		Name:      "pending_deliveries",
		Help:      "Current size of the at-least-once pending delivery map.",
	})

	// NotifySubscriptionReconnects counts the bridge's notify-channel reconnect attempts.
	NotifySubscriptionReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swarmdeck",
		Subsystem: "bridge",
		Name:      "notify_reconnects_total",
		Help:      "Number of times the bridge re-established its notify-channel subscription.",
	})
)
