package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "workflow_watch",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of webhook deliveries by event type and outcome.",
		},
		[]string{"event", "outcome"},
	)
	broadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "workflow_watch",
			Subsystem: "dashboard",
			Name:      "broadcasts_total",
			Help:      "Total number of poller-initiated workflow_update broadcasts.",
		},
	)
	connectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "workflow_watch",
			Subsystem: "dashboard",
			Name:      "connected_clients",
			Help:      "Number of currently connected dashboard clients.",
		},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			webhookEventsTotal,
			broadcastsTotal,
			connectedClients,
		)
	})
}

const (
	OutcomeProcessed    = "processed"
	OutcomeIgnored      = "ignored"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

func ObserveWebhookEvent(event, outcome string) {
	if event == "" {
		event = "unknown"
	}
	webhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

func ObserveBroadcast() {
	broadcastsTotal.Inc()
}

func ClientConnected()    { connectedClients.Inc() }
func ClientDisconnected() { connectedClients.Dec() }
