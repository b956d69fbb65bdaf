package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/metrics"
	"github.com/persys-dev/workflow-watch/internal/store"
)

const DefaultPollInterval = 2 * time.Second

var monitorLogger = logging.C("dashboard.monitor")

// Monitor polls the store for mutation and, on change, publishes the
// unfiltered all-time view to every connected client. The broadcast does not
// reapply per-client filters; only explicit get_workflows requests do.
type Monitor struct {
	store    *store.Store
	pub      message.Publisher
	interval time.Duration

	last *time.Time
}

func NewMonitor(st *store.Store, pub message.Publisher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{store: st, pub: pub, interval: interval}
}

// Run blocks until ctx is done. Poll errors are logged and the loop
// continues.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			monitorLogger.Info("stopping store monitoring")
			return
		case <-ticker.C:
			if err := m.poll(); err != nil {
				monitorLogger.WithError(err).Error("database monitoring error")
			}
		}
	}
}

func (m *Monitor) poll() error {
	current, err := m.store.LatestUpdate()
	if err != nil {
		return err
	}
	// The first observation only records a baseline, so a restart does not
	// re-broadcast state the clients already have.
	if m.last == nil {
		m.last = current
		return nil
	}
	if current == nil || current.Equal(*m.last) {
		return nil
	}

	views, err := fetchViews(m.store, defaultRequest())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(serverFrame{Type: frameWorkflowUpdate, Workflows: views})
	if err != nil {
		return err
	}
	if err := m.pub.Publish(updatesTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return err
	}

	m.last = current
	metrics.ObserveBroadcast()
	monitorLogger.WithField("workflows", len(views)).Debug("broadcast workflow update")
	return nil
}
