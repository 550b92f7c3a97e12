package registry

import (
	"sync/atomic"

	"eventhub/internal/hub/metrics"
)

// Metrics holds the internal counters of an EventHub.
type Metrics struct {
	subscriptions atomic.Int64
	published     atomic.Int64
	delivered     atomic.Int64
	posted        atomic.Int64
	reclaimed     atomic.Int64
	panics        atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) SetSubscriptions(n int) {
	m.subscriptions.Store(int64(n))
}

func (m *Metrics) RecordPublished() {
	m.published.Add(1)
}

func (m *Metrics) RecordDelivered() {
	m.delivered.Add(1)
}

func (m *Metrics) RecordPosted() {
	m.posted.Add(1)
}

func (m *Metrics) RecordReclaimed(n int) {
	m.reclaimed.Add(int64(n))
}

func (m *Metrics) RecordPanic() {
	m.panics.Add(1)
}

func (m *Metrics) Snapshot() metrics.HubSnapshot {
	return metrics.HubSnapshot{
		Subscriptions: m.subscriptions.Load(),
		Published:     m.published.Load(),
		Delivered:     m.delivered.Load(),
		Posted:        m.posted.Load(),
		Reclaimed:     m.reclaimed.Load(),
		Panics:        m.panics.Load(),
	}
}
