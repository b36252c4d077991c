package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initBusMetrics() {
	m.busPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_posted_total",
			Help: "Total number of events posted, by kind",
		},
		[]string{"kind"},
	)

	m.busDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_delivered_total",
			Help: "Total number of handler invocations that returned normally",
		},
		[]string{"kind", "mode"},
	)

	m.busSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_skipped_total",
			Help: "Total number of subscriptions skipped during dispatch",
		},
		[]string{"kind", "reason"},
	)

	m.busPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_handler_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"kind"},
	)

	m.busSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventbus_subscriptions",
			Help: "Current number of live subscriptions, by kind",
		},
		[]string{"kind"},
	)

	m.registry.MustRegister(m.busPosted)
	m.registry.MustRegister(m.busDelivered)
	m.registry.MustRegister(m.busSkipped)
	m.registry.MustRegister(m.busPanics)
	m.registry.MustRegister(m.busSubscriptions)
}

// RecordPosted counts a posted event.
func (m *Manager) RecordPosted(kind string) {
	if !m.enabled {
		return
	}
	m.busPosted.WithLabelValues(kind).Inc()
}

// RecordDelivered counts a completed delivery.
func (m *Manager) RecordDelivered(kind string, mode string) {
	if !m.enabled {
		return
	}
	m.busDelivered.WithLabelValues(kind, mode).Inc()
}

// RecordSkipped counts a subscription skipped for reason.
func (m *Manager) RecordSkipped(kind string, reason string) {
	if !m.enabled {
		return
	}
	m.busSkipped.WithLabelValues(kind, reason).Inc()
}

// RecordHandlerPanic counts a recovered handler panic.
func (m *Manager) RecordHandlerPanic(kind string) {
	if !m.enabled {
		return
	}
	m.busPanics.WithLabelValues(kind).Inc()
}

// SetSubscriptions sets the live subscription gauge for kind.
func (m *Manager) SetSubscriptions(kind string, count int) {
	if !m.enabled {
		return
	}
	m.busSubscriptions.WithLabelValues(kind).Set(float64(count))
}
