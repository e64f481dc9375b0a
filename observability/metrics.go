// Package observability exposes the chat core counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package observability

import (
	"campus-chat/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "campus_chat"

type Metrics struct {
	MessagesSent   prometheus.Counter
	SendFailures   prometheus.Counter
	CallbackPanics prometheus.Counter
	RealtimeEvents *prometheus.CounterVec
	Subscriptions  *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to stay isolated from the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages confirmed by the backend.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Messages rejected by validation or by the backend.",
		}),
		CallbackPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_panics_total",
			Help:      "Panics recovered from subscriber callbacks.",
		}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Events delivered to subscribers, by topic kind.",
		}, []string{"topic"}),
		Subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Live realtime subscriptions, by topic kind.",
		}, []string{"topic"}),
	}
	reg.MustRegister(m.MessagesSent, m.SendFailures, m.CallbackPanics, m.RealtimeEvents, m.Subscriptions)
	return m
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.MessagesSent.Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.SendFailures.Inc()
	}
}

func (m *Metrics) CallbackPanicked() {
	if m != nil {
		m.CallbackPanics.Inc()
	}
}

func (m *Metrics) EventDelivered(kind domain.TopicKind) {
	if m != nil {
		m.RealtimeEvents.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) SubscriptionOpened(kind domain.TopicKind) {
	if m != nil {
		m.Subscriptions.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) SubscriptionClosed(kind domain.TopicKind) {
	if m != nil {
		m.Subscriptions.WithLabelValues(string(kind)).Dec()
	}
}
