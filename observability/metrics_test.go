package observability

import (
	"campus-chat/domain"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	req := require.New(t)
	m := NewMetrics(prometheus.NewRegistry())

	m.MessageSent()
	m.MessageSent()
	m.SendFailed()
	m.EventDelivered(domain.TopicMessages)
	m.SubscriptionOpened(domain.TopicConversations)
	m.SubscriptionOpened(domain.TopicConversations)
	m.SubscriptionClosed(domain.TopicConversations)

	req.Equal(2.0, testutil.ToFloat64(m.MessagesSent))
	req.Equal(1.0, testutil.ToFloat64(m.SendFailures))
	req.Equal(1.0, testutil.ToFloat64(m.RealtimeEvents.WithLabelValues("messages")))
	req.Equal(1.0, testutil.ToFloat64(m.Subscriptions.WithLabelValues("conversations")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.MessageSent()
		m.SendFailed()
		m.CallbackPanicked()
		m.EventDelivered(domain.TopicMessages)
		m.SubscriptionOpened(domain.TopicMessages)
		m.SubscriptionClosed(domain.TopicMessages)
	})
}
