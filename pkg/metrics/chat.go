package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics counts conversation activity.
type ChatMetrics struct {
	messages      *prometheus.CounterVec
	conversations prometheus.Counter
}

// NewChatMetrics registers the chat metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_messages_total",
		Help:      "Messages appended to conversations by sender type.",
	}, []string{"sender_type"})
	conversations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_conversations_created_total",
		Help:      "Conversations created.",
	})
	reg.MustRegister(messages, conversations)
	return &ChatMetrics{messages: messages, conversations: conversations}
}

func (m *ChatMetrics) IncMessage(senderType string) {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(senderType)).Inc()
}

func (m *ChatMetrics) IncConversationCreated() {
	if m == nil || m.conversations == nil {
		return
	}
	m.conversations.Inc()
}
