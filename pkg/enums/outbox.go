package enums

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateConversation OutboxAggregateType = "conversation"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregateConversation
}

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated              OutboxEventType = "order_created"
	EventOrderStatusChanged        OutboxEventType = "order_status_changed"
	EventOrderPaymentStatusChanged OutboxEventType = "order_payment_status_changed"
	EventOrderDeleted              OutboxEventType = "order_deleted"
	EventChatMessageSent           OutboxEventType = "chat_message_sent"
)

// eventAggregates fixes which aggregate each event type is emitted for.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated:              AggregateOrder,
	EventOrderStatusChanged:        AggregateOrder,
	EventOrderPaymentStatusChanged: AggregateOrder,
	EventOrderDeleted:              AggregateOrder,
	EventChatMessageSent:           AggregateConversation,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e belongs to, or "" for unknown events.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// OutboxDLQErrorReason records why an outbox row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
