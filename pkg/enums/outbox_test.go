package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypesMapToAggregates(t *testing.T) {
	assert.Equal(t, AggregateOrder, EventOrderDeleted.Aggregate())
	assert.Equal(t, AggregateConversation, EventChatMessageSent.Aggregate())
	assert.Equal(t, OutboxAggregateType(""), OutboxEventType("order_shipped").Aggregate())

	for event, aggregate := range eventAggregates {
		assert.True(t, event.IsValid(), event)
		assert.True(t, aggregate.IsValid(), aggregate)
	}
}

func TestOutboxDLQErrorReasonIsValid(t *testing.T) {
	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())
	assert.False(t, OutboxDLQErrorReason("timeout").IsValid())
}
