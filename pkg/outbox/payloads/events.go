package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

// OrderCreatedEvent announces a newly placed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      uuid.UUID       `json:"userId"`
	ItemCount   int             `json:"itemCount"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderStatusChangedEvent is emitted for every applied status transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"orderId"`
	OrderNumber    string            `json:"orderNumber"`
	UserID         uuid.UUID         `json:"userId"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	Note           string            `json:"note,omitempty"`
	TrackingNumber *string           `json:"trackingNumber,omitempty"`
	ChangedAt      time.Time         `json:"changedAt"`
}

// OrderPaymentStatusChangedEvent is emitted when payment status is updated.
type OrderPaymentStatusChangedEvent struct {
	OrderID     uuid.UUID           `json:"orderId"`
	OrderNumber string              `json:"orderNumber"`
	UserID      uuid.UUID           `json:"userId"`
	From        enums.PaymentStatus `json:"from"`
	To          enums.PaymentStatus `json:"to"`
}

// OrderDeletedEvent records an administrative hard delete.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	DeletedAt   time.Time `json:"deletedAt"`
}

// ChatMessageSentEvent lets notification consumers alert the recipient.
type ChatMessageSentEvent struct {
	ConversationID uuid.UUID        `json:"conversationId"`
	MessageID      uuid.UUID        `json:"messageId"`
	Seq            int64            `json:"seq"`
	SenderID       uuid.UUID        `json:"senderId"`
	SenderType     enums.SenderType `json:"senderType"`
	RecipientID    uuid.UUID        `json:"recipientId"`
	Preview        string           `json:"preview"`
	SentAt         time.Time        `json:"sentAt"`
}
