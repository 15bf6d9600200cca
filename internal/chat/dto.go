package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

const (
	// MaxMessageLength caps a single chat message, counted in runes.
	MaxMessageLength = 5000
	// DefaultHistoryLimit is the number of messages returned with a conversation.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps a history page.
	MaxHistoryLimit = 100
)

// UnreadCount holds the per-role unread counters of a conversation.
type UnreadCount struct {
	Customer int `json:"customer"`
	Vendor   int `json:"vendor"`
}

// For returns the counter of the given role.
func (u UnreadCount) For(role enums.SenderType) int {
	if role == enums.SenderVendor {
		return u.Vendor
	}
	return u.Customer
}

// ConversationDTO is the API shape of a conversation without its messages.
type ConversationDTO struct {
	ID              uuid.UUID   `json:"id"`
	CustomerID      uuid.UUID   `json:"customerId"`
	VendorID        uuid.UUID   `json:"vendorId"`
	ProductID       *uuid.UUID  `json:"productId,omitempty"`
	LastMessage     *string     `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time  `json:"lastMessageTime,omitempty"`
	UnreadCount     UnreadCount `json:"unreadCount"`
	MessageCount    int64       `json:"messageCount"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ParticipantFor returns the participant id for a role.
func (c ConversationDTO) ParticipantFor(role enums.SenderType) uuid.UUID {
	if role == enums.SenderVendor {
		return c.VendorID
	}
	return c.CustomerID
}

// MessageDTO is one message of a conversation.
type MessageDTO struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversationId"`
	Seq            int64            `json:"seq"`
	SenderID       uuid.UUID        `json:"senderId"`
	SenderType     enums.SenderType `json:"senderType"`
	Message        string           `json:"message"`
	IsRead         bool             `json:"isRead"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// StartInput opens or reuses the conversation between a customer and a vendor.
type StartInput struct {
	CustomerID     uuid.UUID
	VendorID       uuid.UUID
	ProductID      *uuid.UUID
	InitialMessage *string
}

// StartResult reports the conversation and whether this call created it.
type StartResult struct {
	Conversation ConversationDTO `json:"conversation"`
	Message      *MessageDTO     `json:"message,omitempty"`
	Created      bool            `json:"created"`
}

// SendInput appends a message on behalf of one participant.
type SendInput struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderType     enums.SenderType
	Text           string
}

// SendResult is the updated conversation and the appended message.
type SendResult struct {
	Conversation ConversationDTO `json:"conversation"`
	Message      MessageDTO      `json:"message"`
}

// RecipientID returns the participant the message is directed at.
func (r SendResult) RecipientID() uuid.UUID {
	return r.Conversation.ParticipantFor(r.Message.SenderType.Counterpart())
}

// HistoryParams selects a window of messages ordered by seq. Before pages
// backwards from the given seq (exclusive).
type HistoryParams struct {
	Limit  int
	Before *int64
}

func (p HistoryParams) normalizedLimit() int {
	return pagination.NormalizeLimitWith(p.Limit, DefaultHistoryLimit, MaxHistoryLimit)
}

// ConversationDetail is a conversation plus one page of its history in
// chronological order.
type ConversationDetail struct {
	Conversation ConversationDTO `json:"conversation"`
	Messages     []MessageDTO    `json:"messages"`
	HasMore      bool            `json:"hasMore"`
}

// ConversationList is a page of conversations.
type ConversationList struct {
	Items      []ConversationDTO   `json:"items"`
	Pagination pagination.PageInfo `json:"pagination"`
}

// MarkReadInput marks every message of the counterpart role read for Reader.
// ReaderID is optional; when set it must be the participant for Reader.
type MarkReadInput struct {
	ConversationID uuid.UUID
	Reader         enums.SenderType
	ReaderID       uuid.UUID
}

// MarkReadResult reports how many messages flipped to read.
type MarkReadResult struct {
	Conversation ConversationDTO `json:"conversation"`
	Marked       int64           `json:"marked"`
}

func toConversationDTO(m models.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		VendorID:        m.VendorID,
		ProductID:       m.ProductID,
		LastMessage:     m.LastMessage,
		LastMessageTime: m.LastMessageAt,
		UnreadCount: UnreadCount{
			Customer: m.UnreadCustomer,
			Vendor:   m.UnreadVendor,
		},
		MessageCount: m.MessageCount,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toMessageDTO(m models.ConversationMessage) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Seq:            m.Seq,
		SenderID:       m.SenderID,
		SenderType:     m.SenderType,
		Message:        m.Message,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		Timestamp:      m.CreatedAt,
	}
}
