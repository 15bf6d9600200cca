package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

// ConversationMessage is one appended entry of a conversation. Seq is the
// 1-based append position inside the conversation.
type ConversationMessage struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ConversationID uuid.UUID        `gorm:"column:conversation_id;type:uuid;not null"`
	Seq            int64            `gorm:"column:seq;not null"`
	SenderID       uuid.UUID        `gorm:"column:sender_id;type:uuid;not null"`
	SenderType     enums.SenderType `gorm:"column:sender_type;not null"`
	Message        string           `gorm:"column:message;not null"`
	IsRead         bool             `gorm:"column:is_read;not null;default:false"`
	ReadAt         *time.Time       `gorm:"column:read_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (ConversationMessage) TableName() string { return "conversation_messages" }
