package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

// Repository defines persistence operations for conversations and messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertConversationIfAbsent(ctx context.Context, conversation *models.Conversation) (bool, error)
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindConversationByPair(ctx context.Context, customerID, vendorID uuid.UUID) (*models.Conversation, error)
	LockConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	InsertMessage(ctx context.Context, message *models.ConversationMessage) error
	ApplyAppend(ctx context.Context, id uuid.UUID, text string, at time.Time, recipient enums.SenderType) error
	ListConversations(ctx context.Context, userID uuid.UUID, role enums.SenderType, params pagination.Params) ([]models.Conversation, int64, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before *int64) ([]models.ConversationMessage, error)
	MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, sender enums.SenderType, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationID uuid.UUID, sender enums.SenderType) (int64, error)
	SetUnread(ctx context.Context, conversationID uuid.UUID, reader enums.SenderType, value int64) error
	SumUnread(ctx context.Context, userID uuid.UUID, role enums.SenderType) (int64, error)
	ReconcileUnread(ctx context.Context, since time.Time) (int64, error)
}

// Service is the conversation engine used by the HTTP and realtime surfaces.
type Service interface {
	StartOrGetConversation(ctx context.Context, input StartInput) (*StartResult, error)
	SendMessage(ctx context.Context, input SendInput) (*SendResult, error)
	ListConversations(ctx context.Context, userID uuid.UUID, role enums.SenderType, params pagination.Params) (*ConversationList, error)
	GetConversation(ctx context.Context, conversationID, requesterID uuid.UUID, history HistoryParams) (*ConversationDetail, error)
	AuthorizeParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*ConversationDTO, error)
	MarkAllRead(ctx context.Context, input MarkReadInput) (*MarkReadResult, error)
	GetUnreadTotal(ctx context.Context, userID uuid.UUID, role enums.SenderType) (int64, error)
}
