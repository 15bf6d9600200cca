package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a chat repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertConversationIfAbsent inserts conversation unless the pair already
// exists. It reports whether a row was written.
func (r *repository) InsertConversationIfAbsent(ctx context.Context, conversation *models.Conversation) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "vendor_id"}},
			DoNothing: true,
		}).
		Create(conversation)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) FindConversationByPair(ctx context.Context, customerID, vendorID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND vendor_id = ?", customerID, vendorID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// LockConversation reads the row with SELECT ... FOR UPDATE. Dialects without
// row locks ignore the clause.
func (r *repository) LockConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repository) InsertMessage(ctx context.Context, message *models.ConversationMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ApplyAppend updates the denormalised conversation fields after a message
// append using column expressions so concurrent writers never lose counts.
func (r *repository) ApplyAppend(ctx context.Context, id uuid.UUID, text string, at time.Time, recipient enums.SenderType) error {
	column := unreadColumn(recipient)
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message":    text,
			"last_message_at": at,
			"message_count":   gorm.Expr("message_count + 1"),
			column:            gorm.Expr(column + " + 1"),
			"updated_at":      at,
		}).Error
}

func (r *repository) ListConversations(ctx context.Context, userID uuid.UUID, role enums.SenderType, params pagination.Params) ([]models.Conversation, int64, error) {
	params = params.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where(participantColumn(role)+" = ?", userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Conversation
	err := query.
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListMessages returns up to limit+1 messages newest first so callers can
// detect another page.
func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, before *int64) ([]models.ConversationMessage, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("seq < ?", *before)
	}
	var rows []models.ConversationMessage
	if err := query.Order("seq DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, sender enums.SenderType, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conversationID, sender, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CountUnread(ctx context.Context, conversationID uuid.UUID, sender enums.SenderType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conversationID, sender, false).
		Count(&count).Error
	return count, err
}

func (r *repository) SetUnread(ctx context.Context, conversationID uuid.UUID, reader enums.SenderType, value int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update(unreadColumn(reader), value).Error
}

func (r *repository) SumUnread(ctx context.Context, userID uuid.UUID, role enums.SenderType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Select("COALESCE(SUM("+unreadColumn(role)+"), 0)").
		Where(participantColumn(role)+" = ?", userID).
		Scan(&total).Error
	return total, err
}

// ReconcileUnread recomputes both unread counters from message rows for
// conversations touched at or after since. Each conversation is locked and
// recounted in its own transaction so a concurrent append or mark-read is
// either fully counted or not started. It returns the conversations whose
// counters changed.
func (r *repository) ReconcileUnread(ctx context.Context, since time.Time) (int64, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("updated_at >= ?", since).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	var repaired int64
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		changed, err := r.reconcileConversation(ctx, id)
		if err != nil {
			return repaired, err
		}
		if changed {
			repaired++
		}
	}
	return repaired, nil
}

func (r *repository) reconcileConversation(ctx context.Context, id uuid.UUID) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := &repository{db: tx}
		conversation, err := locked.LockConversation(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		stored := map[enums.SenderType]int{
			enums.SenderCustomer: conversation.UnreadCustomer,
			enums.SenderVendor:   conversation.UnreadVendor,
		}
		for _, reader := range []enums.SenderType{enums.SenderCustomer, enums.SenderVendor} {
			count, err := locked.CountUnread(ctx, id, reader.Counterpart())
			if err != nil {
				return err
			}
			if count == int64(stored[reader]) {
				continue
			}
			if err := locked.SetUnread(ctx, id, reader, count); err != nil {
				return err
			}
			changed = true
		}
		return nil
	})
	return changed, err
}

// unreadColumn is the counter of messages directed at role.
func unreadColumn(role enums.SenderType) string {
	if role == enums.SenderVendor {
		return "unread_vendor"
	}
	return "unread_customer"
}

func participantColumn(role enums.SenderType) string {
	if role == enums.SenderVendor {
		return "vendor_id"
	}
	return "customer_id"
}
