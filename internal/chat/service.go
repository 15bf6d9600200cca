package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/outbox"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/outbox/payloads"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

const (
	errUnauthorizedConversation = "unauthorized access to conversation"
	previewLength               = 140
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type chatMetrics interface {
	IncMessage(senderType string)
	IncConversationCreated()
}

// ServiceParams wires the conversation engine.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Metrics    chatMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics chatMetrics
	now     func() time.Time
}

// NewService builds the conversation engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) StartOrGetConversation(ctx context.Context, input StartInput) (*StartResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.CustomerID == input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer and vendor must differ")
	}
	var initial string
	if input.InitialMessage != nil {
		initial = strings.TrimSpace(*input.InitialMessage)
		if err := validateText(initial, false); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindConversationByPair(ctx, input.CustomerID, input.VendorID)
	if err == nil {
		return &StartResult{Conversation: toConversationDTO(*existing)}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}

	result := &StartResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()
		candidate := &models.Conversation{
			ID:         uuid.New(),
			CustomerID: input.CustomerID,
			VendorID:   input.VendorID,
			ProductID:  input.ProductID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		created, err := repo.InsertConversationIfAbsent(ctx, candidate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
		}
		if !created {
			// another caller won the race for this pair
			winner, err := repo.FindConversationByPair(ctx, input.CustomerID, input.VendorID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload conversation")
			}
			result.Conversation = toConversationDTO(*winner)
			return nil
		}
		result.Created = true
		if initial == "" {
			result.Conversation = toConversationDTO(*candidate)
			return nil
		}
		sent, err := s.appendLocked(ctx, tx, repo, SendInput{
			ConversationID: candidate.ID,
			SenderID:       input.CustomerID,
			SenderType:     enums.SenderCustomer,
			Text:           initial,
		})
		if err != nil {
			return err
		}
		result.Conversation = sent.Conversation
		result.Message = &sent.Message
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		if s.metrics != nil {
			s.metrics.IncConversationCreated()
			if result.Message != nil {
				s.metrics.IncMessage(string(enums.SenderCustomer))
			}
		}
		logCtx := s.logg.WithConversationID(ctx, result.Conversation.ID.String())
		s.logg.Info(logCtx, "conversation created")
	}
	return result, nil
}

func (s *service) SendMessage(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.ConversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if input.SenderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender id required")
	}
	if !input.SenderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender type must be customer or vendor")
	}
	input.Text = strings.TrimSpace(input.Text)
	if err := validateText(input.Text, true); err != nil {
		return nil, err
	}

	var result *SendResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sent, err := s.appendLocked(ctx, tx, s.repo.WithTx(tx), input)
		if err != nil {
			return err
		}
		result = sent
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncMessage(string(input.SenderType))
	}
	return result, nil
}

// appendLocked appends one message while holding the conversation row lock.
// seq follows message_count, so the unique (conversation_id, seq) index turns
// a lost race on lock-free stores into a Conflict.
func (s *service) appendLocked(ctx context.Context, tx *gorm.DB, repo Repository, input SendInput) (*SendResult, error) {
	conversation, err := repo.LockConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, conversationLoadError(err)
	}
	if participantFor(conversation, input.SenderType) != input.SenderID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, errUnauthorizedConversation)
	}

	now := s.now()
	message := &models.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		Seq:            conversation.MessageCount + 1,
		SenderID:       input.SenderID,
		SenderType:     input.SenderType,
		Message:        input.Text,
		CreatedAt:      now,
	}
	if err := repo.InsertMessage(ctx, message); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent message append, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert message")
	}
	recipient := input.SenderType.Counterpart()
	if err := repo.ApplyAppend(ctx, conversation.ID, input.Text, now, recipient); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update conversation")
	}
	updated, err := repo.FindConversation(ctx, conversation.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload conversation")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventChatMessageSent,
		AggregateType: enums.AggregateConversation,
		AggregateID:   conversation.ID,
		Actor:         &outbox.ActorRef{UserID: input.SenderID, Role: string(input.SenderType)},
		OccurredAt:    now,
		Data: payloads.ChatMessageSentEvent{
			ConversationID: conversation.ID,
			MessageID:      message.ID,
			Seq:            message.Seq,
			SenderID:       input.SenderID,
			SenderType:     input.SenderType,
			RecipientID:    participantFor(conversation, recipient),
			Preview:        preview(input.Text),
			SentAt:         now,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit chat message event")
	}

	return &SendResult{
		Conversation: toConversationDTO(*updated),
		Message:      toMessageDTO(*message),
	}, nil
}

func (s *service) ListConversations(ctx context.Context, userID uuid.UUID, role enums.SenderType, params pagination.Params) (*ConversationList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user type must be customer or vendor")
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListConversations(ctx, userID, role, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	items := make([]ConversationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toConversationDTO(row))
	}
	return &ConversationList{
		Items:      items,
		Pagination: pagination.NewPageInfo(params, total),
	}, nil
}

func (s *service) GetConversation(ctx context.Context, conversationID, requesterID uuid.UUID, history HistoryParams) (*ConversationDetail, error) {
	conversation, err := s.AuthorizeParticipant(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	limit := history.normalizedLimit()
	rows, err := s.repo.ListMessages(ctx, conversationID, limit, history.Before)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	messages := make([]MessageDTO, len(rows))
	for i, row := range rows {
		// rows are newest first
		messages[len(rows)-1-i] = toMessageDTO(row)
	}
	return &ConversationDetail{
		Conversation: *conversation,
		Messages:     messages,
		HasMore:      hasMore,
	}, nil
}

// AuthorizeParticipant loads the conversation and fails with Forbidden when
// userID is neither its customer nor its vendor.
func (s *service) AuthorizeParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*ConversationDTO, error) {
	if conversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	conversation, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, conversationLoadError(err)
	}
	if userID == uuid.Nil || (conversation.CustomerID != userID && conversation.VendorID != userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, errUnauthorizedConversation)
	}
	dto := toConversationDTO(*conversation)
	return &dto, nil
}

func (s *service) MarkAllRead(ctx context.Context, input MarkReadInput) (*MarkReadResult, error) {
	if input.ConversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id required")
	}
	if !input.Reader.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user type must be customer or vendor")
	}

	result := &MarkReadResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		conversation, err := repo.LockConversation(ctx, input.ConversationID)
		if err != nil {
			return conversationLoadError(err)
		}
		if input.ReaderID != uuid.Nil && participantFor(conversation, input.Reader) != input.ReaderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, errUnauthorizedConversation)
		}

		author := input.Reader.Counterpart()
		marked, err := repo.MarkMessagesRead(ctx, conversation.ID, author, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
		}
		// recount instead of zeroing so the counter always matches the rows
		remaining, err := repo.CountUnread(ctx, conversation.ID, author)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
		}
		if err := repo.SetUnread(ctx, conversation.ID, input.Reader, remaining); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset unread counter")
		}
		updated, err := repo.FindConversation(ctx, conversation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload conversation")
		}
		result.Conversation = toConversationDTO(*updated)
		result.Marked = marked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetUnreadTotal(ctx context.Context, userID uuid.UUID, role enums.SenderType) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user type must be customer or vendor")
	}
	total, err := s.repo.SumUnread(ctx, userID, role)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum unread counters")
	}
	return total, nil
}

func validateText(text string, required bool) error {
	if text == "" {
		if required {
			return pkgerrors.New(pkgerrors.CodeValidation, "message is required")
		}
		return nil
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("message must be at most %d characters", MaxMessageLength)).
			WithDetails(map[string]any{"maxLength": MaxMessageLength})
	}
	return nil
}

func conversationLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
}

func participantFor(conversation *models.Conversation, role enums.SenderType) uuid.UUID {
	if role == enums.SenderVendor {
		return conversation.VendorID
	}
	return conversation.CustomerID
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength])
}
