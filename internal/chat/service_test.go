package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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

func openChatDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:chat_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec(`
		CREATE TABLE conversations (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			product_id TEXT,
			last_message TEXT,
			last_message_at DATETIME,
			unread_customer INTEGER NOT NULL DEFAULT 0,
			unread_vendor INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX uniq_conversations_pair ON conversations (customer_id, vendor_id)`).Error)
	require.NoError(t, conn.Exec(`
		CREATE TABLE conversation_messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender_id TEXT NOT NULL,
			sender_type TEXT NOT NULL,
			message TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			read_at DATETIME,
			created_at DATETIME
		)`).Error)
	require.NoError(t, conn.Exec(`CREATE UNIQUE INDEX uniq_conversation_messages_seq ON conversation_messages (conversation_id, seq)`).Error)
	return conn
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
	err    error
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type countingChatMetrics struct {
	messages      map[string]int
	conversations int
}

func (c *countingChatMetrics) IncMessage(senderType string) {
	if c.messages == nil {
		c.messages = map[string]int{}
	}
	c.messages[senderType]++
}

func (c *countingChatMetrics) IncConversationCreated() { c.conversations++ }

type chatFixture struct {
	conn    *gorm.DB
	svc     Service
	emitter *recordingEmitter
	metrics *countingChatMetrics
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	conn := openChatDB(t)
	emitter := &recordingEmitter{}
	metrics := &countingChatMetrics{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		TxRunner:   db.NewFromGorm(conn),
		Outbox:     emitter,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Metrics:    metrics,
	})
	require.NoError(t, err)
	return &chatFixture{conn: conn, svc: svc, emitter: emitter, metrics: metrics}
}

func strPtr(s string) *string { return &s }

// assertUnreadMatchesRows checks each counter against the unread messages
// authored by the other role.
func assertUnreadMatchesRows(t *testing.T, conn *gorm.DB, conversationID uuid.UUID) {
	t.Helper()
	var conversation models.Conversation
	require.NoError(t, conn.Where("id = ?", conversationID).First(&conversation).Error)

	var vendorUnread, customerUnread int64
	require.NoError(t, conn.Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conversationID, enums.SenderVendor, false).
		Count(&vendorUnread).Error)
	require.NoError(t, conn.Model(&models.ConversationMessage{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conversationID, enums.SenderCustomer, false).
		Count(&customerUnread).Error)

	assert.Equal(t, int(vendorUnread), conversation.UnreadCustomer, "customer counter")
	assert.Equal(t, int(customerUnread), conversation.UnreadVendor, "vendor counter")
}

func TestChatScenarioStartSendMarkRead(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()

	started, err := f.svc.StartOrGetConversation(ctx, StartInput{
		CustomerID:     customer,
		VendorID:       vendor,
		InitialMessage: strPtr("Is this in stock?"),
	})
	require.NoError(t, err)
	require.True(t, started.Created)
	require.NotNil(t, started.Message)
	assert.Equal(t, 1, started.Conversation.UnreadCount.Vendor)
	assert.Equal(t, 0, started.Conversation.UnreadCount.Customer)
	assert.EqualValues(t, 1, started.Conversation.MessageCount)
	assert.Equal(t, enums.SenderCustomer, started.Message.SenderType)

	conversationID := started.Conversation.ID
	sent, err := f.svc.SendMessage(ctx, SendInput{
		ConversationID: conversationID,
		SenderID:       vendor,
		SenderType:     enums.SenderVendor,
		Text:           "Yes",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Conversation.UnreadCount.Customer)
	require.NotNil(t, sent.Conversation.LastMessage)
	assert.Equal(t, "Yes", *sent.Conversation.LastMessage)
	assert.EqualValues(t, 2, sent.Message.Seq)
	assert.False(t, sent.Message.IsRead)
	assert.Equal(t, customer, sent.RecipientID())
	assertUnreadMatchesRows(t, f.conn, conversationID)

	read, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: conversationID, Reader: enums.SenderCustomer, ReaderID: customer})
	require.NoError(t, err)
	assert.EqualValues(t, 1, read.Marked)
	assert.Equal(t, 0, read.Conversation.UnreadCount.Customer)
	assert.Equal(t, 1, read.Conversation.UnreadCount.Vendor)
	assertUnreadMatchesRows(t, f.conn, conversationID)

	detail, err := f.svc.GetConversation(ctx, conversationID, customer, HistoryParams{})
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, "Is this in stock?", detail.Messages[0].Message)
	assert.False(t, detail.Messages[0].IsRead)
	assert.Equal(t, "Yes", detail.Messages[1].Message)
	assert.True(t, detail.Messages[1].IsRead)
	assert.NotNil(t, detail.Messages[1].ReadAt)
	assert.False(t, detail.HasMore)

	require.Len(t, f.emitter.events, 2)
	for _, event := range f.emitter.events {
		assert.Equal(t, enums.EventChatMessageSent, event.EventType)
		assert.Equal(t, enums.AggregateConversation, event.AggregateType)
		assert.Equal(t, conversationID, event.AggregateID)
	}
	last := f.emitter.events[1].Data.(payloads.ChatMessageSentEvent)
	assert.Equal(t, customer, last.RecipientID)
	assert.Equal(t, 1, f.metrics.conversations)
	assert.Equal(t, 1, f.metrics.messages["customer"])
	assert.Equal(t, 1, f.metrics.messages["vendor"])
}

func TestStartOrGetConversationReturnsExisting(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()

	first, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)
	require.True(t, first.Created)
	assert.Nil(t, first.Message)

	second, err := f.svc.StartOrGetConversation(ctx, StartInput{
		CustomerID:     customer,
		VendorID:       vendor,
		InitialMessage: strPtr("ignored on reuse"),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	assert.EqualValues(t, 0, second.Conversation.MessageCount)
	assert.Empty(t, f.emitter.events)
}

func TestStartOrGetConversationConcurrentCallsConverge(t *testing.T) {
	f := newChatFixture(t)
	customer, vendor := uuid.New(), uuid.New()

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.StartOrGetConversation(context.Background(), StartInput{
				CustomerID:     customer,
				VendorID:       vendor,
				InitialMessage: strPtr("hello"),
			})
			errs[i] = err
			if res != nil {
				ids[i] = res.Conversation.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, f.conn.Model(&models.Conversation{}).
		Where("customer_id = ? AND vendor_id = ?", customer, vendor).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var messages int64
	require.NoError(t, f.conn.Model(&models.ConversationMessage{}).Count(&messages).Error)
	assert.EqualValues(t, 1, messages, "initial message is appended only by the creator")
}

func TestSendMessageConcurrentAppendsKeepCounters(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)

	const perSide = 10
	var wg sync.WaitGroup
	for i := 0; i < perSide; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderCustomer, Text: fmt.Sprintf("c%d", i)})
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: vendor, SenderType: enums.SenderVendor, Text: fmt.Sprintf("v%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var conversation models.Conversation
	require.NoError(t, f.conn.Where("id = ?", started.Conversation.ID).First(&conversation).Error)
	assert.EqualValues(t, 2*perSide, conversation.MessageCount)
	assert.Equal(t, perSide, conversation.UnreadCustomer)
	assert.Equal(t, perSide, conversation.UnreadVendor)
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)

	var seqs []int64
	require.NoError(t, f.conn.Model(&models.ConversationMessage{}).
		Where("conversation_id = ?", started.Conversation.ID).
		Order("seq ASC").
		Pluck("seq", &seqs).Error)
	require.Len(t, seqs, 2*perSide)
	for i, seq := range seqs {
		assert.EqualValues(t, i+1, seq)
	}
}

func TestSendMessageErrors(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: uuid.New(), SenderID: customer, SenderType: enums.SenderCustomer, Text: "hi"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "missing conversation: %v", err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: uuid.New(), SenderType: enums.SenderCustomer, Text: "hi"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "foreign sender: %v", err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderVendor, Text: "hi"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "wrong role: %v", err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderCustomer, Text: "   "})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "blank text: %v", err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderCustomer, Text: strings.Repeat("a", MaxMessageLength+1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "long text: %v", err)

	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: "admin", Text: "hi"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "bad sender type: %v", err)

	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)
}

func TestSendMessageRollsBackWhenOutboxFails(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)

	f.emitter.err = fmt.Errorf("outbox down")
	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderCustomer, Text: "hi"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	var conversation models.Conversation
	require.NoError(t, f.conn.Where("id = ?", started.Conversation.ID).First(&conversation).Error)
	assert.EqualValues(t, 0, conversation.MessageCount)
	assert.Equal(t, 0, conversation.UnreadVendor)
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)
}

func TestGetConversationRejectsNonParticipant(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: uuid.New(), VendorID: uuid.New()})
	require.NoError(t, err)

	_, err = f.svc.GetConversation(ctx, started.Conversation.ID, uuid.New(), HistoryParams{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	assert.Equal(t, "unauthorized access to conversation", typed.Message())

	_, err = f.svc.GetConversation(ctx, uuid.New(), uuid.New(), HistoryParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetConversationPagesHistoryBySeq(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: customer, SenderType: enums.SenderCustomer, Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	page, err := f.svc.GetConversation(ctx, started.Conversation.ID, vendor, HistoryParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "m4", page.Messages[0].Message)
	assert.Equal(t, "m5", page.Messages[1].Message)

	before := page.Messages[0].Seq
	older, err := f.svc.GetConversation(ctx, started.Conversation.ID, vendor, HistoryParams{Limit: 3, Before: &before})
	require.NoError(t, err)
	require.Len(t, older.Messages, 3)
	assert.False(t, older.HasMore)
	assert.Equal(t, "m1", older.Messages[0].Message)
	assert.Equal(t, "m3", older.Messages[2].Message)
}

func TestListConversationsSortedByActivity(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer := uuid.New()
	vendors := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	ids := make([]uuid.UUID, len(vendors))
	for i, vendor := range vendors {
		res, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor, InitialMessage: strPtr("hi")})
		require.NoError(t, err)
		ids[i] = res.Conversation.ID
	}
	// touch the first conversation last
	_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: ids[0], SenderID: vendors[0], SenderType: enums.SenderVendor, Text: "latest"})
	require.NoError(t, err)

	list, err := f.svc.ListConversations(ctx, customer, enums.SenderCustomer, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, ids[0], list.Items[0].ID)
	assert.EqualValues(t, 3, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)
	assert.Equal(t, 1, list.Pagination.Page)

	vendorList, err := f.svc.ListConversations(ctx, vendors[1], enums.SenderVendor, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, vendorList.Items, 1)
	assert.Equal(t, ids[1], vendorList.Items[0].ID)
	assert.Equal(t, pagination.DefaultLimit, vendorList.Pagination.Limit)

	none, err := f.svc.ListConversations(ctx, vendors[1], enums.SenderCustomer, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}

func TestGetUnreadTotalSumsRoleCounters(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer := uuid.New()
	vendorA, vendorB := uuid.New(), uuid.New()

	a, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendorA})
	require.NoError(t, err)
	b, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendorB})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: a.Conversation.ID, SenderID: vendorA, SenderType: enums.SenderVendor, Text: "a"})
		require.NoError(t, err)
	}
	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: b.Conversation.ID, SenderID: vendorB, SenderType: enums.SenderVendor, Text: "b"})
	require.NoError(t, err)

	total, err := f.svc.GetUnreadTotal(ctx, customer, enums.SenderCustomer)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	vendorTotal, err := f.svc.GetUnreadTotal(ctx, vendorA, enums.SenderVendor)
	require.NoError(t, err)
	assert.EqualValues(t, 0, vendorTotal)

	empty, err := f.svc.GetUnreadTotal(ctx, uuid.New(), enums.SenderCustomer)
	require.NoError(t, err)
	assert.EqualValues(t, 0, empty)
}

func TestMarkAllReadValidatesReader(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor, InitialMessage: strPtr("hi")})
	require.NoError(t, err)

	_, err = f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, Reader: enums.SenderVendor, ReaderID: customer})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: uuid.New(), Reader: enums.SenderVendor})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	res, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, Reader: enums.SenderVendor})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Marked)
	assert.Equal(t, 0, res.Conversation.UnreadCount.Vendor)

	again, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, Reader: enums.SenderVendor, ReaderID: vendor})
	require.NoError(t, err)
	assert.EqualValues(t, 0, again.Marked)
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)
}

func TestStartOrGetConversationValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	same := uuid.New()

	cases := []StartInput{
		{VendorID: uuid.New()},
		{CustomerID: uuid.New()},
		{CustomerID: same, VendorID: same},
		{CustomerID: uuid.New(), VendorID: uuid.New(), InitialMessage: strPtr(strings.Repeat("x", MaxMessageLength+1))},
	}
	for i, input := range cases {
		_, err := f.svc.StartOrGetConversation(ctx, input)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestReconcileUnreadRepairsDriftedCounters(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()

	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor, InitialMessage: strPtr("hi")})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: vendor, SenderType: enums.SenderVendor, Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Conversation{}).
		Where("id = ?", started.Conversation.ID).
		Updates(map[string]any{"unread_customer": 9, "unread_vendor": 0}).Error)

	healthy, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: uuid.New(), VendorID: vendor, InitialMessage: strPtr("price?")})
	require.NoError(t, err)

	repaired, err := NewRepository(f.conn).ReconcileUnread(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, repaired, "only the drifted conversation is rewritten")
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)
	assertUnreadMatchesRows(t, f.conn, healthy.Conversation.ID)

	repaired, err = NewRepository(f.conn).ReconcileUnread(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestReconcileUnreadSkipsIdleConversations(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: uuid.New(), VendorID: uuid.New(), InitialMessage: strPtr("hi")})
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.Conversation{}).
		Where("id = ?", started.Conversation.ID).
		Updates(map[string]any{"unread_vendor": 4, "updated_at": time.Now().Add(-72 * time.Hour)}).Error)

	repaired, err := NewRepository(f.conn).ReconcileUnread(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, repaired)

	var conversation models.Conversation
	require.NoError(t, f.conn.Where("id = ?", started.Conversation.ID).First(&conversation).Error)
	assert.Equal(t, 4, conversation.UnreadVendor)
}

func TestReconcileUnreadAlongsideTrafficKeepsCounters(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor})
	require.NoError(t, err)
	repo := NewRepository(f.conn)

	const rounds = 10
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: vendor, SenderType: enums.SenderVendor, Text: fmt.Sprintf("v%d", i)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, ReaderID: customer, Reader: enums.SenderCustomer})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := repo.ReconcileUnread(ctx, time.Now().Add(-time.Hour))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)
}

func TestMarkAllReadConcurrentWithSendsKeepsCounters(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	customer, vendor := uuid.New(), uuid.New()
	started, err := f.svc.StartOrGetConversation(ctx, StartInput{CustomerID: customer, VendorID: vendor, InitialMessage: strPtr("hello")})
	require.NoError(t, err)

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendInput{ConversationID: started.Conversation.ID, SenderID: vendor, SenderType: enums.SenderVendor, Text: fmt.Sprintf("v%d", i)})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, ReaderID: customer, Reader: enums.SenderCustomer})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)

	res, err := f.svc.MarkAllRead(ctx, MarkReadInput{ConversationID: started.Conversation.ID, ReaderID: customer, Reader: enums.SenderCustomer})
	require.NoError(t, err)
	assert.Zero(t, res.Conversation.UnreadCount.Customer)
	assertUnreadMatchesRows(t, f.conn, started.Conversation.ID)

	var conversation models.Conversation
	require.NoError(t, f.conn.Where("id = ?", started.Conversation.ID).First(&conversation).Error)
	assert.EqualValues(t, rounds+1, conversation.MessageCount)
	assert.Equal(t, 1, conversation.UnreadVendor, "customer's opening message is still unread by the vendor")
}
