package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/presence"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	pkgredis "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/redis"
)

type chatEngine interface {
	SendMessage(ctx context.Context, input chat.SendInput) (*chat.SendResult, error)
	AuthorizeParticipant(ctx context.Context, conversationID, userID uuid.UUID) (*chat.ConversationDTO, error)
	MarkAllRead(ctx context.Context, input chat.MarkReadInput) (*chat.MarkReadResult, error)
}

type presenceRegistry interface {
	SetOnline(userID uuid.UUID, handle presence.Handle) bool
	SetOffline(handle presence.Handle) (uuid.UUID, bool)
	Count() int
}

type messageLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type gatewayMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SetOnlineUsers(n int)
	ObserveEvent(event, outcome string)
	IncDrop(event string)
}

// GatewayParams wires the realtime gateway.
type GatewayParams struct {
	Config   config.RealtimeConfig
	Chat     chatEngine
	Presence presenceRegistry
	Logger   *logger.Logger
	Metrics  gatewayMetrics

	// Limiter throttles message-send with the window HTTP sends use. Nil
	// disables throttling.
	Limiter   messageLimiter
	RateLimit config.RateLimitConfig
}

// Gateway upgrades authenticated requests to websocket connections and
// dispatches their events onto the conversation engine.
type Gateway struct {
	cfg      config.RealtimeConfig
	chat     chatEngine
	presence presenceRegistry
	logg     *logger.Logger
	metrics  gatewayMetrics
	hub      *Hub
	upgrader *websocket.Upgrader
	limiter  messageLimiter
	limits   config.RateLimitConfig

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
}

func NewGateway(params GatewayParams) (*Gateway, error) {
	if params.Chat == nil {
		return nil, fmt.Errorf("chat engine required")
	}
	if params.Presence == nil {
		return nil, fmt.Errorf("presence registry required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	g := &Gateway{
		cfg:      params.Config,
		chat:     params.Chat,
		presence: params.Presence,
		logg:     params.Logger,
		metrics:  params.Metrics,
		upgrader: NewUpgrader(params.Config),
		limiter:  params.Limiter,
		limits:   params.RateLimit,
	}
	g.hub = NewHub(g)
	return g, nil
}

// Hub exposes room membership, mainly for diagnostics.
func (g *Gateway) Hub() *Hub { return g.hub }

// Serve upgrades the request and blocks until the connection ends. The
// upgrader has already replied to the client when an error is returned.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, identity Identity) error {
	if identity.UserID == uuid.Nil || !identity.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "realtime connection requires an authenticated user")
	}
	if !g.begin() {
		return pkgerrors.New(pkgerrors.CodeDependency, "realtime gateway is shutting down")
	}
	defer g.sessions.Done()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(context.Background(), conn, identity, g.cfg.SendBuffer)
	ctx := context.WithoutCancel(r.Context())
	ctx = g.logg.WithConnectionID(ctx, client.id)
	ctx = g.logg.WithUserID(ctx, identity.UserID.String())
	ctx = g.logg.WithActorRole(ctx, string(identity.Role))
	client.ctx = ctx

	g.hub.register(client)
	if g.metrics != nil {
		g.metrics.ConnectionOpened()
	}
	g.logg.Info(ctx, "realtime connection opened")

	go client.writePump(g.cfg)
	readErr := client.readPump(g.cfg, g.dispatch)
	client.close()
	g.disconnect(client)

	if readErr != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", readErr.Error()), "realtime connection closed unexpectedly")
	} else {
		g.logg.Info(ctx, "realtime connection closed")
	}
	return nil
}

// begin admits a new session unless Shutdown has started.
func (g *Gateway) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.sessions.Add(1)
	return true
}

// Shutdown refuses new connections, closes the open ones and waits until
// every Serve call has returned.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		g.sessions.Wait()
		close(drained)
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		// sessions admitted just before closing may register late
		for _, c := range g.hub.Clients() {
			c.close()
		}
		select {
		case <-drained:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// IncDrop lets the hub report dropped frames through the gateway metrics.
func (g *Gateway) IncDrop(event string) {
	if g.metrics != nil {
		g.metrics.IncDrop(event)
	}
	g.logg.Warn(g.logg.WithField(context.Background(), "event", event), "realtime send buffer full, dropping connection")
}

func (g *Gateway) dispatch(c *Client, raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		g.reject(c, "malformed", err)
		return
	}

	switch frame.Event {
	case EventPresenceAnnounce:
		err = g.handleAnnounce(c, frame.Data)
	case EventRoomJoin:
		err = g.handleRoomJoin(c, frame.Data)
	case EventRoomLeave:
		err = g.handleRoomLeave(c, frame.Data)
	case EventMessageSend:
		err = g.handleSend(c, frame.Data)
	case EventTypingStart:
		err = g.handleTyping(c, frame.Data, true)
	case EventTypingStop:
		err = g.handleTyping(c, frame.Data, false)
	case EventMessagesMarkRead:
		err = g.handleMarkRead(c, frame.Data)
	default:
		g.reject(c, "unknown", pkgerrors.New(pkgerrors.CodeValidation, "unknown event "+frame.Event))
		return
	}
	if err != nil {
		g.reject(c, frame.Event, err)
		return
	}
	if g.metrics != nil {
		g.metrics.ObserveEvent(frame.Event, "ok")
	}
}

// reject answers the offending connection with message-error. The
// connection stays open.
func (g *Gateway) reject(c *Client, event string, err error) {
	if g.metrics != nil {
		g.metrics.ObserveEvent(event, "error")
	}
	logCtx := g.logg.WithFields(c.ctx, map[string]any{"event": event})
	if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal && typed.Code() != pkgerrors.CodeDependency {
		g.logg.Warn(g.logg.WithField(logCtx, "reason", typed.Message()), "realtime event rejected")
	} else {
		g.logg.Error(logCtx, "realtime event failed", err)
	}
	g.emit(c, EventMessageError, MessageError{Message: pkgerrors.Public(err)})
}

func (g *Gateway) handleAnnounce(c *Client, data json.RawMessage) error {
	var payload presencePayload
	if err := decodePayload(data, &payload, &payload.UserID); err != nil {
		return err
	}
	if err := c.requireSelf(payload.UserID, "userId"); err != nil {
		return err
	}
	userID := c.identity.UserID
	g.hub.Join(userRoom(userID), c)
	wentOnline := g.presence.SetOnline(userID, c.handle())
	g.publishOnlineCount()
	if wentOnline {
		g.broadcastAll(EventUserStatus, UserStatus{UserID: userID, Status: StatusOnline}, c)
	}
	return nil
}

func (g *Gateway) handleRoomJoin(c *Client, data json.RawMessage) error {
	var payload roomPayload
	if err := decodePayload(data, &payload, &payload.ConversationID); err != nil {
		return err
	}
	conversationID, err := parseID(payload.ConversationID, "conversationId")
	if err != nil {
		return err
	}
	if _, err := g.chat.AuthorizeParticipant(c.ctx, conversationID, c.identity.UserID); err != nil {
		return err
	}
	g.hub.Join(conversationRoom(conversationID), c)
	return nil
}

func (g *Gateway) handleRoomLeave(c *Client, data json.RawMessage) error {
	var payload roomPayload
	if err := decodePayload(data, &payload, &payload.ConversationID); err != nil {
		return err
	}
	conversationID, err := parseID(payload.ConversationID, "conversationId")
	if err != nil {
		return err
	}
	g.hub.Leave(conversationRoom(conversationID), c)
	return nil
}

func (g *Gateway) handleSend(c *Client, data json.RawMessage) error {
	var payload sendPayload
	if err := decodePayload(data, &payload, nil); err != nil {
		return err
	}
	conversationID, err := parseID(payload.ConversationID, "conversationId")
	if err != nil {
		return err
	}
	if err := c.requireSelf(payload.SenderID, "senderId"); err != nil {
		return err
	}
	senderType, err := c.senderType(payload.SenderType)
	if err != nil {
		return err
	}
	if err := g.allowSend(c); err != nil {
		return err
	}

	result, err := g.chat.SendMessage(c.ctx, chat.SendInput{
		ConversationID: conversationID,
		SenderID:       c.identity.UserID,
		SenderType:     senderType,
		Text:           payload.Message,
	})
	if err != nil {
		return err
	}

	g.PublishMessage(result)
	return nil
}

// allowSend charges one message against the sender's chat window.
func (g *Gateway) allowSend(c *Client) error {
	window, limit := g.limits.ChatMessageWindow, g.limits.ChatMessageLimit
	if g.limiter == nil || window <= 0 || limit <= 0 {
		return nil
	}
	scope := pkgredis.UserRateLimitScope(pkgredis.RateLimitChatMessage, c.identity.UserID.String())
	allowed, _, err := g.limiter.FixedWindowAllow(c.ctx, scope, int64(limit), window)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting")
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded")
	}
	return nil
}

// PublishMessage fans an appended message out to the conversation room and
// refreshes the recipient's unread counter. HTTP sends use it too.
func (g *Gateway) PublishMessage(result *chat.SendResult) {
	if result == nil {
		return
	}
	conversationID := result.Conversation.ID
	g.broadcast(conversationRoom(conversationID), EventMessageReceive, MessageReceive{
		ConversationID:  conversationID,
		Message:         result.Message,
		LastMessage:     result.Conversation.LastMessage,
		LastMessageTime: result.Conversation.LastMessageTime,
	}, nil)
	recipient := result.Message.SenderType.Counterpart()
	g.broadcast(userRoom(result.RecipientID()), EventUnreadUpdate, UnreadUpdate{
		ConversationID: conversationID,
		UnreadCount:    result.Conversation.UnreadCount.For(recipient),
	}, nil)
}

func (g *Gateway) handleTyping(c *Client, data json.RawMessage, typing bool) error {
	var payload typingPayload
	if err := decodePayload(data, &payload, nil); err != nil {
		return err
	}
	conversationID, err := parseID(payload.ConversationID, "conversationId")
	if err != nil {
		return err
	}
	if err := c.requireSelf(payload.UserID, "userId"); err != nil {
		return err
	}
	userType, err := c.senderType(payload.UserType)
	if err != nil {
		return err
	}
	room := conversationRoom(conversationID)
	if !g.hub.InRoom(room, c) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "join the conversation before sending typing updates")
	}
	g.broadcast(room, EventTypingUpdate, TypingUpdate{
		ConversationID: conversationID,
		UserID:         c.identity.UserID,
		UserType:       userType,
		IsTyping:       typing,
	}, c)
	return nil
}

func (g *Gateway) handleMarkRead(c *Client, data json.RawMessage) error {
	var payload markReadPayload
	if err := decodePayload(data, &payload, &payload.ConversationID); err != nil {
		return err
	}
	conversationID, err := parseID(payload.ConversationID, "conversationId")
	if err != nil {
		return err
	}
	reader, err := c.senderType(payload.UserType)
	if err != nil {
		return err
	}
	result, err := g.chat.MarkAllRead(c.ctx, chat.MarkReadInput{
		ConversationID: conversationID,
		Reader:         reader,
		ReaderID:       c.identity.UserID,
	})
	if err != nil {
		return err
	}
	g.publishRead(result, reader, c)
	return nil
}

// PublishRead tells the other participant that reader caught up and resets
// the reader's unread counter on their own connections.
func (g *Gateway) PublishRead(result *chat.MarkReadResult, reader enums.SenderType) {
	g.publishRead(result, reader, nil)
}

func (g *Gateway) publishRead(result *chat.MarkReadResult, reader enums.SenderType, skip *Client) {
	if result == nil {
		return
	}
	conversationID := result.Conversation.ID
	g.broadcast(conversationRoom(conversationID), EventMessagesRead, MessagesRead{
		ConversationID: conversationID,
		ReadBy:         reader,
	}, skip)
	g.broadcast(userRoom(result.Conversation.ParticipantFor(reader)), EventUnreadUpdate, UnreadUpdate{
		ConversationID: conversationID,
		UnreadCount:    result.Conversation.UnreadCount.For(reader),
	}, nil)
}

func (g *Gateway) disconnect(c *Client) {
	g.hub.unregister(c)
	userID, wentOffline := g.presence.SetOffline(c.handle())
	if wentOffline {
		g.broadcastAll(EventUserStatus, UserStatus{UserID: userID, Status: StatusOffline}, nil)
	}
	g.publishOnlineCount()
	if g.metrics != nil {
		g.metrics.ConnectionClosed()
	}
}

func (g *Gateway) publishOnlineCount() {
	if g.metrics != nil {
		g.metrics.SetOnlineUsers(g.presence.Count())
	}
}

func (g *Gateway) emit(c *Client, event string, data any) {
	payload, ok := g.encode(event, data)
	if ok {
		g.hub.Send(c, event, payload)
	}
}

func (g *Gateway) broadcast(room, event string, data any, skip *Client) {
	payload, ok := g.encode(event, data)
	if ok {
		g.hub.Broadcast(room, event, payload, skip)
	}
}

func (g *Gateway) broadcastAll(event string, data any, skip *Client) {
	payload, ok := g.encode(event, data)
	if ok {
		g.hub.BroadcastAll(event, payload, skip)
	}
}

func (g *Gateway) encode(event string, data any) ([]byte, bool) {
	payload, err := encodeFrame(event, data)
	if err != nil {
		g.logg.Error(g.logg.WithField(context.Background(), "event", event), "encode realtime frame", err)
		return nil, false
	}
	return payload, true
}

// requireSelf rejects payload identities that differ from the session. An
// empty value defaults to the session user.
func (c *Client) requireSelf(raw, field string) error {
	if raw == "" {
		return nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return err
	}
	if id != c.identity.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, field+" does not match the authenticated user")
	}
	return nil
}

// senderType resolves the conversation side of the session, checking any
// value the client supplied against it.
func (c *Client) senderType(raw string) (enums.SenderType, error) {
	side, ok := c.identity.Role.SenderType()
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only customers and vendors can chat")
	}
	if raw == "" {
		return side, nil
	}
	requested, err := enums.ParseSenderType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sender type")
	}
	if requested != side {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "sender type does not match the authenticated role")
	}
	return side, nil
}
