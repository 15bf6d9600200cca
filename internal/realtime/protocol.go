package realtime

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
)

// Inbound events.
const (
	EventPresenceAnnounce = "presence-announce"
	EventRoomJoin         = "room-join"
	EventRoomLeave        = "room-leave"
	EventMessageSend      = "message-send"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"
	EventMessagesMarkRead = "messages-mark-read"
)

// Outbound events.
const (
	EventMessageReceive = "message-receive"
	EventUnreadUpdate   = "unread-update"
	EventTypingUpdate   = "typing-update"
	EventMessagesRead   = "messages-read"
	EventMessageError   = "message-error"
	EventUserStatus     = "user-status"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type presencePayload struct {
	UserID string `json:"userId"`
}

type roomPayload struct {
	ConversationID string `json:"conversationId"`
}

type sendPayload struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderType     string `json:"senderType"`
	Message        string `json:"message"`
}

type typingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserType       string `json:"userType"`
}

type markReadPayload struct {
	ConversationID string `json:"conversationId"`
	UserType       string `json:"userType"`
}

// MessageReceive is pushed to a conversation room after an append.
type MessageReceive struct {
	ConversationID  uuid.UUID       `json:"conversationId"`
	Message         chat.MessageDTO `json:"message"`
	LastMessage     *string         `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time      `json:"lastMessageTime,omitempty"`
}

// UnreadUpdate is pushed to a user room when that user's counter changes.
type UnreadUpdate struct {
	ConversationID uuid.UUID `json:"conversationId"`
	UnreadCount    int       `json:"unreadCount"`
}

type TypingUpdate struct {
	ConversationID uuid.UUID        `json:"conversationId"`
	UserID         uuid.UUID        `json:"userId"`
	UserType       enums.SenderType `json:"userType"`
	IsTyping       bool             `json:"isTyping"`
}

type MessagesRead struct {
	ConversationID uuid.UUID        `json:"conversationId"`
	ReadBy         enums.SenderType `json:"readBy"`
}

type MessageError struct {
	Message string `json:"message"`
}

type UserStatus struct {
	UserID uuid.UUID `json:"userId"`
	Status string    `json:"status"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// decodeFrame parses an inbound frame. A frame without an event name is
// malformed.
func decodeFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed frame")
	}
	frame.Event = strings.TrimSpace(frame.Event)
	if frame.Event == "" {
		return Frame{}, pkgerrors.New(pkgerrors.CodeValidation, "malformed frame")
	}
	return frame, nil
}

// decodePayload unmarshals data into dst. Clients may send a bare JSON string
// for single-id events; shorthand receives it in that case.
func decodePayload(data json.RawMessage, dst any, shorthand *string) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' && shorthand != nil {
		if err := json.Unmarshal(trimmed, shorthand); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed payload")
		}
		return nil
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed payload")
	}
	return nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a valid uuid")
	}
	return id, nil
}

func conversationRoom(id uuid.UUID) string { return "conversation:" + id.String() }

func userRoom(id uuid.UUID) string { return "user:" + id.String() }
