package chat

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/middleware"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/responses"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/validators"
	internalchat "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/chat"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

// Broadcaster pushes HTTP-originated chat activity to live sockets.
type Broadcaster interface {
	PublishMessage(result *internalchat.SendResult)
	PublishRead(result *internalchat.MarkReadResult, reader enums.SenderType)
}

type startRequest struct {
	VendorID       uuid.UUID  `json:"vendorId"`
	ProductID      *uuid.UUID `json:"productId"`
	InitialMessage *string    `json:"initialMessage" validate:"omitempty,max=5000"`
}

type sendRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

type unreadResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

// Start opens or reuses the caller's conversation with a vendor.
func Start(svc internalchat.Service, broadcaster Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, role, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if role != enums.SenderCustomer {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can start a conversation"))
			return
		}

		var req startRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartOrGetConversation(r.Context(), internalchat.StartInput{
			CustomerID:     identity.UserID,
			VendorID:       req.VendorID,
			ProductID:      req.ProductID,
			InitialMessage: req.InitialMessage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.Message != nil && broadcaster != nil {
			broadcaster.PublishMessage(&internalchat.SendResult{Conversation: result.Conversation, Message: *result.Message})
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessMessage(w, status, "Conversation started successfully", result)
	}
}

// List pages through the caller's conversations, most recent activity first.
func List(svc internalchat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, role, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListConversations(r.Context(), identity.UserID, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Items, list.Pagination)
	}
}

// Detail returns a conversation with one page of history.
func Detail(svc internalchat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", internalchat.DefaultHistoryLimit, 1, internalchat.MaxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		before, err := validators.ParseQueryInt64(r, "before")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetConversation(r.Context(), conversationID, identity.UserID, internalchat.HistoryParams{
			Limit:  limit,
			Before: before,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Send appends a message as the caller and fans it out to open sockets.
func Send(svc internalchat.Service, broadcaster Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, role, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req sendRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SendMessage(r.Context(), internalchat.SendInput{
			ConversationID: conversationID,
			SenderID:       identity.UserID,
			SenderType:     role,
			Text:           req.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if broadcaster != nil {
			broadcaster.PublishMessage(result)
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Message sent successfully", result)
	}
}

// MarkRead marks every message from the other participant read.
func MarkRead(svc internalchat.Service, broadcaster Broadcaster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, role, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkAllRead(r.Context(), internalchat.MarkReadInput{
			ConversationID: conversationID,
			Reader:         role,
			ReaderID:       identity.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if broadcaster != nil {
			broadcaster.PublishRead(result, role)
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Messages marked as read", result)
	}
}

// Unread returns the caller's unread total across conversations.
func Unread(svc internalchat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, role, err := participant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		total, err := svc.GetUnreadTotal(r.Context(), identity.UserID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Unread count fetched successfully", unreadResponse{UnreadCount: total})
	}
}

// participant resolves the caller and the chat role their session carries.
func participant(r *http.Request) (middleware.Identity, enums.SenderType, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return middleware.Identity{}, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	role, ok := identity.Role.SenderType()
	if !ok {
		return middleware.Identity{}, "", pkgerrors.New(pkgerrors.CodeForbidden, "only customers and vendors can chat")
	}
	return identity, role, nil
}
