package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/middleware"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/responses"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/validators"
	internalorders "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/types"
)

type productLineRequest struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Price     decimal.Decimal `json:"price"`
}

type createOrderRequest struct {
	ShippingAddress       types.ShippingAddress `json:"shippingAddress"`
	Products              []productLineRequest  `json:"products" validate:"required,min=1,dive"`
	ShippingFee           decimal.Decimal       `json:"shippingFee"`
	Tax                   decimal.Decimal       `json:"tax"`
	Discount              decimal.Decimal       `json:"discount"`
	ShippingMethodID      *string               `json:"shippingMethodId" validate:"omitempty,max=100"`
	PaymentID             *string               `json:"paymentId" validate:"omitempty,max=100"`
	OrderNotes            *string               `json:"orderNotes" validate:"omitempty,max=1000"`
	PromoCode             *string               `json:"promoCode" validate:"omitempty,max=50"`
	EstimatedDeliveryDate time.Time             `json:"estimatedDeliveryDate"`
}

func (r createOrderRequest) toInput() internalorders.CreateOrderInput {
	lines := make([]internalorders.ProductLineInput, 0, len(r.Products))
	for _, p := range r.Products {
		lines = append(lines, internalorders.ProductLineInput{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price,
		})
	}
	return internalorders.CreateOrderInput{
		ShippingAddress:       r.ShippingAddress,
		Products:              lines,
		ShippingFee:           r.ShippingFee,
		Tax:                   r.Tax,
		Discount:              r.Discount,
		ShippingMethodID:      r.ShippingMethodID,
		PaymentID:             r.PaymentID,
		OrderNotes:            r.OrderNotes,
		PromoCode:             r.PromoCode,
		EstimatedDeliveryDate: r.EstimatedDeliveryDate,
	}
}

type cancelRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// Create places an order for the authenticated customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), actor.UserID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusCreated, "Order created successfully", order)
	}
}

// MyOrders lists the caller's orders newest first, optionally by status.
func MyOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := parseStatusQuery(r, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListUserOrders(r.Context(), actor.UserID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// MyStats summarises the caller's orders.
func MyStats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.GetUserOrderStats(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Track looks an order up by its public number.
func Track(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrderByNumber(r.Context(), chi.URLParam(r, "orderNumber"), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Detail returns one order visible to the caller.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel cancels an order on behalf of its owner or an admin.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Reason:  req.Reason,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Order cancelled successfully", order)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return internalorders.Actor{UserID: identity.UserID, Role: identity.Role}, nil
}

func parseStatusQuery(r *http.Request, key string) (*enums.OrderStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").WithDetails(map[string]any{"field": key})
	}
	return &status, nil
}

func parsePaymentStatusQuery(r *http.Request, key string) (*enums.PaymentStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParsePaymentStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").WithDetails(map[string]any{"field": key})
	}
	return &status, nil
}
