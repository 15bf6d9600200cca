package orders

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/responses"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/api/validators"
	internalorders "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/internal/orders"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/logger"
)

const maxRecentLimit = 50

type updateStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	Note           *string `json:"note" validate:"omitempty,max=500"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitempty,max=100"`
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

type updateFinancialsRequest struct {
	ShippingFee *decimal.Decimal `json:"shippingFee"`
	Tax         *decimal.Decimal `json:"tax"`
	Discount    *decimal.Decimal `json:"discount"`
}

// AdminList pages through every order with optional filters.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, list.Items, list.Pagination)
	}
}

// AdminStats aggregates orders created inside an optional window.
func AdminStats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := validators.ParseQueryTime(r, "startDate", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "endDate", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.GetOrderStats(r.Context(), internalorders.StatsFilters{StartDate: start, EndDate: end})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminRecent returns the newest orders.
func AdminRecent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", internalorders.DefaultRecentLimit, 1, maxRecentLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.RecentOrders(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// AdminUpdateStatus applies a guarded status transition.
func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]any{"field": "status", "allowed": enums.OrderStatuses()}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:        orderID,
			Status:         status,
			Note:           req.Note,
			TrackingNumber: req.TrackingNumber,
			Actor:          actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Order status updated successfully", order)
	}
}

// AdminUpdatePaymentStatus overwrites the payment status.
func AdminUpdatePaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updatePaymentStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(req.PaymentStatus))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status").
				WithDetails(map[string]any{"field": "paymentStatus"}))
			return
		}

		order, err := svc.UpdatePaymentStatus(r.Context(), orderID, status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Payment status updated successfully", order)
	}
}

// AdminUpdateFinancials adjusts shipping fee, tax and discount.
func AdminUpdateFinancials(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req updateFinancialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateFinancials(r.Context(), internalorders.FinancialsInput{
			OrderID:     orderID,
			ShippingFee: req.ShippingFee,
			Tax:         req.Tax,
			Discount:    req.Discount,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Order financials updated successfully", order)
	}
}

// AdminDelete removes an order with its items and history.
func AdminDelete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		deleted, err := svc.DeleteOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !deleted {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccessMessage(w, http.StatusOK, "Order deleted successfully", nil)
	}
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	params, err := validators.ParsePage(r)
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	status, err := parseStatusQuery(r, "status")
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	paymentStatus, err := parsePaymentStatusQuery(r, "paymentStatus")
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	userID, err := validators.ParseQueryUUID(r, "userId")
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	start, err := validators.ParseQueryTime(r, "startDate", false)
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	end, err := validators.ParseQueryTime(r, "endDate", true)
	if err != nil {
		return internalorders.ListFilters{}, err
	}
	return internalorders.ListFilters{
		UserID:        userID,
		Status:        status,
		PaymentStatus: paymentStatus,
		OrderNumber:   strings.TrimSpace(r.URL.Query().Get("orderNumber")),
		StartDate:     start,
		EndDate:       end,
		Params:        params,
	}, nil
}
