package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/types"
)

const (
	// DefaultCancelNote is recorded when a cancellation carries no reason.
	DefaultCancelNote = "Order cancelled by user"
	// CreatedNote seeds the status history of a new order.
	CreatedNote = "Order created"
	// DefaultRecentLimit is the number of orders returned by RecentOrders.
	DefaultRecentLimit = 10
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.ActorRoleAdmin }

// ProductLineInput is one requested line of a new order.
type ProductLineInput struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// CreateOrderInput carries the checkout payload.
type CreateOrderInput struct {
	ShippingAddress       types.ShippingAddress
	Products              []ProductLineInput
	ShippingFee           decimal.Decimal
	Tax                   decimal.Decimal
	Discount              decimal.Decimal
	ShippingMethodID      *string
	PaymentID             *string
	OrderNotes            *string
	PromoCode             *string
	EstimatedDeliveryDate time.Time
}

// UpdateStatusInput requests a guarded status transition.
type UpdateStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	Note           *string
	TrackingNumber *string
	Actor          Actor
}

// CancelInput cancels an order on behalf of Actor.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  *string
	Actor   Actor
}

// FinancialsInput adjusts the non-derived money fields of an order.
type FinancialsInput struct {
	OrderID     uuid.UUID
	ShippingFee *decimal.Decimal
	Tax         *decimal.Decimal
	Discount    *decimal.Decimal
	Actor       Actor
}

// ListFilters narrows the administrative order list.
type ListFilters struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	OrderNumber   string
	StartDate     *time.Time
	EndDate       *time.Time
	Params        pagination.Params
}

// StatsFilters bounds statistics to a created_at window.
type StatsFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// statsScope is the repository view of a stats query.
type statsScope struct {
	UserID    *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

// OrderItemDTO is one line of an order.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// StatusHistoryDTO is one audit entry.
type StatusHistoryDTO struct {
	Status      enums.OrderStatus `json:"status"`
	StatusLabel string            `json:"statusLabel"`
	Note        *string           `json:"note,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID                    uuid.UUID             `json:"id"`
	OrderNumber           string                `json:"orderNumber"`
	UserID                uuid.UUID             `json:"userId"`
	ShippingAddress       types.ShippingAddress `json:"shippingAddress"`
	Products              []OrderItemDTO        `json:"products"`
	TotalPrice            decimal.Decimal       `json:"totalPrice"`
	ShippingFee           decimal.Decimal       `json:"shippingFee"`
	Discount              decimal.Decimal       `json:"discount"`
	Tax                   decimal.Decimal       `json:"tax"`
	GrandTotal            decimal.Decimal       `json:"grandTotal"`
	Status                enums.OrderStatus     `json:"status"`
	StatusLabel           string                `json:"statusLabel"`
	PaymentStatus         enums.PaymentStatus   `json:"paymentStatus"`
	ShippingMethodID      *string               `json:"shippingMethodId,omitempty"`
	PaymentID             *string               `json:"paymentId,omitempty"`
	TrackingNumber        *string               `json:"trackingNumber,omitempty"`
	OrderNotes            *string               `json:"orderNotes,omitempty"`
	PromoCode             *string               `json:"promoCode,omitempty"`
	EstimatedDeliveryDate time.Time             `json:"estimatedDeliveryDate"`
	ActualDeliveryDate    *time.Time            `json:"actualDeliveryDate,omitempty"`
	StatusHistory         []StatusHistoryDTO    `json:"statusHistory"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
}

// OrderList is a page of orders.
type OrderList struct {
	Items      []OrderDTO          `json:"items"`
	Pagination pagination.PageInfo `json:"pagination"`
}

// OrderStats aggregates orders in a window. Revenue excludes cancelled orders.
type OrderStats struct {
	TotalOrders          int64           `json:"totalOrders"`
	OrderPlaced          int64           `json:"orderPlaced"`
	PreparingForShipment int64           `json:"preparingForShipment"`
	OutForDelivery       int64           `json:"outForDelivery"`
	Delivered            int64           `json:"delivered"`
	Cancelled            int64           `json:"cancelled"`
	TotalRevenue         decimal.Decimal `json:"totalRevenue"`
	AverageOrderValue    decimal.Decimal `json:"averageOrderValue"`
}

// UserOrderStats summarises one customer's orders.
type UserOrderStats struct {
	TotalOrders     int64           `json:"totalOrders"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	PendingOrders   int64           `json:"pendingOrders"`
	CompletedOrders int64           `json:"completedOrders"`
}

func toOrderDTO(m models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     item.Total,
		})
	}
	history := make([]StatusHistoryDTO, 0, len(m.StatusHistory))
	for _, entry := range m.StatusHistory {
		history = append(history, StatusHistoryDTO{
			Status:      entry.Status,
			StatusLabel: entry.Status.Label(),
			Note:        entry.Note,
			Timestamp:   entry.CreatedAt,
		})
	}
	return OrderDTO{
		ID:                    m.ID,
		OrderNumber:           m.OrderNumber,
		UserID:                m.UserID,
		ShippingAddress:       m.ShippingAddress,
		Products:              items,
		TotalPrice:            m.TotalPrice,
		ShippingFee:           m.ShippingFee,
		Discount:              m.Discount,
		Tax:                   m.Tax,
		GrandTotal:            m.GrandTotal,
		Status:                m.Status,
		StatusLabel:           m.Status.Label(),
		PaymentStatus:         m.PaymentStatus,
		ShippingMethodID:      m.ShippingMethodID,
		PaymentID:             m.PaymentID,
		TrackingNumber:        m.TrackingNumber,
		OrderNotes:            m.OrderNotes,
		PromoCode:             m.PromoCode,
		EstimatedDeliveryDate: m.EstimatedDeliveryDate,
		ActualDeliveryDate:    m.ActualDeliveryDate,
		StatusHistory:         history,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOrderDTO(row))
	}
	return out
}
