package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/types"
)

// Order is a customer purchase with its fulfilment and payment state.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           string                `gorm:"column:order_number;not null"`
	UserID                uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	ShippingAddress       types.ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	TotalPrice            decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	ShippingFee           decimal.Decimal       `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Discount              decimal.Decimal       `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax                   decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null"`
	GrandTotal            decimal.Decimal       `gorm:"column:grand_total;type:numeric(12,2);not null"`
	Status                enums.OrderStatus     `gorm:"column:status;not null"`
	PaymentStatus         enums.PaymentStatus   `gorm:"column:payment_status;not null"`
	ShippingMethodID      *string               `gorm:"column:shipping_method_id"`
	PaymentID             *string               `gorm:"column:payment_id"`
	TrackingNumber        *string               `gorm:"column:tracking_number"`
	OrderNotes            *string               `gorm:"column:order_notes"`
	PromoCode             *string               `gorm:"column:promo_code"`
	EstimatedDeliveryDate time.Time             `gorm:"column:estimated_delivery_date;not null"`
	ActualDeliveryDate    *time.Time            `gorm:"column:actual_delivery_date"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Items         []OrderItem        `gorm:"foreignKey:OrderID"`
	StatusHistory []OrderStatusEntry `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	Position  int             `gorm:"column:position;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusEntry is an append-only history row. Position orders the log
// independently of wall-clock time.
type OrderStatusEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	Position  int               `gorm:"column:position;not null"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
}

func (OrderStatusEntry) TableName() string { return "order_status_history" }
