package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks where an order is in its fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPlaced               OrderStatus = "order_placed"
	OrderStatusPreparingForShipment OrderStatus = "preparing_for_shipment"
	OrderStatusOutForDelivery       OrderStatus = "out_for_delivery"
	OrderStatusDelivered            OrderStatus = "delivered"
	OrderStatusCancelled            OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusPreparingForShipment,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPlaced:               "Order Placed",
	OrderStatusPreparingForShipment: "Preparing for Shipment",
	OrderStatusOutForDelivery:       "Out for Delivery",
	OrderStatusDelivered:            "Delivered",
	OrderStatusCancelled:            "Cancelled",
}

// OrderStatuses returns the statuses in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// Label returns the customer facing name of the status.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsPending reports whether the order is still moving towards delivery.
func (s OrderStatus) IsPending() bool {
	return s == OrderStatusPlaced || s == OrderStatusPreparingForShipment || s == OrderStatusOutForDelivery
}

// ParseOrderStatus accepts either the stored value or the label ("Order Placed").
func ParseOrderStatus(value string) (OrderStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validOrderStatuses {
		if string(candidate) == trimmed || strings.EqualFold(orderStatusLabels[candidate], trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
