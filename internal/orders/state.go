package orders

import (
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	pkgerrors "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/errors"
)

// allowedTransitions is the complete order status graph. Delivered and
// cancelled are terminal.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPlaced:               {enums.OrderStatusPreparingForShipment, enums.OrderStatusCancelled},
	enums.OrderStatusPreparingForShipment: {enums.OrderStatusOutForDelivery, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery:       {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:            {},
	enums.OrderStatusCancelled:            {},
}

// CanTransition reports whether from -> to is in the status graph.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from current.
func NextStatuses(current enums.OrderStatus) []enums.OrderStatus {
	next := allowedTransitions[current]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// ValidateTransition returns a STATE_CONFLICT error for transitions outside
// the status graph.
func ValidateTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot transition from "+from.Label()+" to "+to.Label()).
		WithDetails(map[string]any{
			"from": from,
			"to":   to,
		})
}

// financialsEditable reports whether money fields may still be adjusted.
func financialsEditable(status enums.OrderStatus) bool {
	return status == enums.OrderStatusPlaced || status == enums.OrderStatusPreparingForShipment
}
