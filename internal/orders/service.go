package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

const (
	maxOrderNumberAttempts = 5
	moneyPlaces            = 2

	// MaxQuantity bounds a single order line.
	MaxQuantity = 10000
)

// MaxAmount is the largest value a numeric(12,2) money column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMetrics interface {
	IncCreated()
	IncTransition(from, to string)
}

// ServiceParams wires the order lifecycle engine.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Metrics    orderMetrics
	Numbers    NumberGenerator
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics orderMetrics
	numbers NumberGenerator
	now     func() time.Time
}

// NewService builds the order lifecycle engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	numbers := params.Numbers
	if numbers == nil {
		numbers = NewOrderNumber
	}
	return &service{
		repo:    params.Repository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		numbers: numbers,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	address := input.ShippingAddress.Trimmed()
	if missing := address.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if len(input.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one product")
	}
	if input.EstimatedDeliveryDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery date required")
	}
	for name, amount := range map[string]decimal.Decimal{
		"shippingFee": input.ShippingFee,
		"tax":         input.Tax,
		"discount":    input.Discount,
	} {
		if err := amountError(name, amount); err != nil {
			return nil, err
		}
	}

	items := make([]models.OrderItem, 0, len(input.Products))
	totalPrice := decimal.Zero
	for i, line := range input.Products {
		if line.ProductID == uuid.Nil {
			return nil, lineError(i, "product id required")
		}
		if line.Quantity < 1 {
			return nil, lineError(i, "quantity must be at least 1")
		}
		if line.Quantity > MaxQuantity {
			return nil, lineError(i, fmt.Sprintf("quantity must be at most %d", MaxQuantity))
		}
		if line.Price.IsNegative() {
			return nil, lineError(i, "price must not be negative")
		}
		price := line.Price.Round(moneyPlaces)
		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(moneyPlaces)
		if lineTotal.GreaterThan(MaxAmount) {
			return nil, lineError(i, "line total exceeds the maximum amount")
		}
		totalPrice = totalPrice.Add(lineTotal)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			Position:  i,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
			Total:     lineTotal,
		})
	}
	shippingFee := input.ShippingFee.Round(moneyPlaces)
	tax := input.Tax.Round(moneyPlaces)
	discount := input.Discount.Round(moneyPlaces)
	grandTotal := GrandTotal(totalPrice, shippingFee, tax, discount)
	if grandTotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total")
	}
	if err := amountError("totalPrice", totalPrice); err != nil {
		return nil, err
	}
	if err := amountError("grandTotal", grandTotal); err != nil {
		return nil, err
	}

	actor := &outbox.ActorRef{UserID: userID, Role: string(enums.ActorRoleCustomer)}
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		now := s.now()
		orderID := uuid.New()
		for i := range items {
			items[i].OrderID = orderID
		}
		order := &models.Order{
			ID:                    orderID,
			OrderNumber:           s.numbers(now),
			UserID:                userID,
			ShippingAddress:       address,
			TotalPrice:            totalPrice,
			ShippingFee:           shippingFee,
			Discount:              discount,
			Tax:                   tax,
			GrandTotal:            grandTotal,
			Status:                enums.OrderStatusPlaced,
			PaymentStatus:         enums.PaymentStatusPending,
			ShippingMethodID:      trimmedOrNil(input.ShippingMethodID),
			PaymentID:             trimmedOrNil(input.PaymentID),
			OrderNotes:            trimmedOrNil(input.OrderNotes),
			PromoCode:             upperOrNil(input.PromoCode),
			EstimatedDeliveryDate: input.EstimatedDeliveryDate.UTC(),
			CreatedAt:             now,
			UpdatedAt:             now,
			Items:                 items,
			StatusHistory: []models.OrderStatusEntry{{
				ID:        uuid.New(),
				OrderID:   orderID,
				Status:    enums.OrderStatusPlaced,
				Note:      strPtr(CreatedNote),
				CreatedAt: now,
			}},
		}

		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				OccurredAt:    now,
				Data: payloads.OrderCreatedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      userID,
					ItemCount:   len(items),
					GrandTotal:  grandTotal,
					CreatedAt:   now,
				},
			})
		})
		if err == nil {
			if s.metrics != nil {
				s.metrics.IncCreated()
			}
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Info(s.logg.WithField(logCtx, "order_number", order.OrderNumber), "order created")
			dto := toOrderDTO(*order)
			return &dto, nil
		}
		if !db.IsUniqueViolation(err, "order_number") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, regenerating")
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if !canView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) GetOrderByNumber(ctx context.Context, orderNumber string, actor Actor) (*OrderDTO, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, orderLoadError(err)
	}
	if !canView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, filters ListFilters) (*OrderList, error) {
	if err := validateWindow(filters.StartDate, filters.EndDate); err != nil {
		return nil, err
	}
	filters.Params = filters.Params.Normalize()
	rows, total, err := s.repo.ListOrders(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderList{
		Items:      toOrderDTOs(rows),
		Pagination: pagination.NewPageInfo(filters.Params, total),
	}, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListUserOrders(ctx, userID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user orders")
	}
	return toOrderDTOs(rows), nil
}

func (s *service) RecentOrders(ctx context.Context, limit int) ([]OrderDTO, error) {
	rows, err := s.repo.RecentOrders(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
	}
	return toOrderDTOs(rows), nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var (
		result *OrderDTO
		from   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return orderLoadError(err)
		}
		from = order.Status
		dto, err := s.applyTransition(ctx, tx, repo, order, input.Status, trimmedOrNil(input.Note), trimmedOrNil(input.TrackingNumber), input.Actor)
		if err != nil {
			return err
		}
		result = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, result, from)
	return result, nil
}

func (s *service) CancelOrder(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		result *OrderDTO
		from   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return orderLoadError(err)
		}
		if !canView(order, input.Actor) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		switch order.Status {
		case enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
		case enums.OrderStatusDelivered:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel a delivered order")
		}
		note := trimmedOrNil(input.Reason)
		if note == nil {
			note = strPtr(DefaultCancelNote)
		}
		from = order.Status
		dto, err := s.applyTransition(ctx, tx, repo, order, enums.OrderStatusCancelled, note, nil, input.Actor)
		if err != nil {
			return err
		}
		result = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(ctx, result, from)
	return result, nil
}

// applyTransition moves a locked order to status, appends history and emits
// the change event. The order is left untouched when the move is not allowed.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, status enums.OrderStatus, note, trackingNumber *string, actor Actor) (*OrderDTO, error) {
	if err := ValidateTransition(order.Status, status); err != nil {
		return nil, err
	}
	now := s.now()
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}
	if status == enums.OrderStatusDelivered && order.ActualDeliveryDate == nil {
		updates["actual_delivery_date"] = now
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	entry := &models.OrderStatusEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    status,
		Note:      note,
		CreatedAt: now,
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	event := payloads.OrderStatusChangedEvent{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		From:           order.Status,
		To:             status,
		TrackingNumber: trackingNumber,
		ChangedAt:      now,
	}
	if note != nil {
		event.Note = *note
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data:          event,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
	}

	return s.reload(ctx, repo, order.ID)
}

func (s *service) recordTransition(ctx context.Context, order *OrderDTO, from enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(order.Status))
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": order.Status})
	s.logg.Info(logCtx, "order status changed")
}

func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor Actor) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return orderLoadError(err)
		}
		now := s.now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": status,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderPaymentStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				From:        order.PaymentStatus,
				To:          status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment status change")
		}
		result, err = s.reload(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateFinancials(ctx context.Context, input FinancialsInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ShippingFee == nil && input.Tax == nil && input.Discount == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one of shippingFee, tax, discount required")
	}

	var result *OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return orderLoadError(err)
		}
		if !financialsEditable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "financials can only change before the order ships").
				WithDetails(map[string]any{"status": order.Status})
		}
		shippingFee, err := pickAmount("shippingFee", input.ShippingFee, order.ShippingFee)
		if err != nil {
			return err
		}
		tax, err := pickAmount("tax", input.Tax, order.Tax)
		if err != nil {
			return err
		}
		discount, err := pickAmount("discount", input.Discount, order.Discount)
		if err != nil {
			return err
		}
		grandTotal := GrandTotal(order.TotalPrice, shippingFee, tax, discount)
		if grandTotal.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total")
		}
		if err := amountError("grandTotal", grandTotal); err != nil {
			return err
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"shipping_fee": shippingFee,
			"tax":          tax,
			"discount":     discount,
			"grand_total":  grandTotal,
			"updated_at":   s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order financials")
		}
		result, err = s.reload(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetOrderStats(ctx context.Context, filters StatsFilters) (*OrderStats, error) {
	if err := validateWindow(filters.StartDate, filters.EndDate); err != nil {
		return nil, err
	}
	scope := statsScope{StartDate: filters.StartDate, EndDate: filters.EndDate}
	counts, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders by status")
	}
	revenue, paidOrders, err := s.repo.SumRevenue(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum order revenue")
	}

	stats := &OrderStats{
		OrderPlaced:          counts[enums.OrderStatusPlaced],
		PreparingForShipment: counts[enums.OrderStatusPreparingForShipment],
		OutForDelivery:       counts[enums.OrderStatusOutForDelivery],
		Delivered:            counts[enums.OrderStatusDelivered],
		Cancelled:            counts[enums.OrderStatusCancelled],
		TotalRevenue:         revenue.Round(moneyPlaces),
		AverageOrderValue:    decimal.Zero,
	}
	for _, count := range counts {
		stats.TotalOrders += count
	}
	if paidOrders > 0 {
		stats.AverageOrderValue = revenue.Div(decimal.NewFromInt(paidOrders)).Round(moneyPlaces)
	}
	return stats, nil
}

func (s *service) GetUserOrderStats(ctx context.Context, userID uuid.UUID) (*UserOrderStats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	scope := statsScope{UserID: &userID}
	counts, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count user orders")
	}
	spent, _, err := s.repo.SumRevenue(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum user spend")
	}
	stats := &UserOrderStats{
		TotalSpent:      spent.Round(moneyPlaces),
		CompletedOrders: counts[enums.OrderStatusDelivered],
	}
	for status, count := range counts {
		stats.TotalOrders += count
		if status.IsPending() {
			stats.PendingOrders += count
		}
	}
	return stats, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	existed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		existed = true
		now := s.now()
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderDeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				DeletedAt:   now,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if existed {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order deleted")
	}
	return existed, nil
}

func (s *service) reload(ctx context.Context, repo Repository, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

// GrandTotal is totalPrice + shippingFee + tax - discount at two decimals.
func GrandTotal(totalPrice, shippingFee, tax, discount decimal.Decimal) decimal.Decimal {
	return totalPrice.Add(shippingFee).Add(tax).Sub(discount).Round(moneyPlaces)
}

// canView hides other customers' orders. Admins see everything.
func canView(order *models.Order, actor Actor) bool {
	if actor.isAdmin() {
		return true
	}
	return actor.UserID != uuid.Nil && order.UserID == actor.UserID
}

func orderLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func validateWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "endDate must not be before startDate")
	}
	return nil
}

func pickAmount(name string, candidate *decimal.Decimal, current decimal.Decimal) (decimal.Decimal, error) {
	if candidate == nil {
		return current, nil
	}
	if err := amountError(name, *candidate); err != nil {
		return decimal.Zero, err
	}
	return candidate.Round(moneyPlaces), nil
}

func amountError(name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, name+" must not be negative")
	}
	if amount.Round(moneyPlaces).GreaterThan(MaxAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, name+" exceeds the maximum amount").
			WithDetails(map[string]any{"max": MaxAmount.StringFixed(moneyPlaces)})
	}
	return nil
}

func lineError(index int, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"productIndex": index})
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func upperOrNil(value *string) *string {
	trimmed := trimmedOrNil(value)
	if trimmed == nil {
		return nil
	}
	upper := strings.ToUpper(*trimmed)
	return &upper
}

func strPtr(value string) *string { return &value }
