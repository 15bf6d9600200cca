package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

// Repository defines persistence operations for orders, items and history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]models.Order, int64, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error)
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusEntry) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, scope statsScope) (map[enums.OrderStatus]int64, error)
	SumRevenue(ctx context.Context, scope statsScope) (decimal.Decimal, int64, error)
}

// Service is the order lifecycle engine.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDTO, error)
	GetOrderByNumber(ctx context.Context, orderNumber string, actor Actor) (*OrderDTO, error)
	ListOrders(ctx context.Context, filters ListFilters) (*OrderList, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]OrderDTO, error)
	RecentOrders(ctx context.Context, limit int) ([]OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, input CancelInput) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, actor Actor) (*OrderDTO, error)
	UpdateFinancials(ctx context.Context, input FinancialsInput) (*OrderDTO, error)
	GetOrderStats(ctx context.Context, filters StatsFilters) (*OrderStats, error)
	GetUserOrderStats(ctx context.Context, userID uuid.UUID) (*UserOrderStats, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (bool, error)
}
