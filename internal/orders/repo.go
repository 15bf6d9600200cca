package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/db/models"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its items and history rows.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withDetails(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.withDetails(ctx).Where("order_number = ?", NormalizeOrderNumber(orderNumber)).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, filters ListFilters) ([]models.Order, int64, error) {
	params := filters.Params.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.OrderNumber != "" {
		query = query.Where("order_number = ?", NormalizeOrderNumber(filters.OrderNumber))
	}
	query = applyDateWindow(query, filters.StartDate, filters.EndDate)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := preloadDetails(query).
		Order("created_at DESC").
		Order("id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, status *enums.OrderStatus) ([]models.Order, error) {
	query := r.withDetails(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Order
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.withDetails(ctx).
		Order("created_at DESC").
		Limit(pagination.NormalizeLimitWith(limit, DefaultRecentLimit, pagination.MaxLimit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// AppendHistory stores entry after the order's last history row. Callers
// hold the order lock.
func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusEntry) error {
	var next int
	err := r.db.WithContext(ctx).
		Model(&models.OrderStatusEntry{}).
		Select("COALESCE(MAX(position) + 1, 0)").
		Where("order_id = ?", entry.OrderID).
		Scan(&next).Error
	if err != nil {
		return err
	}
	entry.Position = next
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteOrder removes the order and its child rows.
func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderStatusEntry{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Order{}).Error
}

func (r *repository) CountByStatus(ctx context.Context, scope statsScope) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Count  int64
	}
	err := r.scoped(ctx, scope).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// SumRevenue returns the grand total sum and count of non-cancelled orders.
func (r *repository) SumRevenue(ctx context.Context, scope statsScope) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue decimal.NullDecimal
		Orders  int64
	}
	err := r.scoped(ctx, scope).
		Select("SUM(grand_total) AS revenue, COUNT(*) AS orders").
		Where("status <> ?", enums.OrderStatusCancelled).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	if !row.Revenue.Valid {
		return decimal.Zero, row.Orders, nil
	}
	return row.Revenue.Decimal, row.Orders, nil
}

func (r *repository) scoped(ctx context.Context, scope statsScope) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.UserID != nil {
		query = query.Where("user_id = ?", *scope.UserID)
	}
	return applyDateWindow(query, scope.StartDate, scope.EndDate)
}

func (r *repository) withDetails(ctx context.Context) *gorm.DB {
	return preloadDetails(r.db.WithContext(ctx))
}

func preloadDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("StatusHistory", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") })
}

// applyDateWindow filters created_at to [start, end]; either bound may be nil.
func applyDateWindow(query *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		query = query.Where("created_at >= ?", start.UTC())
	}
	if end != nil {
		query = query.Where("created_at <= ?", end.UTC())
	}
	return query
}
