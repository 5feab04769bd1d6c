package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID 订单（含行项）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.StockItem").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// FindForUpdate locks the order row, then loads its lines
func (r *OrderRepository) FindForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Order("sort_order ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// IssuedByOrderItem sums non-storno issue quantities per order line
func (r *OrderRepository) IssuedByOrderItem(ctx context.Context, orderID string) (map[string]decimal.Decimal, error) {
	var rows []struct {
		OrderItemID string
		Quantity    decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("erp_stock_issue_items").
		Select("erp_stock_issue_items.order_item_id AS order_item_id, erp_stock_issue_items.quantity AS quantity").
		Joins("JOIN erp_stock_issues ON erp_stock_issues.id = erp_stock_issue_items.issue_id").
		Joins("JOIN erp_order_items ON erp_order_items.id = erp_stock_issue_items.order_item_id").
		Where("erp_order_items.order_id = ? AND erp_stock_issues.is_storno = ?", orderID, false).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, row := range rows {
		out[row.OrderItemID] = out[row.OrderItemID].Add(row.Quantity)
	}
	return out, nil
}

func (r *OrderRepository) SaveItemProgress(ctx context.Context, item *entity.OrderItem) error {
	return r.db.WithContext(ctx).Model(&entity.OrderItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"issued_quantity": item.IssuedQuantity,
			"status":          item.Status,
		}).Error
}

func (r *OrderRepository) SaveStatus(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":     order.Status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// ListOpen returns pending and partially completed orders, oldest first, with lines
func (r *OrderRepository) ListOpen(ctx context.Context) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.StockItem").
		Where("status IN ?", []string{entity.OrderStatusPending, entity.OrderStatusPartiallyCompleted}).
		Order("created_at ASC, number ASC").
		Find(&orders).Error
	return orders, err
}
