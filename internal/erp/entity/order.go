package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
const (
	OrderStatusPending            = "pending"
	OrderStatusPartiallyCompleted = "partially_completed"
	OrderStatusCompleted          = "completed"
)

// Order 客户订单
type Order struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number    string    `json:"number" gorm:"size:16;not null;uniqueIndex"`
	Customer  string    `json:"customer" gorm:"size:200;not null"`
	Status    string    `json:"status" gorm:"size:20;not null;default:pending"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "erp_orders"
}

// OrderItem 订单行. IssuedQuantity is the sum of its non-storno issue items.
type OrderItem struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	StockItemID    string          `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	Quantity       decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null;default:0"`
	IssuedQuantity decimal.Decimal `json:"issued_quantity" gorm:"type:decimal(14,3);not null;default:0"`
	Status         string          `json:"status" gorm:"size:20;not null;default:pending"`
	SortOrder      int             `json:"sort_order" gorm:"default:0"`

	StockItem *StockItem `json:"stock_item,omitempty" gorm:"foreignKey:StockItemID"`
}

func (OrderItem) TableName() string {
	return "erp_order_items"
}

// Remaining is ordered minus issued, never negative
func (o *OrderItem) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, o.Quantity.Sub(o.IssuedQuantity))
}

// OrderItemStatus derives a line status from issued vs ordered.
func OrderItemStatus(issued, ordered decimal.Decimal) string {
	switch {
	case !issued.IsPositive():
		return OrderStatusPending
	case issued.LessThan(ordered):
		return OrderStatusPartiallyCompleted
	default:
		return OrderStatusCompleted
	}
}

// OrderStatusOf derives the order status from the issued and ordered totals of its lines.
func OrderStatusOf(items []OrderItem) string {
	issued, ordered := decimal.Zero, decimal.Zero
	for _, it := range items {
		issued = issued.Add(decimal.Min(it.IssuedQuantity, it.Quantity))
		ordered = ordered.Add(it.Quantity)
	}
	return OrderItemStatus(issued, ordered)
}
