package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptSource 入库来源
const (
	ReceiptSourceProduction = "production"
	ReceiptSourceManual     = "manual"
)

// StockReceipt 入库单
type StockReceipt struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number        string          `json:"number" gorm:"size:16;not null;uniqueIndex"`
	StockItemID   string          `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`
	Source        string          `json:"source" gorm:"size:20;not null"`
	CardID        *string         `json:"card_id" gorm:"type:varchar(36);index"`
	PlanID        *string         `json:"plan_id" gorm:"type:varchar(36)"`
	InvoiceNumber string          `json:"invoice_number" gorm:"size:64"`
	CreatedBy     string          `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time       `json:"created_at"`

	StockItem *StockItem `json:"stock_item,omitempty" gorm:"foreignKey:StockItemID"`
}

func (StockReceipt) TableName() string {
	return "erp_stock_receipts"
}

// MovementType 库存流水类型
const (
	MovementProductionIn      = "PRODUCTION_IN"
	MovementManualIn          = "MANUAL_IN"
	MovementReceiptReversal   = "RECEIPT_REVERSAL"
	MovementIngredientReserve = "INGREDIENT_RESERVE"
	MovementIngredientRelease = "INGREDIENT_RELEASE"
	MovementSalesOut          = "SALES_OUT"
	MovementIngredientOut     = "INGREDIENT_OUT"
	MovementStornoIn          = "STORNO_IN"
	MovementIngredientReturn  = "INGREDIENT_RETURN"
)

// Reference types recorded on movements
const (
	RefTypeCard    = "CARD"
	RefTypeReceipt = "RECEIPT"
	RefTypeIssue   = "ISSUE"
	RefTypeStorno  = "STORNO"
)

// StockMovement 库存流水: one row per counter mutation, with the resulting state.
type StockMovement struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StockItemID   string          `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	MovementType  string          `json:"movement_type" gorm:"size:30;not null"`
	TotalDelta    decimal.Decimal `json:"total_delta" gorm:"type:decimal(14,3);not null;default:0"`    // 正=入，负=出
	ReservedDelta decimal.Decimal `json:"reserved_delta" gorm:"type:decimal(14,3);not null;default:0"` // 正=占用，负=释放
	TotalAfter    decimal.Decimal `json:"total_after" gorm:"type:decimal(14,3);not null"`
	ReservedAfter decimal.Decimal `json:"reserved_after" gorm:"type:decimal(14,3);not null"`
	FreeAfter     decimal.Decimal `json:"free_after" gorm:"type:decimal(14,3);not null"`
	ReferenceType string          `json:"reference_type" gorm:"size:20;not null"`
	ReferenceID   string          `json:"reference_id" gorm:"size:36;not null;index"`
	ReferenceCode string          `json:"reference_code" gorm:"size:32"`
	CreatedBy     string          `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "erp_stock_movements"
}
