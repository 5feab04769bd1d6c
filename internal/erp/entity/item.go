package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType 物品类型
const (
	ItemTypeRaw          = "RAW"          // 原材料
	ItemTypeManufactured = "MANUFACTURED" // 成品
	ItemTypeOther        = "OTHER"        // 其他
)

// StockItem 库存物品. Total, Reserved and Free are changed only through the
// counter methods below.
type StockItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code         string          `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string          `json:"name" gorm:"size:128;not null"`
	ItemType     string          `json:"item_type" gorm:"size:20;not null;default:RAW"`
	IsSerialized bool            `json:"is_serialized" gorm:"not null;default:false"`
	Unit         string          `json:"unit" gorm:"size:20;not null;default:pcs"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null;default:0"`
	Total        decimal.Decimal `json:"total" gorm:"type:decimal(14,3);not null;default:0"`
	Reserved     decimal.Decimal `json:"reserved" gorm:"type:decimal(14,3);not null;default:0"`
	Free         decimal.Decimal `json:"free" gorm:"type:decimal(14,3);not null;default:0"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (StockItem) TableName() string {
	return "erp_stock_items"
}

// IsManufactured reports whether the item is produced from a recipe
func (i *StockItem) IsManufactured() bool {
	return i.ItemType == ItemTypeManufactured
}

// Ref returns the short identity used in error payloads
func (i *StockItem) Ref() *ItemRef {
	return &ItemRef{ID: i.ID, Code: i.Code, Name: i.Name}
}

func (i *StockItem) recompute() {
	i.Free = i.Total.Sub(i.Reserved)
}

func positive(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return NewDomainError(CodeInvalidQuantity, "quantity must be greater than zero, got %s", qty)
	}
	return nil
}

// Reserve moves qty from free to reserved.
func (i *StockItem) Reserve(qty decimal.Decimal) error {
	if err := positive(qty); err != nil {
		return err
	}
	if qty.GreaterThan(i.Free) {
		err := NewDomainError(CodeInsufficientAvailable, "insufficient free stock for %s: required %s, available %s", i.Code, qty, i.Free)
		err.Shortages = []Shortage{{
			IngredientID: i.ID, IngredientCode: i.Code, Ingredient: i.Name,
			Required: qty, Available: i.Free,
		}}
		return err
	}
	i.Reserved = i.Reserved.Add(qty)
	i.recompute()
	return nil
}

// Release lowers reserved by qty, clamped at zero.
func (i *StockItem) Release(qty decimal.Decimal) error {
	if err := positive(qty); err != nil {
		return err
	}
	i.Reserved = decimal.Max(decimal.Zero, i.Reserved.Sub(qty))
	i.recompute()
	return nil
}

// Issue permanently removes reserved stock.
func (i *StockItem) Issue(qty decimal.Decimal) error {
	if err := positive(qty); err != nil {
		return err
	}
	if qty.GreaterThan(i.Reserved) {
		return NewDomainError(CodeInsufficientReserved, "insufficient reserved stock for %s: required %s, reserved %s", i.Code, qty, i.Reserved)
	}
	if qty.GreaterThan(i.Total) {
		return NewDomainError(CodeInsufficientTotal, "insufficient total stock for %s: required %s, total %s", i.Code, qty, i.Total)
	}
	i.Total = i.Total.Sub(qty)
	i.Reserved = i.Reserved.Sub(qty)
	i.recompute()
	return nil
}

// AddProduction increases total when a receipt is applied.
func (i *StockItem) AddProduction(qty decimal.Decimal) error {
	if err := positive(qty); err != nil {
		return err
	}
	i.Total = i.Total.Add(qty)
	i.recompute()
	return nil
}

// ReturnStock puts stock back on storno. Reserved is untouched.
func (i *StockItem) ReturnStock(qty decimal.Decimal) error {
	if err := positive(qty); err != nil {
		return err
	}
	i.Total = i.Total.Add(qty)
	i.recompute()
	return nil
}

// CheckInvariant verifies free == total - reserved and 0 <= reserved <= total.
func (i *StockItem) CheckInvariant() bool {
	if i.Reserved.IsNegative() || i.Reserved.GreaterThan(i.Total) {
		return false
	}
	return i.Free.Equal(i.Total.Sub(i.Reserved))
}
