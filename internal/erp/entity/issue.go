package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockIssue 出库单. Storno reverses the whole issue.
type StockIssue struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number       string     `json:"number" gorm:"size:16;not null;uniqueIndex"`
	OrderID      *string    `json:"order_id" gorm:"type:varchar(36);index"`
	ExpeditionID *string    `json:"expedition_id" gorm:"type:varchar(36);uniqueIndex"`
	IsStorno     bool       `json:"is_storno" gorm:"not null;default:false"`
	StornoAt     *time.Time `json:"storno_at"`
	StornoBy     string     `json:"storno_by" gorm:"size:64"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Items []StockIssueItem `json:"items,omitempty" gorm:"foreignKey:IssueID"`
}

func (StockIssue) TableName() string {
	return "erp_stock_issues"
}

// StockIssueItem 出库行
type StockIssueItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IssueID     string          `json:"issue_id" gorm:"type:varchar(36);not null;index"`
	StockItemID string          `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	OrderItemID *string         `json:"order_item_id" gorm:"type:varchar(36);index"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`

	Instances   []StockIssueInstance   `json:"instances,omitempty" gorm:"foreignKey:IssueItemID"`
	Ingredients []StockIssueIngredient `json:"ingredients,omitempty" gorm:"foreignKey:IssueItemID"`
}

func (StockIssueItem) TableName() string {
	return "erp_stock_issue_items"
}

// StockIssueInstance links one shipped serialized unit to its issue line
type StockIssueInstance struct {
	ID               string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IssueItemID      string `json:"issue_item_id" gorm:"type:varchar(36);not null;index"`
	SerializedUnitID string `json:"serialized_unit_id" gorm:"type:varchar(36);not null;index"`

	SerializedUnit *SerializedUnit `json:"serialized_unit,omitempty" gorm:"foreignKey:SerializedUnitID"`
}

func (StockIssueInstance) TableName() string {
	return "erp_stock_issue_instances"
}

// StockIssueIngredient records an ingredient issued with a manufactured good.
// FromReserved is the part taken from the production reservation, which storno
// re-reserves.
type StockIssueIngredient struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IssueItemID  string          `json:"issue_item_id" gorm:"type:varchar(36);not null;index"`
	IngredientID string          `json:"ingredient_id" gorm:"type:varchar(36);not null"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`
	FromReserved decimal.Decimal `json:"from_reserved" gorm:"type:decimal(14,3);not null;default:0"`
}

func (StockIssueIngredient) TableName() string {
	return "erp_stock_issue_ingredients"
}
