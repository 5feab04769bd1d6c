package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpeditionStatus 发货状态
const (
	ExpeditionStatusDraft   = "draft"
	ExpeditionStatusReady   = "ready"
	ExpeditionStatusShipped = "shipped"
)

// Expedition 发货单
type Expedition struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number       string     `json:"number" gorm:"size:16;not null;uniqueIndex"`
	OrderID      string     `json:"order_id" gorm:"type:varchar(36);not null;index"`
	Status       string     `json:"status" gorm:"size:20;not null;default:draft"`
	StockIssueID *string    `json:"stock_issue_id" gorm:"type:varchar(36)"`
	ClosedAt     *time.Time `json:"closed_at"`
	CreatedBy    string     `json:"created_by" gorm:"size:64"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Items []ExpeditionItem `json:"items,omitempty" gorm:"foreignKey:ExpeditionID"`
}

func (Expedition) TableName() string {
	return "erp_expeditions"
}

// IsClosed reports whether the expedition left draft
func (e *Expedition) IsClosed() bool {
	return e.Status != ExpeditionStatusDraft
}

// ExpeditionItem 发货行: one per unit for serialized goods, one per line otherwise.
type ExpeditionItem struct {
	ID               string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ExpeditionID     string          `json:"expedition_id" gorm:"type:varchar(36);not null;index"`
	OrderItemID      string          `json:"order_item_id" gorm:"type:varchar(36);not null;index"`
	StockItemID      string          `json:"stock_item_id" gorm:"type:varchar(36);not null"`
	Quantity         decimal.Decimal `json:"quantity" gorm:"type:decimal(14,3);not null"`
	SerializedUnitID *string         `json:"serialized_unit_id" gorm:"type:varchar(36);index"`
	StockIssueItemID *string         `json:"stock_issue_item_id" gorm:"type:varchar(36)"`
	SortOrder        int             `json:"sort_order" gorm:"default:0"`

	SerializedUnit *SerializedUnit `json:"serialized_unit,omitempty" gorm:"foreignKey:SerializedUnitID"`
}

func (ExpeditionItem) TableName() string {
	return "erp_expedition_items"
}
