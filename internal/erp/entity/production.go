package entity

import (
	"time"
)

// ProductionStatus 生产状态, shared by plan items and cards
const (
	ProductionStatusPending            = "pending"
	ProductionStatusInProduction       = "in_production"
	ProductionStatusPartiallyCompleted = "partially_completed"
	ProductionStatusCompleted          = "completed"
	ProductionStatusCanceled           = "canceled"
)

// PlanType 计划类型
const (
	PlanTypeMonthly = "monthly"
	PlanTypeWeekly  = "weekly"
)

// ProductionPlan 生产计划
type ProductionPlan struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number    string    `json:"number" gorm:"size:32;not null;uniqueIndex"`
	PlanType  string    `json:"plan_type" gorm:"size:10;not null;default:monthly"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []ProductionPlanItem `json:"items,omitempty" gorm:"foreignKey:PlanID"`
}

func (ProductionPlan) TableName() string {
	return "erp_production_plans"
}

// ProductionPlanItem 计划行
type ProductionPlanItem struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PlanID              string     `json:"plan_id" gorm:"type:varchar(36);not null;index"`
	StockItemID         string     `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	PlannedQuantity     int64      `json:"planned_quantity" gorm:"not null"`
	TransferredQuantity int64      `json:"transferred_quantity" gorm:"not null;default:0"`
	PlannedDate         *time.Time `json:"planned_date"`
	Status              string     `json:"status" gorm:"size:20;not null;default:pending"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	StockItem *StockItem `json:"stock_item,omitempty" gorm:"foreignKey:StockItemID"`
}

func (ProductionPlanItem) TableName() string {
	return "erp_production_plan_items"
}

// Remaining is the quantity not yet transferred to cards
func (p *ProductionPlanItem) Remaining() int64 {
	return p.PlannedQuantity - p.TransferredQuantity
}

// ProductionCard 生产卡 (work order for part of a plan item)
type ProductionCard struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Number            string    `json:"number" gorm:"size:16;not null;uniqueIndex"`
	PlanItemID        string    `json:"plan_item_id" gorm:"type:varchar(36);not null;index"`
	StockItemID       string    `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	PlannedQuantity   int64     `json:"planned_quantity" gorm:"not null"`
	ProducedQuantity  int64     `json:"produced_quantity" gorm:"not null;default:0"`
	DefectiveQuantity int64     `json:"defective_quantity" gorm:"not null;default:0"`
	Status            string    `json:"status" gorm:"size:20;not null;default:in_production"`
	CreatedBy         string    `json:"created_by" gorm:"size:64"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	StockItem *StockItem `json:"stock_item,omitempty" gorm:"foreignKey:StockItemID"`
}

func (ProductionCard) TableName() string {
	return "erp_production_cards"
}

// Finished reports a card that no longer accepts progress
func (c *ProductionCard) Finished() bool {
	return c.Status == ProductionStatusCompleted || c.Status == ProductionStatusCanceled
}

// Unfinished is planned minus produced and defective
func (c *ProductionCard) Unfinished() int64 {
	return c.PlannedQuantity - c.ProducedQuantity - c.DefectiveQuantity
}

// PlanItemStatus derives a plan item status from its quantities.
func PlanItemStatus(transferred, planned int64) string {
	switch {
	case transferred >= planned:
		return ProductionStatusCompleted
	case transferred > 0:
		return ProductionStatusPartiallyCompleted
	default:
		return ProductionStatusPending
	}
}

// CardStatus derives a card status from produced+defective against planned.
func CardStatus(produced, defective, planned int64) (string, error) {
	done := produced + defective
	switch {
	case done > planned:
		return "", NewDomainError(CodeOverProduction, "produced %d + defective %d exceeds planned %d", produced, defective, planned)
	case done == planned:
		return ProductionStatusCompleted, nil
	case done > 0:
		return ProductionStatusPartiallyCompleted, nil
	default:
		return ProductionStatusPending, nil
	}
}
