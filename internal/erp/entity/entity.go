package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有库存表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 物品与配方
		&StockItem{},
		&BOMEdge{},

		// 序列号与质检
		&SerializedUnit{},
		&QualityCheck{},

		// 生产
		&ProductionPlan{},
		&ProductionPlanItem{},
		&ProductionCard{},

		// 入库与流水
		&StockReceipt{},
		&StockMovement{},

		// 订单与出库
		&Order{},
		&OrderItem{},
		&StockIssue{},
		&StockIssueItem{},
		&StockIssueInstance{},
		&StockIssueIngredient{},

		// 发货
		&Expedition{},
		&ExpeditionItem{},
	)
}
