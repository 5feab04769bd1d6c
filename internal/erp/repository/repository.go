package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 库存仓库集合
type Repositories struct {
	db *gorm.DB

	Item       *StockItemRepository
	BOM        *BOMRepository
	Serial     *SerialRepository
	Production *ProductionRepository
	Receipt    *ReceiptRepository
	Movement   *MovementRepository
	Order      *OrderRepository
	Issue      *IssueRepository
	Expedition *ExpeditionRepository
	Number     *NumberRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:         db,
		Item:       NewStockItemRepository(db),
		BOM:        NewBOMRepository(db),
		Serial:     NewSerialRepository(db),
		Production: NewProductionRepository(db),
		Receipt:    NewReceiptRepository(db),
		Movement:   NewMovementRepository(db),
		Order:      NewOrderRepository(db),
		Issue:      NewIssueRepository(db),
		Expedition: NewExpeditionRepository(db),
		Number:     NewNumberRepository(db),
	}
}

// WithTx returns a set of repositories bound to tx
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// DB returns the underlying handle
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}
