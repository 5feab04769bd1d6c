package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.StockReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *ReceiptRepository) FindForUpdate(ctx context.Context, id string) (*entity.StockReceipt, error) {
	var receipt entity.StockReceipt
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&receipt, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &receipt, nil
}

func (r *ReceiptRepository) ListByCard(ctx context.Context, cardID string) ([]entity.StockReceipt, error) {
	var receipts []entity.StockReceipt
	err := r.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("number ASC").
		Find(&receipts).Error
	return receipts, err
}

func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.StockReceipt{}, "id = ?", id).Error
}

// MovementRepository 库存流水
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MovementRepository) ListByItem(ctx context.Context, itemID string, page, pageSize int) ([]entity.StockMovement, int64, error) {
	var movements []entity.StockMovement
	var total int64
	q := r.db.WithContext(ctx).Model(&entity.StockMovement{}).Where("stock_item_id = ?", itemID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	err := q.Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&movements).Error
	return movements, total, err
}

// ListAll returns every movement, oldest first
func (r *MovementRepository) ListAll(ctx context.Context) ([]entity.StockMovement, error) {
	var movements []entity.StockMovement
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&movements).Error
	return movements, err
}
