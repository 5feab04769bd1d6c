package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// ========== Plan ==========

func (r *ProductionRepository) CreatePlan(ctx context.Context, plan *entity.ProductionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *ProductionRepository) FindPlan(ctx context.Context, id string) (*entity.ProductionPlan, error) {
	var plan entity.ProductionPlan
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&plan, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &plan, nil
}

func (r *ProductionRepository) CreatePlanItem(ctx context.Context, item *entity.ProductionPlanItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ProductionRepository) FindPlanItem(ctx context.Context, id string) (*entity.ProductionPlanItem, error) {
	var item entity.ProductionPlanItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// FindPlanItemForUpdate 加锁读取计划行
func (r *ProductionRepository) FindPlanItemForUpdate(ctx context.Context, id string) (*entity.ProductionPlanItem, error) {
	var item entity.ProductionPlanItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *ProductionRepository) SavePlanItem(ctx context.Context, item *entity.ProductionPlanItem) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionPlanItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"transferred_quantity": item.TransferredQuantity,
			"status":               item.Status,
			"updated_at":           gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// ========== Card ==========

func (r *ProductionRepository) CreateCard(ctx context.Context, card *entity.ProductionCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *ProductionRepository) FindCard(ctx context.Context, id string) (*entity.ProductionCard, error) {
	var card entity.ProductionCard
	if err := r.db.WithContext(ctx).Preload("StockItem").First(&card, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &card, nil
}

func (r *ProductionRepository) FindCardForUpdate(ctx context.Context, id string) (*entity.ProductionCard, error) {
	var card entity.ProductionCard
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &card, nil
}

func (r *ProductionRepository) SaveCard(ctx context.Context, card *entity.ProductionCard) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionCard{}).
		Where("id = ?", card.ID).
		Updates(map[string]interface{}{
			"produced_quantity":  card.ProducedQuantity,
			"defective_quantity": card.DefectiveQuantity,
			"status":             card.Status,
			"updated_at":         gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *ProductionRepository) DeleteCard(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.ProductionCard{}, "id = ?", id).Error
}

// ListActiveCards returns cards still in progress, optionally a single one
func (r *ProductionRepository) ListActiveCards(ctx context.Context, cardID string) ([]entity.ProductionCard, error) {
	var cards []entity.ProductionCard
	q := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			entity.ProductionStatusPending,
			entity.ProductionStatusInProduction,
			entity.ProductionStatusPartiallyCompleted,
		}).
		Order("created_at ASC")
	if cardID != "" {
		q = q.Where("id = ?", cardID)
	}
	err := q.Find(&cards).Error
	return cards, err
}
