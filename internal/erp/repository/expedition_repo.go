package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExpeditionRepository struct {
	db *gorm.DB
}

func NewExpeditionRepository(db *gorm.DB) *ExpeditionRepository {
	return &ExpeditionRepository{db: db}
}

func (r *ExpeditionRepository) Create(ctx context.Context, exp *entity.Expedition) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpeditionRepository) FindByID(ctx context.Context, id string) (*entity.Expedition, error) {
	var exp entity.Expedition
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Items.SerializedUnit").
		First(&exp, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &exp, nil
}

// FindForUpdate 加锁读取发货单及其行项
func (r *ExpeditionRepository) FindForUpdate(ctx context.Context, id string) (*entity.Expedition, error) {
	var exp entity.Expedition
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&exp, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).
		Where("expedition_id = ?", id).
		Order("sort_order ASC").
		Find(&exp.Items).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *ExpeditionRepository) FindItemByID(ctx context.Context, id string) (*entity.ExpeditionItem, error) {
	var item entity.ExpeditionItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// StagedByOrderItem sums line quantities of draft expeditions per order line.
// exceptID leaves one expedition out.
func (r *ExpeditionRepository) StagedByOrderItem(ctx context.Context, orderID, exceptID string) (map[string]decimal.Decimal, error) {
	var rows []struct {
		OrderItemID string
		Quantity    decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("erp_expedition_items").
		Select("erp_expedition_items.order_item_id AS order_item_id, erp_expedition_items.quantity AS quantity").
		Joins("JOIN erp_expeditions ON erp_expeditions.id = erp_expedition_items.expedition_id").
		Where("erp_expeditions.order_id = ? AND erp_expeditions.status = ? AND erp_expeditions.id <> ?",
			orderID, entity.ExpeditionStatusDraft, exceptID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, row := range rows {
		out[row.OrderItemID] = out[row.OrderItemID].Add(row.Quantity)
	}
	return out, nil
}

// FindItemForUpdate locks one expedition line
func (r *ExpeditionRepository) FindItemForUpdate(ctx context.Context, id string) (*entity.ExpeditionItem, error) {
	var item entity.ExpeditionItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *ExpeditionRepository) UpdateItem(ctx context.Context, item *entity.ExpeditionItem) error {
	return r.db.WithContext(ctx).Model(&entity.ExpeditionItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"quantity":            item.Quantity,
			"serialized_unit_id":  item.SerializedUnitID,
			"stock_issue_item_id": item.StockIssueItemID,
		}).Error
}

func (r *ExpeditionRepository) SaveHeader(ctx context.Context, exp *entity.Expedition) error {
	return r.db.WithContext(ctx).Model(&entity.Expedition{}).
		Where("id = ?", exp.ID).
		Updates(map[string]interface{}{
			"status":         exp.Status,
			"stock_issue_id": exp.StockIssueID,
			"closed_at":      exp.ClosedAt,
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
