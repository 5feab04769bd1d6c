package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockItemRepository struct {
	db *gorm.DB
}

func NewStockItemRepository(db *gorm.DB) *StockItemRepository {
	return &StockItemRepository{db: db}
}

func (r *StockItemRepository) Create(ctx context.Context, item *entity.StockItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *StockItemRepository) FindByID(ctx context.Context, id string) (*entity.StockItem, error) {
	var item entity.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *StockItemRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.StockItem, error) {
	var items []entity.StockItem
	if len(ids) == 0 {
		return map[string]*entity.StockItem{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*entity.StockItem, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// List 物品列表
func (r *StockItemRepository) List(ctx context.Context, itemType string) ([]entity.StockItem, error) {
	var items []entity.StockItem
	q := r.db.WithContext(ctx).Order("code ASC")
	if itemType != "" {
		q = q.Where("item_type = ?", itemType)
	}
	err := q.Find(&items).Error
	return items, err
}

// LockByIDs takes row locks on every id in ascending id order and returns the
// rows keyed by id. All stock mutations go through here so concurrent writers
// acquire overlapping item sets in the same order.
func (r *StockItemRepository) LockByIDs(ctx context.Context, ids []string) (map[string]*entity.StockItem, error) {
	uniq := make(map[string]struct{}, len(ids))
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := uniq[id]; ok {
			continue
		}
		uniq[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	if len(sorted) == 0 {
		return map[string]*entity.StockItem{}, nil
	}

	var items []entity.StockItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("lock stock items: %w", err)
	}
	if len(items) != len(sorted) {
		return nil, ErrNotFound
	}
	out := make(map[string]*entity.StockItem, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// SaveCounters writes back total, reserved and free of a locked item
func (r *StockItemRepository) SaveCounters(ctx context.Context, item *entity.StockItem) error {
	return r.db.WithContext(ctx).Model(&entity.StockItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"total":      item.Total,
			"reserved":   item.Reserved,
			"free":       item.Free,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
