package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
)

type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

func (r *BOMRepository) Create(ctx context.Context, edge *entity.BOMEdge) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *BOMRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&entity.BOMEdge{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByGood 成品的直接配方 (one level)
func (r *BOMRepository) ListByGood(ctx context.Context, goodID string) ([]entity.BOMEdge, error) {
	var edges []entity.BOMEdge
	err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("good_id = ?", goodID).
		Order("ingredient_id ASC").
		Find(&edges).Error
	return edges, err
}

// ListByGoods returns the recipes of several goods keyed by good id
func (r *BOMRepository) ListByGoods(ctx context.Context, goodIDs []string) (map[string][]entity.BOMEdge, error) {
	out := make(map[string][]entity.BOMEdge, len(goodIDs))
	if len(goodIDs) == 0 {
		return out, nil
	}
	var edges []entity.BOMEdge
	err := r.db.WithContext(ctx).
		Where("good_id IN ?", goodIDs).
		Order("ingredient_id ASC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		out[e.GoodID] = append(out[e.GoodID], e)
	}
	return out, nil
}

func (r *BOMRepository) Exists(ctx context.Context, goodID, ingredientID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BOMEdge{}).
		Where("good_id = ? AND ingredient_id = ?", goodID, ingredientID).
		Count(&count).Error
	return count > 0, err
}

// Adjacency loads the whole edge table as good -> ingredients
func (r *BOMRepository) Adjacency(ctx context.Context) (map[string][]string, error) {
	var edges []entity.BOMEdge
	if err := r.db.WithContext(ctx).Select("good_id", "ingredient_id").Find(&edges).Error; err != nil {
		return nil, err
	}
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.GoodID] = append(adj[e.GoodID], e.IngredientID)
	}
	return adj, nil
}
