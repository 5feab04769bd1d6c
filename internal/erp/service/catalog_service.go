package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService 物品与配方维护. Counters are never set here.
type CatalogService struct {
	*core
}

type CreateItemRequest struct {
	Code         string          `json:"code" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	ItemType     string          `json:"item_type" binding:"required"`
	IsSerialized bool            `json:"is_serialized"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

func (s *CatalogService) CreateItem(ctx context.Context, req CreateItemRequest) (*entity.StockItem, error) {
	switch req.ItemType {
	case entity.ItemTypeRaw, entity.ItemTypeManufactured, entity.ItemTypeOther:
	default:
		return nil, entity.NewDomainError(entity.CodeValidation, "unknown item type %q", req.ItemType)
	}
	if req.UnitPrice.IsNegative() {
		return nil, entity.NewDomainError(entity.CodeValidation, "unit price cannot be negative")
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := &entity.StockItem{
		ID:           uuid.New().String(),
		Code:         strings.TrimSpace(req.Code),
		Name:         strings.TrimSpace(req.Name),
		ItemType:     req.ItemType,
		IsSerialized: req.IsSerialized,
		Unit:         unit,
		UnitPrice:    req.UnitPrice,
		Total:        decimal.Zero,
		Reserved:     decimal.Zero,
		Free:         decimal.Zero,
	}
	if err := s.repos.Item.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create stock item: %w", err)
	}
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (*entity.StockItem, error) {
	item, err := s.repos.Item.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "stock item %s not found", id)
	}
	return item, nil
}

func (s *CatalogService) ListItems(ctx context.Context, itemType string) ([]entity.StockItem, error) {
	return s.repos.Item.List(ctx, itemType)
}

type AddBOMEdgeRequest struct {
	GoodID          string          `json:"good_id" binding:"required"`
	IngredientID    string          `json:"ingredient_id" binding:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
}

// AddBOMEdge adds one recipe line, rejecting edges that would make the graph cyclic.
func (s *CatalogService) AddBOMEdge(ctx context.Context, req AddBOMEdgeRequest) (*entity.BOMEdge, error) {
	if !req.QuantityPerUnit.IsPositive() {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "quantity per unit must be greater than zero")
	}
	if req.GoodID == req.IngredientID {
		return nil, entity.NewDomainError(entity.CodeCyclicBOM, "a product cannot be its own ingredient")
	}

	var edge *entity.BOMEdge
	err := s.tx.run(ctx, "bom.add", func(r *repository.Repositories) error {
		// locking both rows serializes edits that touch the same pair
		items, err := r.Item.LockByIDs(ctx, []string{req.GoodID, req.IngredientID})
		if err != nil {
			return notFound(err, "stock item not found")
		}
		good := items[req.GoodID]
		if good.ItemType == entity.ItemTypeRaw {
			return entity.NewDomainError(entity.CodeValidation, "raw material %s cannot have a recipe", good.Code)
		}
		exists, err := r.BOM.Exists(ctx, req.GoodID, req.IngredientID)
		if err != nil {
			return err
		}
		if exists {
			return entity.NewDomainError(entity.CodeValidation, "%s is already an ingredient of %s", items[req.IngredientID].Code, good.Code)
		}
		adj, err := r.BOM.Adjacency(ctx)
		if err != nil {
			return fmt.Errorf("load bom graph: %w", err)
		}
		if entity.WouldCycle(adj, req.GoodID, req.IngredientID) {
			return entity.NewDomainError(entity.CodeCyclicBOM, "adding %s to %s would create a cycle", items[req.IngredientID].Code, good.Code)
		}
		edge = &entity.BOMEdge{
			ID:              uuid.New().String(),
			GoodID:          req.GoodID,
			IngredientID:    req.IngredientID,
			QuantityPerUnit: req.QuantityPerUnit,
			CreatedAt:       s.now(),
		}
		return r.BOM.Create(ctx, edge)
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func (s *CatalogService) RemoveBOMEdge(ctx context.Context, id string) error {
	if err := s.repos.BOM.Delete(ctx, id); err != nil {
		return notFound(err, "bom edge %s not found", id)
	}
	return nil
}

// Recipe 直接配方
func (s *CatalogService) Recipe(ctx context.Context, goodID string) ([]entity.BOMEdge, error) {
	return s.repos.BOM.ListByGood(ctx, goodID)
}

func (s *CatalogService) ListMovements(ctx context.Context, itemID string, page, pageSize int) ([]entity.StockMovement, int64, error) {
	return s.repos.Movement.ListByItem(ctx, itemID, page, pageSize)
}

// notFound maps repository.ErrNotFound to a NotFound domain error
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return entity.NewDomainError(entity.CodeNotFound, format, args...)
	}
	return err
}
