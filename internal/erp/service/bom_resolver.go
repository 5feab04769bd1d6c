package service

import (
	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/shopspring/decimal"
)

// BOMResolver works on the direct recipe of a good. Multi-level explosion is
// not done: an ingredient that is itself manufactured counts as stock.
type BOMResolver struct{}

// CheckFeasibility compares required ingredient quantities for qty units of
// good against their free stock. items must hold the locked ingredient rows.
func (r *BOMResolver) CheckFeasibility(good *entity.StockItem, edges []entity.BOMEdge, qty decimal.Decimal, items map[string]*entity.StockItem) error {
	if !qty.IsPositive() {
		return entity.NewDomainError(entity.CodeInvalidQuantity, "quantity must be greater than zero")
	}
	if len(edges) == 0 {
		if good.IsManufactured() {
			return entity.NewDomainError(entity.CodeMissingRecipe, "product %s has no recipe", good.Code)
		}
		return nil
	}

	var shortages []entity.Shortage
	for _, e := range edges {
		ing, ok := items[e.IngredientID]
		if !ok {
			return entity.NewDomainError(entity.CodeNotFound, "ingredient %s of %s not found", e.IngredientID, good.Code)
		}
		required := e.Required(qty)
		if required.GreaterThan(ing.Free) {
			shortages = append(shortages, entity.Shortage{
				IngredientID:   ing.ID,
				IngredientCode: ing.Code,
				Ingredient:     ing.Name,
				Required:       required,
				Available:      ing.Free,
			})
		}
	}
	if len(shortages) > 0 {
		return entity.NewShortageError(shortages)
	}
	return nil
}

// Consume reserves the ingredients used by qty produced units.
func (r *BOMResolver) Consume(book *stockBook, edges []entity.BOMEdge, qty decimal.Decimal, ref movementRef) error {
	for _, e := range edges {
		if err := book.apply(e.IngredientID, entity.MovementIngredientReserve, e.Required(qty), opReserve, ref); err != nil {
			return err
		}
	}
	return nil
}

// Reverse releases what Consume reserved, floored at zero.
func (r *BOMResolver) Reverse(book *stockBook, edges []entity.BOMEdge, qty decimal.Decimal, ref movementRef) error {
	for _, e := range edges {
		if err := book.apply(e.IngredientID, entity.MovementIngredientRelease, e.Required(qty), opRelease, ref); err != nil {
			return err
		}
	}
	return nil
}

func ingredientIDs(edges []entity.BOMEdge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.IngredientID)
	}
	return ids
}
