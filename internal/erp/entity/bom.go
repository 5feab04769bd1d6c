package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOMEdge 配方行: one unit of Good needs QuantityPerUnit of Ingredient.
type BOMEdge struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	GoodID          string          `json:"good_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_bom_pair"`
	IngredientID    string          `json:"ingredient_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_bom_pair;index"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit" gorm:"type:decimal(10,3);not null"`
	CreatedAt       time.Time       `json:"created_at"`

	Ingredient *StockItem `json:"ingredient,omitempty" gorm:"foreignKey:IngredientID"`
}

func (BOMEdge) TableName() string {
	return "erp_bom_edges"
}

// Required returns the ingredient quantity needed for qty units of the good
func (e *BOMEdge) Required(qty decimal.Decimal) decimal.Decimal {
	return e.QuantityPerUnit.Mul(qty)
}

// WouldCycle reports whether adding good -> ingredient closes a directed cycle
// in the graph described by adjacency (good id -> ingredient ids).
func WouldCycle(adjacency map[string][]string, good, ingredient string) bool {
	if good == ingredient {
		return true
	}
	visited := make(map[string]bool)
	var reaches func(from string) bool
	reaches = func(from string) bool {
		if from == good {
			return true
		}
		if visited[from] {
			return false
		}
		visited[from] = true
		for _, next := range adjacency[from] {
			if reaches(next) {
				return true
			}
		}
		return false
	}
	return reaches(ingredient)
}
