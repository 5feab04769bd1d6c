package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/testutil"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)

	item, err := f.svc.Catalog.CreateItem(f.ctx, CreateItemRequest{Code: " W-1 ", Name: "Widget", ItemType: entity.ItemTypeManufactured})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Code != "W-1" || item.Unit != "pcs" || !item.Total.IsZero() {
		t.Fatalf("unexpected item %+v", item)
	}

	_, err = f.svc.Catalog.CreateItem(f.ctx, CreateItemRequest{Code: "Z", Name: "Z", ItemType: "GADGET"})
	assertCode(t, err, entity.ErrValidation)
	_, err = f.svc.Catalog.CreateItem(f.ctx, CreateItemRequest{Code: "Z", Name: "Z", ItemType: entity.ItemTypeRaw, UnitPrice: dec("-1")})
	assertCode(t, err, entity.ErrValidation)
}

func TestAddBOMEdgeRules(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedItem(t, f.db, "A", entity.ItemTypeManufactured, false)
	b := testutil.SeedItem(t, f.db, "B", entity.ItemTypeManufactured, false)
	c := testutil.SeedItem(t, f.db, "C", entity.ItemTypeManufactured, false)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)

	for _, e := range [][2]*entity.StockItem{{a, b}, {b, c}, {c, raw}} {
		if _, err := f.svc.Catalog.AddBOMEdge(f.ctx, AddBOMEdgeRequest{GoodID: e[0].ID, IngredientID: e[1].ID, QuantityPerUnit: dec("1.5")}); err != nil {
			t.Fatalf("add %s -> %s: %v", e[0].Code, e[1].Code, err)
		}
	}

	tests := []struct {
		name string
		req  AddBOMEdgeRequest
		want *entity.DomainError
	}{
		{"cycle through chain", AddBOMEdgeRequest{GoodID: c.ID, IngredientID: a.ID, QuantityPerUnit: dec("1")}, entity.ErrCyclicBOM},
		{"self edge", AddBOMEdgeRequest{GoodID: a.ID, IngredientID: a.ID, QuantityPerUnit: dec("1")}, entity.ErrCyclicBOM},
		{"duplicate", AddBOMEdgeRequest{GoodID: a.ID, IngredientID: b.ID, QuantityPerUnit: dec("1")}, entity.ErrValidation},
		{"raw good", AddBOMEdgeRequest{GoodID: raw.ID, IngredientID: a.ID, QuantityPerUnit: dec("1")}, entity.ErrValidation},
		{"zero quantity", AddBOMEdgeRequest{GoodID: a.ID, IngredientID: raw.ID, QuantityPerUnit: dec("0")}, entity.ErrInvalidQuantity},
		{"missing ingredient", AddBOMEdgeRequest{GoodID: a.ID, IngredientID: "missing", QuantityPerUnit: dec("1")}, entity.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Catalog.AddBOMEdge(f.ctx, tt.req)
			assertCode(t, err, tt.want)
		})
	}

	recipe, err := f.svc.Catalog.Recipe(f.ctx, a.ID)
	if err != nil {
		t.Fatalf("recipe: %v", err)
	}
	if len(recipe) != 1 || recipe[0].IngredientID != b.ID {
		t.Fatalf("unexpected recipe %+v", recipe)
	}
	if err := f.svc.Catalog.RemoveBOMEdge(f.ctx, recipe[0].ID); err != nil {
		t.Fatalf("remove edge: %v", err)
	}
	// with A -> B gone the former cycle is legal
	if _, err := f.svc.Catalog.AddBOMEdge(f.ctx, AddBOMEdgeRequest{GoodID: c.ID, IngredientID: a.ID, QuantityPerUnit: dec("1")}); err != nil {
		t.Fatalf("add C -> A after removal: %v", err)
	}
	assertCode(t, f.svc.Catalog.RemoveBOMEdge(f.ctx, recipe[0].ID), entity.ErrNotFound)
}

func TestExportStock(t *testing.T) {
	f := newFixture(t)
	f.producedWidgets(false)

	file, name, err := f.svc.Export.ExportStock(f.ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer file.Close()
	if name != "Stock_20260314.xlsx" {
		t.Fatalf("unexpected filename %s", name)
	}

	rows, err := file.GetRows("Stock")
	if err != nil {
		t.Fatalf("read stock sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 items, got %d rows", len(rows))
	}
	movements, err := file.GetRows("Movements")
	if err != nil {
		t.Fatalf("read movements sheet: %v", err)
	}
	// card reservation and production receipt
	if len(movements) != 3 {
		t.Fatalf("expected header plus 2 movements, got %d rows", len(movements))
	}
	types := map[string]bool{movements[1][2]: true, movements[2][2]: true}
	if !types[entity.MovementIngredientReserve] || !types[entity.MovementProductionIn] {
		t.Fatalf("unexpected movement types %v", types)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"deadlock", fmt.Errorf("lock: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"unique number", &pgconn.PgError{Code: "23505"}, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"sqlite number", errors.New("UNIQUE constraint failed: erp_stock_receipts.number"), true},
		{"sqlite other unique", errors.New("UNIQUE constraint failed: erp_stock_items.code"), false},
		{"domain", entity.NewDomainError(entity.CodeLocked, "locked"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
