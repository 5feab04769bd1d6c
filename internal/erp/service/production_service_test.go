package service

import (
	"testing"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/testutil"
)

func TestCreateCardShortageLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	_, m, planItem := f.widgetSetup("10", false)

	_, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(6)}, "alice")
	assertCode(t, err, entity.ErrInsufficientAvailable)

	de, _ := entity.AsDomainError(err)
	if len(de.Shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %d", len(de.Shortages))
	}
	if s := de.Shortages[0]; !s.Required.Equal(dec("12")) || !s.Available.Equal(dec("10")) || s.IngredientID != m.ID {
		t.Fatalf("unexpected shortage %+v", s)
	}

	f.assertCounters(m, "10", "0")
	var reloaded entity.ProductionPlanItem
	f.db.First(&reloaded, "id = ?", planItem.ID)
	if reloaded.TransferredQuantity != 0 || reloaded.Status != entity.ProductionStatusPending {
		t.Fatalf("plan item changed: %+v", reloaded)
	}
	var cards int64
	f.db.Model(&entity.ProductionCard{}).Count(&cards)
	if cards != 0 {
		t.Fatalf("expected no card, got %d", cards)
	}
}

func TestCreateCardAndProduce(t *testing.T) {
	f := newFixture(t)
	w, m, planItem := f.widgetSetup("20", false)

	res, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(6)}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if res.Card.Number != "2026VK0001" {
		t.Fatalf("expected 2026VK0001, got %s", res.Card.Number)
	}
	if res.Card.Status != entity.ProductionStatusInProduction {
		t.Fatalf("expected in_production, got %s", res.Card.Status)
	}
	if res.PlanItem.TransferredQuantity != 6 || res.PlanItem.Status != entity.ProductionStatusCompleted {
		t.Fatalf("unexpected plan item %+v", res.PlanItem)
	}
	// card creation checks feasibility only
	f.assertCounters(m, "20", "0")

	prod, err := f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 6, "alice")
	if err != nil {
		t.Fatalf("update produced: %v", err)
	}
	if prod.Card.Status != entity.ProductionStatusCompleted {
		t.Fatalf("expected completed, got %s", prod.Card.Status)
	}
	if prod.Receipt == nil || !prod.Receipt.Quantity.Equal(dec("6")) || prod.Receipt.Number != "2026PJ0001" {
		t.Fatalf("unexpected receipt %+v", prod.Receipt)
	}
	f.assertCounters(w, "6", "0")
	f.assertCounters(m, "20", "12")

	var movements int64
	f.db.Model(&entity.StockMovement{}).Count(&movements)
	if movements != 2 {
		t.Fatalf("expected 2 movements, got %d", movements)
	}
	if len(f.pub.changes) != 2 {
		t.Fatalf("expected 2 published changes, got %d", len(f.pub.changes))
	}
}

func TestCreateCardValidation(t *testing.T) {
	f := newFixture(t)
	_, _, planItem := f.widgetSetup("100", false)

	_, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(0)}, "alice")
	assertCode(t, err, entity.ErrInvalidQuantity)

	_, err = f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(7)}, "alice")
	assertCode(t, err, entity.ErrInsufficientPlan)

	// default takes the whole remaining quantity
	res, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if res.Card.PlannedQuantity != 6 {
		t.Fatalf("expected 6, got %d", res.Card.PlannedQuantity)
	}
	_, err = f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID}, "alice")
	assertCode(t, err, entity.ErrInvalidQuantity)
}

func TestCreateCardMissingRecipe(t *testing.T) {
	f := newFixture(t)
	w := testutil.SeedItem(t, f.db, "W2", entity.ItemTypeManufactured, false)
	planItem := testutil.SeedPlanItem(t, f.db, w, 5)

	_, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID}, "alice")
	assertCode(t, err, entity.ErrMissingRecipe)
}

func TestUpdateProducedRules(t *testing.T) {
	f := newFixture(t)
	_, _, planItem := f.widgetSetup("100", false)
	res, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(4)}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	_, err = f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, -1, "alice")
	assertCode(t, err, entity.ErrNonDecreasingViolation)

	if _, err := f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 2, "alice"); err != nil {
		t.Fatalf("update produced: %v", err)
	}
	if _, err := f.svc.Production.UpdateDefective(f.ctx, res.Card.ID, 1); err != nil {
		t.Fatalf("update defective: %v", err)
	}
	_, err = f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 2, "alice")
	assertCode(t, err, entity.ErrOverProduction)

	last, err := f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 1, "alice")
	if err != nil {
		t.Fatalf("update produced: %v", err)
	}
	if last.Card.Status != entity.ProductionStatusCompleted {
		t.Fatalf("expected completed, got %s", last.Card.Status)
	}
	_, err = f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 1, "alice")
	assertCode(t, err, entity.ErrInvalidTransition)
}

func TestCancelAndDeleteCardGiveQuantityBack(t *testing.T) {
	f := newFixture(t)
	_, _, planItem := f.widgetSetup("100", false)

	first, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(4)}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if _, err := f.svc.Production.UpdateProduced(f.ctx, first.Card.ID, 1, "alice"); err != nil {
		t.Fatalf("update produced: %v", err)
	}
	canceled, err := f.svc.Production.CancelCard(f.ctx, first.Card.ID)
	if err != nil {
		t.Fatalf("cancel card: %v", err)
	}
	if canceled.PlanItem.TransferredQuantity != 1 {
		t.Fatalf("expected 1 transferred after cancel, got %d", canceled.PlanItem.TransferredQuantity)
	}

	second, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(5)}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	pi, err := f.svc.Production.DeleteCard(f.ctx, second.Card.ID)
	if err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if pi.TransferredQuantity != 1 || pi.Status != entity.ProductionStatusPartiallyCompleted {
		t.Fatalf("unexpected plan item %+v", pi)
	}

	_, err = f.svc.Production.DeleteCard(f.ctx, first.Card.ID)
	assertCode(t, err, entity.ErrInvalidTransition)
}

func TestDeleteProductionReceiptReversesStock(t *testing.T) {
	f := newFixture(t)
	w, m, planItem := f.widgetSetup("20", false)
	res, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(6)}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	prod, err := f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 3, "alice")
	if err != nil {
		t.Fatalf("update produced: %v", err)
	}

	if err := f.svc.Production.DeleteReceipt(f.ctx, prod.Receipt.ID, "bob"); err != nil {
		t.Fatalf("delete receipt: %v", err)
	}
	f.assertCounters(w, "0", "0")
	f.assertCounters(m, "20", "0")

	card, err := f.svc.Production.GetCard(f.ctx, res.Card.ID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if card.ProducedQuantity != 0 || card.Status != entity.ProductionStatusPending {
		t.Fatalf("unexpected card after reversal: produced=%d status=%s", card.ProducedQuantity, card.Status)
	}

	err = f.svc.Production.DeleteReceipt(f.ctx, prod.Receipt.ID, "bob")
	assertCode(t, err, entity.ErrNotFound)
}

func TestManualReceiptAndReversalNeedsFreeStock(t *testing.T) {
	f := newFixture(t)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)

	receipt, err := f.svc.Production.CreateManualReceipt(f.ctx, ManualReceiptRequest{StockItemID: raw.ID, Quantity: dec("5.5"), InvoiceNumber: "INV-1"}, "alice")
	if err != nil {
		t.Fatalf("manual receipt: %v", err)
	}
	f.assertCounters(raw, "5.5", "0")

	testutil.SeedStock(t, f.db, raw, "5.5", "2")
	err = f.svc.Production.DeleteReceipt(f.ctx, receipt.ID, "alice")
	assertCode(t, err, entity.ErrInsufficientAvailable)
	f.assertCounters(raw, "5.5", "2")
}

func TestReceiptNumbersRestartEachYear(t *testing.T) {
	f := newFixture(t)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)
	req := ManualReceiptRequest{StockItemID: raw.ID, Quantity: dec("1")}

	var numbers []string
	for i := 0; i < 2; i++ {
		r, err := f.svc.Production.CreateManualReceipt(f.ctx, req, "alice")
		if err != nil {
			t.Fatalf("receipt: %v", err)
		}
		numbers = append(numbers, r.Number)
	}
	f.now = time.Date(2027, 1, 2, 8, 0, 0, 0, time.UTC)
	r, err := f.svc.Production.CreateManualReceipt(f.ctx, req, "alice")
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	numbers = append(numbers, r.Number)

	want := []string{"2026PJ0001", "2026PJ0002", "2027PJ0001"}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("number %d: expected %s, got %s", i, want[i], numbers[i])
		}
	}
}

func TestShortageReportCoversOldestOrdersFirst(t *testing.T) {
	f := newFixture(t)
	_, _, planItem := f.widgetSetup("100", false)
	w := planItem.StockItemID
	if _, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID, Quantity: int64p(5)}, "alice"); err != nil {
		t.Fatalf("create card: %v", err)
	}

	if _, err := f.svc.Outbound.CreateOrder(f.ctx, CreateOrderRequest{Customer: "Alpha", Lines: []OrderLineRequest{{StockItemID: w, Quantity: dec("4")}}}, "alice"); err != nil {
		t.Fatalf("create order: %v", err)
	}
	f.now = f.now.Add(time.Hour)
	if _, err := f.svc.Outbound.CreateOrder(f.ctx, CreateOrderRequest{Customer: "Beta", Lines: []OrderLineRequest{{StockItemID: w, Quantity: dec("3")}}}, "alice"); err != nil {
		t.Fatalf("create order: %v", err)
	}

	report, err := f.svc.Production.ShortageReport(f.ctx, "")
	if err != nil {
		t.Fatalf("shortage report: %v", err)
	}
	if report.TotalWarnings != 1 || !report.TotalMissingQty.Equal(dec("2")) {
		t.Fatalf("unexpected report %+v", report)
	}
	got := report.Warnings[0]
	if got.Customer != "Beta" || !got.Missing.Equal(dec("2")) || !got.Planned.Equal(dec("1")) {
		t.Fatalf("unexpected warning %+v", got)
	}
}

func TestUpdateProducedRechecksFeasibility(t *testing.T) {
	f := newFixture(t)
	w, m, planItem := f.widgetSetup("12", false)
	res, err := f.svc.Production.CreateCard(f.ctx, CreateCardRequest{PlanItemID: planItem.ID}, "alice")
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	// stock used elsewhere after the card was created
	testutil.SeedStock(t, f.db, m, "10", "0")
	_, err = f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 6, "alice")
	assertCode(t, err, entity.ErrInsufficientAvailable)
	f.assertCounters(m, "10", "0")
	f.assertCounters(w, "0", "0")

	card, err := f.svc.Production.GetCard(f.ctx, res.Card.ID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if card.ProducedQuantity != 0 {
		t.Fatalf("expected nothing produced, got %d", card.ProducedQuantity)
	}

	if _, err := f.svc.Production.UpdateProduced(f.ctx, res.Card.ID, 5, "alice"); err != nil {
		t.Fatalf("update produced: %v", err)
	}
	f.assertCounters(m, "10", "10")
	f.assertCounters(w, "5", "0")
}
