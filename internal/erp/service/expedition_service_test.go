package service

import (
	"testing"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/testutil"
)

func (f *fixture) inspect(item *entity.StockItem, serial, defect string) *entity.SerializedUnit {
	f.t.Helper()
	desc := ""
	if defect != entity.DefectStatusOK {
		desc = "scratched housing"
	}
	_, unit, err := f.svc.Quality.CreateQualityCheck(f.ctx, CreateQualityCheckRequest{
		StockItemID:       item.ID,
		Serial:            serial,
		VisualCheck:       true,
		PackagingCheck:    true,
		DefectStatus:      defect,
		DefectDescription: desc,
	}, "qc")
	if err != nil {
		f.t.Fatalf("quality check %s: %v", serial, err)
	}
	return unit
}

func (f *fixture) unitStatus(id string) string {
	f.t.Helper()
	var unit entity.SerializedUnit
	if err := f.db.First(&unit, "id = ?", id).Error; err != nil {
		f.t.Fatalf("reload unit: %v", err)
	}
	return unit.Status
}

func TestExpeditionShipsSerializedUnits(t *testing.T) {
	f := newFixture(t)
	w, m := f.producedWidgets(true)
	serials := []string{"A1", "a2", "a3", "a4"}
	units := make([]*entity.SerializedUnit, len(serials))
	for i, s := range serials {
		units[i] = f.inspect(w, s, entity.DefectStatusOK)
	}
	bad := f.inspect(w, "e1", entity.DefectStatusError)
	if bad.Status != entity.SerialStatusDefective || units[0].SerialHex != "a1" {
		t.Fatalf("unexpected units: bad=%s first=%s", bad.Status, units[0].SerialHex)
	}

	order := f.order(w, "4")
	exp, err := f.svc.Expedition.CreateExpedition(f.ctx, order.ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	if exp.Number != "2026EX0001" || len(exp.Items) != 4 {
		t.Fatalf("expected 4 lines on 2026EX0001, got %d on %s", len(exp.Items), exp.Number)
	}
	for _, it := range exp.Items {
		if !it.Quantity.Equal(dec("1")) {
			t.Fatalf("serialized line quantity %s", it.Quantity)
		}
	}

	// a failed check blocks the unit and leaves it untouched
	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[0].ID, "e1")
	assertCode(t, err, entity.ErrQCFailed)
	if s := f.unitStatus(bad.ID); s != entity.SerialStatusDefective {
		t.Fatalf("defective unit moved to %s", s)
	}

	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[0].ID, "ff")
	assertCode(t, err, entity.ErrNotFound)
	if de, _ := entity.AsDomainError(err); de.ExpectedProduct == nil || de.ExpectedProduct.ID != w.ID {
		t.Fatalf("expected product %s in error, got %+v", w.ID, de.ExpectedProduct)
	}

	for i := 0; i < 3; i++ {
		line, err := f.svc.Expedition.AssignSerial(f.ctx, exp.Items[i].ID, serials[i])
		if err != nil {
			t.Fatalf("assign %s: %v", serials[i], err)
		}
		if line.SerializedUnitID == nil || *line.SerializedUnitID != units[i].ID {
			t.Fatalf("line %d not linked", i)
		}
	}
	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[3].ID, "a1")
	assertCode(t, err, entity.ErrNotInspected)

	_, err = f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusShipped, "alice")
	assertCode(t, err, entity.ErrUnassignedSerial)

	if _, err := f.svc.Expedition.AssignSerial(f.ctx, exp.Items[3].ID, "a4"); err != nil {
		t.Fatalf("assign a4: %v", err)
	}
	closed, err := f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusShipped, "alice")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.StockIssueID == nil || closed.Status != entity.ExpeditionStatusShipped {
		t.Fatalf("expedition not closed: %+v", closed)
	}
	f.assertCounters(w, "2", "0")
	f.assertCounters(m, "12", "4")
	for _, u := range units {
		if s := f.unitStatus(u.ID); s != entity.SerialStatusShipped {
			t.Fatalf("unit %s is %s, expected shipped", u.SerialHex, s)
		}
	}

	// closing again returns the existing issue
	again, err := f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusShipped, "alice")
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if *again.StockIssueID != *closed.StockIssueID {
		t.Fatalf("second close created another issue")
	}
	var issues int64
	f.db.Model(&entity.StockIssue{}).Count(&issues)
	if issues != 1 {
		t.Fatalf("expected 1 issue, got %d", issues)
	}
	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[0].ID, "a1")
	assertCode(t, err, entity.ErrInvalidTransition)

	// a shipped unit cannot go out on another expedition
	second, err := f.svc.Expedition.CreateExpedition(f.ctx, f.order(w, "1").ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	_, err = f.svc.Expedition.AssignSerial(f.ctx, second.Items[0].ID, "a2")
	assertCode(t, err, entity.ErrAlreadyShipped)

	other := testutil.SeedItem(t, f.db, "X", entity.ItemTypeManufactured, true)
	f.inspect(other, "b1", entity.DefectStatusOK)
	_, err = f.svc.Expedition.AssignSerial(f.ctx, second.Items[0].ID, "b1")
	assertCode(t, err, entity.ErrWrongProduct)

	// storno brings every unit back to assigned
	if _, err := f.svc.Outbound.Storno(f.ctx, *closed.StockIssueID, "manager"); err != nil {
		t.Fatalf("storno: %v", err)
	}
	f.assertCounters(w, "6", "0")
	f.assertCounters(m, "20", "12")
	for _, u := range units {
		if s := f.unitStatus(u.ID); s != entity.SerialStatusAssigned {
			t.Fatalf("unit %s is %s after storno, expected assigned", u.SerialHex, s)
		}
	}

	// the order path reuses assigned units no draft expedition holds
	reissue, err := f.svc.Outbound.CreateIssueFromOrder(f.ctx, order.ID, "alice")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if n := len(reissue.Items[0].Instances); n != 4 {
		t.Fatalf("expected 4 instances, got %d", n)
	}
	f.assertCounters(w, "2", "0")
}

func TestExpeditionNonSerializedQuantity(t *testing.T) {
	f := newFixture(t)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)
	testutil.SeedStock(t, f.db, raw, "10", "0")
	order := f.order(raw, "5")

	exp, err := f.svc.Expedition.CreateExpedition(f.ctx, order.ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	if len(exp.Items) != 1 || !exp.Items[0].Quantity.Equal(dec("5")) {
		t.Fatalf("unexpected lines %+v", exp.Items)
	}
	lineID := exp.Items[0].ID

	_, err = f.svc.Expedition.SetItemQuantity(f.ctx, lineID, dec("6"))
	assertCode(t, err, entity.ErrInvalidQuantity)
	_, err = f.svc.Expedition.SetItemQuantity(f.ctx, lineID, dec("0"))
	assertCode(t, err, entity.ErrInvalidQuantity)
	if _, err := f.svc.Expedition.SetItemQuantity(f.ctx, lineID, dec("3")); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	_, err = f.svc.Expedition.AssignSerial(f.ctx, lineID, "aa")
	assertCode(t, err, entity.ErrValidation)

	if _, err := f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusReady, "alice"); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.assertCounters(raw, "7", "0")

	got, _ := f.svc.Outbound.GetOrder(f.ctx, order.ID)
	if got.Status != entity.OrderStatusPartiallyCompleted {
		t.Fatalf("expected partially_completed, got %s", got.Status)
	}

	_, err = f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusDraft, "alice")
	assertCode(t, err, entity.ErrValidation)
}

func TestExpeditionStagingRespectsOpenQuantity(t *testing.T) {
	f := newFixture(t)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)
	testutil.SeedStock(t, f.db, raw, "20", "0")
	order := f.order(raw, "5")

	first, err := f.svc.Expedition.CreateExpedition(f.ctx, order.ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	firstLine := first.Items[0].ID

	// the whole line is staged, nothing is left for another draft or the order path
	_, err = f.svc.Expedition.CreateExpedition(f.ctx, order.ID, "alice")
	assertCode(t, err, entity.ErrInvalidTransition)
	_, err = f.svc.Outbound.CreateIssueFromOrder(f.ctx, order.ID, "alice")
	assertCode(t, err, entity.ErrInvalidTransition)

	if _, err := f.svc.Expedition.SetItemQuantity(f.ctx, firstLine, dec("2")); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	second, err := f.svc.Expedition.CreateExpedition(f.ctx, order.ID, "alice")
	if err != nil {
		t.Fatalf("create second expedition: %v", err)
	}
	if len(second.Items) != 1 || !second.Items[0].Quantity.Equal(dec("3")) {
		t.Fatalf("expected the 3 unstaged units, got %+v", second.Items)
	}
	_, err = f.svc.Expedition.SetItemQuantity(f.ctx, firstLine, dec("3"))
	assertCode(t, err, entity.ErrInvalidQuantity)

	if _, err := f.svc.Expedition.Close(f.ctx, second.ID, entity.ExpeditionStatusShipped, "alice"); err != nil {
		t.Fatalf("close second: %v", err)
	}
	f.assertCounters(raw, "17", "0")

	// a line larger than what is still open on the order cannot ship
	if err := f.db.Model(&entity.ExpeditionItem{}).Where("id = ?", firstLine).Update("quantity", dec("5")).Error; err != nil {
		t.Fatalf("enlarge line: %v", err)
	}
	_, err = f.svc.Expedition.Close(f.ctx, first.ID, entity.ExpeditionStatusShipped, "alice")
	assertCode(t, err, entity.ErrInvalidQuantity)
	f.assertCounters(raw, "17", "0")

	if _, err := f.svc.Expedition.SetItemQuantity(f.ctx, firstLine, dec("2")); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if _, err := f.svc.Expedition.Close(f.ctx, first.ID, entity.ExpeditionStatusShipped, "alice"); err != nil {
		t.Fatalf("close first: %v", err)
	}
	f.assertCounters(raw, "15", "0")

	got, _ := f.svc.Outbound.GetOrder(f.ctx, order.ID)
	if got.Status != entity.OrderStatusCompleted || !got.Items[0].IssuedQuantity.Equal(dec("5")) {
		t.Fatalf("unexpected order: status=%s issued=%s", got.Status, got.Items[0].IssuedQuantity)
	}
}

func TestAssignSerialCheckOrder(t *testing.T) {
	f := newFixture(t)
	w := testutil.SeedItem(t, f.db, "W", entity.ItemTypeManufactured, true)
	unit := f.inspect(w, "c1", entity.DefectStatusOK)
	exp, err := f.svc.Expedition.CreateExpedition(f.ctx, f.order(w, "2").ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	if _, err := f.svc.Expedition.AssignSerial(f.ctx, exp.Items[0].ID, "c1"); err != nil {
		t.Fatalf("assign c1: %v", err)
	}

	// a unit held by another line is assigned, so the status check answers first
	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[1].ID, "c1")
	assertCode(t, err, entity.ErrNotInspected)

	// an inspected unit still referenced by another line is refused
	if err := f.db.Model(&entity.SerializedUnit{}).Where("id = ?", unit.ID).Update("status", entity.SerialStatusInspected).Error; err != nil {
		t.Fatalf("reset unit: %v", err)
	}
	_, err = f.svc.Expedition.AssignSerial(f.ctx, exp.Items[1].ID, "c1")
	assertCode(t, err, entity.ErrAlreadyUsed)
	if s := f.unitStatus(unit.ID); s != entity.SerialStatusInspected {
		t.Fatalf("refused unit moved to %s", s)
	}
}

func TestCloseFailsWhenAssignedUnitIsMissing(t *testing.T) {
	f := newFixture(t)
	w, _ := f.producedWidgets(true)
	unit := f.inspect(w, "d1", entity.DefectStatusOK)
	exp, err := f.svc.Expedition.CreateExpedition(f.ctx, f.order(w, "1").ID, "alice")
	if err != nil {
		t.Fatalf("create expedition: %v", err)
	}
	if _, err := f.svc.Expedition.AssignSerial(f.ctx, exp.Items[0].ID, "d1"); err != nil {
		t.Fatalf("assign d1: %v", err)
	}
	if err := f.db.Delete(&entity.SerializedUnit{}, "id = ?", unit.ID).Error; err != nil {
		t.Fatalf("delete unit: %v", err)
	}

	_, err = f.svc.Expedition.Close(f.ctx, exp.ID, entity.ExpeditionStatusShipped, "alice")
	assertCode(t, err, entity.ErrNotFound)
	f.assertCounters(w, "6", "0")
}
