package service

import (
	"testing"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/testutil"
)

func TestQualityCheckLifecycle(t *testing.T) {
	f := newFixture(t)
	w := testutil.SeedItem(t, f.db, "W", entity.ItemTypeManufactured, true)

	check, unit, err := f.svc.Quality.CreateQualityCheck(f.ctx, CreateQualityCheckRequest{
		StockItemID:  w.ID,
		Serial:       " 0A1F ",
		VisualCheck:  true,
		DefectStatus: entity.DefectStatusOK,
	}, "qc")
	if err != nil {
		t.Fatalf("create check: %v", err)
	}
	if unit.SerialHex != "0a1f" || unit.Status != entity.SerialStatusInspected {
		t.Fatalf("unexpected unit %s in %s", unit.SerialHex, unit.Status)
	}

	// one check per unit
	_, _, err = f.svc.Quality.CreateQualityCheck(f.ctx, CreateQualityCheckRequest{
		StockItemID: w.ID, Serial: "0a1f", DefectStatus: entity.DefectStatusOK,
	}, "qc")
	assertCode(t, err, entity.ErrValidation)

	bad := entity.DefectStatusError
	_, err = f.svc.Quality.UpdateQualityCheck(f.ctx, check.ID, UpdateQualityCheckRequest{DefectStatus: &bad})
	assertCode(t, err, entity.ErrInvalidTransition)

	packaged := true
	updated, err := f.svc.Quality.UpdateQualityCheck(f.ctx, check.ID, UpdateQualityCheckRequest{PackagingCheck: &packaged})
	if err != nil {
		t.Fatalf("update check: %v", err)
	}
	if !updated.PackagingCheck || !updated.VisualCheck {
		t.Fatalf("unexpected check %+v", updated)
	}

	approved, err := f.svc.Quality.ApproveForShipping(f.ctx, check.ID, "manager")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.ApprovedForShipping || approved.ApprovedAt == nil || !approved.ApprovedAt.Equal(f.now) {
		t.Fatalf("unexpected approval %+v", approved)
	}
	_, err = f.svc.Quality.UpdateQualityCheck(f.ctx, check.ID, UpdateQualityCheckRequest{PackagingCheck: &packaged})
	assertCode(t, err, entity.ErrLocked)
	_, err = f.svc.Quality.ApproveForShipping(f.ctx, check.ID, "manager")
	assertCode(t, err, entity.ErrLocked)

	got, err := f.svc.Quality.GetSerial(f.ctx, unit.ID)
	if err != nil {
		t.Fatalf("get serial: %v", err)
	}
	if got.QualityCheck == nil || got.QualityCheck.ID != check.ID {
		t.Fatalf("serial not linked to its check")
	}
}

func TestQualityCheckDefects(t *testing.T) {
	f := newFixture(t)
	w := testutil.SeedItem(t, f.db, "W", entity.ItemTypeManufactured, true)
	raw := testutil.SeedItem(t, f.db, "R", entity.ItemTypeRaw, false)

	tests := []struct {
		name string
		req  CreateQualityCheckRequest
		want *entity.DomainError
	}{
		{"missing description", CreateQualityCheckRequest{StockItemID: w.ID, Serial: "b1", DefectStatus: entity.DefectStatusError}, entity.ErrValidation},
		{"unknown status", CreateQualityCheckRequest{StockItemID: w.ID, Serial: "b1", DefectStatus: "meh"}, entity.ErrValidation},
		{"not hex", CreateQualityCheckRequest{StockItemID: w.ID, Serial: "xyz", DefectStatus: entity.DefectStatusOK}, entity.ErrValidation},
		{"not serialized", CreateQualityCheckRequest{StockItemID: raw.ID, Serial: "b1", DefectStatus: entity.DefectStatusOK}, entity.ErrValidation},
		{"missing item", CreateQualityCheckRequest{StockItemID: "missing", Serial: "b1", DefectStatus: entity.DefectStatusOK}, entity.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Quality.CreateQualityCheck(f.ctx, tt.req, "qc")
			assertCode(t, err, tt.want)
		})
	}

	check, unit, err := f.svc.Quality.CreateQualityCheck(f.ctx, CreateQualityCheckRequest{
		StockItemID: w.ID, Serial: "b1", DefectStatus: entity.DefectStatusNone, DefectDescription: "missing label",
	}, "qc")
	if err != nil {
		t.Fatalf("create check: %v", err)
	}
	if unit.Status != entity.SerialStatusDefective {
		t.Fatalf("expected defective, got %s", unit.Status)
	}
	_, err = f.svc.Quality.ApproveForShipping(f.ctx, check.ID, "manager")
	assertCode(t, err, entity.ErrQCFailed)

	empty := ""
	_, err = f.svc.Quality.UpdateQualityCheck(f.ctx, check.ID, UpdateQualityCheckRequest{DefectDescription: &empty})
	assertCode(t, err, entity.ErrValidation)

	other := testutil.SeedItem(t, f.db, "X", entity.ItemTypeManufactured, true)
	_, _, err = f.svc.Quality.CreateQualityCheck(f.ctx, CreateQualityCheckRequest{
		StockItemID: other.ID, Serial: "b1", DefectStatus: entity.DefectStatusOK,
	}, "qc")
	assertCode(t, err, entity.ErrWrongProduct)
}
