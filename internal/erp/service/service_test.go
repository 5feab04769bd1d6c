package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/events"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/RastislavMadac/angeapp/internal/erp/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// recordingPublisher keeps every published change
type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.StockChanged
}

func (p *recordingPublisher) Publish(_ context.Context, changes []events.StockChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, changes...)
	return nil
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	svc *Services
	pub *recordingPublisher
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		db:  db,
		pub: &recordingPublisher{},
		now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewServices(repository.NewRepositories(db), db,
		WithClock(func() time.Time { return f.now }),
		WithPublisher(f.pub),
	)
	return f
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// assertCounters checks persisted counters and the free invariant
func (f *fixture) assertCounters(item *entity.StockItem, total, reserved string) {
	f.t.Helper()
	got := testutil.ReloadItem(f.t, f.db, item.ID)
	if !got.Total.Equal(dec(total)) || !got.Reserved.Equal(dec(reserved)) {
		f.t.Fatalf("%s: expected total=%s reserved=%s, got total=%s reserved=%s", item.Code, total, reserved, got.Total, got.Reserved)
	}
	if !got.Free.Equal(got.Total.Sub(got.Reserved)) {
		f.t.Fatalf("%s: free %s != total - reserved", item.Code, got.Free)
	}
}

func assertCode(t *testing.T, err error, want *entity.DomainError) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want.Code)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}

// widgetSetup builds manufactured W needing 2 M per unit and a plan item of 6 W
func (f *fixture) widgetSetup(mFree string, serialized bool) (w, m *entity.StockItem, planItem *entity.ProductionPlanItem) {
	f.t.Helper()
	w = testutil.SeedItem(f.t, f.db, "W", entity.ItemTypeManufactured, serialized)
	m = testutil.SeedItem(f.t, f.db, "M", entity.ItemTypeRaw, false)
	testutil.SeedEdge(f.t, f.db, w, m, "2")
	testutil.SeedStock(f.t, f.db, m, mFree, "0")
	planItem = testutil.SeedPlanItem(f.t, f.db, w, 6)
	return w, m, planItem
}

func int64p(v int64) *int64 { return &v }
