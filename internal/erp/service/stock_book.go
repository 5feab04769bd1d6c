package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/events"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// movementRef is the document a counter mutation belongs to
type movementRef struct {
	Type string
	ID   string
	Code string
}

// stockBook holds the locked items of one transaction. Every counter change
// goes through apply, which persists the row and appends a movement.
type stockBook struct {
	ctx     context.Context
	repos   *repository.Repositories
	items   map[string]*entity.StockItem
	actor   string
	now     time.Time
	changed map[string]lastChange
	order   []string
}

type lastChange struct {
	reason    string
	reference string
}

// openBook locks ids (ascending) and returns a book over them
func openBook(ctx context.Context, repos *repository.Repositories, ids []string, actor string, now time.Time) (*stockBook, error) {
	items, err := repos.Item.LockByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.NewDomainError(entity.CodeNotFound, "stock item not found")
		}
		return nil, err
	}
	return &stockBook{
		ctx:     ctx,
		repos:   repos,
		items:   items,
		actor:   actor,
		now:     now,
		changed: make(map[string]lastChange),
	}, nil
}

func (b *stockBook) item(id string) *entity.StockItem {
	return b.items[id]
}

type counterOp func(item *entity.StockItem, qty decimal.Decimal) error

var (
	opReserve counterOp = (*entity.StockItem).Reserve
	opRelease counterOp = (*entity.StockItem).Release
	opIssue   counterOp = (*entity.StockItem).Issue
	opAdd     counterOp = (*entity.StockItem).AddProduction
	opReturn  counterOp = (*entity.StockItem).ReturnStock
)

func (b *stockBook) apply(itemID, movementType string, qty decimal.Decimal, op counterOp, ref movementRef) error {
	item, ok := b.items[itemID]
	if !ok {
		return fmt.Errorf("stock item %s was not locked by this transaction", itemID)
	}
	beforeTotal, beforeReserved := item.Total, item.Reserved
	if err := op(item, qty); err != nil {
		return err
	}
	if !item.CheckInvariant() {
		return fmt.Errorf("stock invariant broken on %s: total=%s reserved=%s free=%s", item.Code, item.Total, item.Reserved, item.Free)
	}
	if err := b.repos.Item.SaveCounters(b.ctx, item); err != nil {
		return fmt.Errorf("save counters of %s: %w", item.Code, err)
	}
	m := &entity.StockMovement{
		ID:            uuid.New().String(),
		StockItemID:   item.ID,
		MovementType:  movementType,
		TotalDelta:    item.Total.Sub(beforeTotal),
		ReservedDelta: item.Reserved.Sub(beforeReserved),
		TotalAfter:    item.Total,
		ReservedAfter: item.Reserved,
		FreeAfter:     item.Free,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		ReferenceCode: ref.Code,
		CreatedBy:     b.actor,
		CreatedAt:     b.now,
	}
	if err := b.repos.Movement.Create(b.ctx, m); err != nil {
		return fmt.Errorf("record movement: %w", err)
	}
	if _, seen := b.changed[item.ID]; !seen {
		b.order = append(b.order, item.ID)
	}
	b.changed[item.ID] = lastChange{reason: movementType, reference: ref.Code}
	return nil
}

// opRemove takes qty out of free stock, reserving it first so issue applies
func opRemove(item *entity.StockItem, qty decimal.Decimal) error {
	if err := item.Reserve(qty); err != nil {
		return err
	}
	return item.Issue(qty)
}

// changes returns one event per touched item with its final counters
func (b *stockBook) changes() []events.StockChanged {
	out := make([]events.StockChanged, 0, len(b.order))
	for _, id := range b.order {
		item := b.items[id]
		last := b.changed[id]
		out = append(out, events.StockChanged{
			ItemID:    item.ID,
			Code:      item.Code,
			Total:     item.Total,
			Reserved:  item.Reserved,
			Free:      item.Free,
			Reason:    last.reason,
			Reference: last.reference,
			At:        b.now,
		})
	}
	return out
}
