package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpeditionService 发货拣选
type ExpeditionService struct {
	*core
	outbound *OutboundService
}

// CreateExpedition stages the open quantity of an order: one line per unit for
// serialized goods, one line per order line otherwise. Quantities already on
// other draft expeditions are not staged again.
func (s *ExpeditionService) CreateExpedition(ctx context.Context, orderID, actor string) (*entity.Expedition, error) {
	var exp *entity.Expedition
	err := s.tx.run(ctx, "expedition.create", func(r *repository.Repositories) error {
		order, err := r.Order.FindForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, "order %s not found", orderID)
		}
		open, err := openQuantities(ctx, r, order, "")
		if err != nil {
			return err
		}
		goods, err := r.Item.FindByIDs(ctx, stockItemIDsOf(order.Items))
		if err != nil {
			return err
		}

		now := s.now()
		number, err := r.Number.Next(ctx, repository.NumberExpedition, now)
		if err != nil {
			return err
		}
		exp = &entity.Expedition{
			ID:        uuid.New().String(),
			Number:    number,
			OrderID:   order.ID,
			Status:    entity.ExpeditionStatusDraft,
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		sort := 0
		for _, oi := range order.Items {
			rest := open[oi.ID]
			if !rest.IsPositive() {
				continue
			}
			good := goods[oi.StockItemID]
			if good != nil && good.IsSerialized {
				for n := int64(0); n < rest.IntPart(); n++ {
					exp.Items = append(exp.Items, s.newLine(exp.ID, oi, decimal.NewFromInt(1), sort))
					sort++
				}
				continue
			}
			exp.Items = append(exp.Items, s.newLine(exp.ID, oi, rest, sort))
			sort++
		}
		if len(exp.Items) == 0 {
			return entity.NewDomainError(entity.CodeInvalidTransition, "order %s has nothing left to stage", order.Number)
		}
		return r.Expedition.Create(ctx, exp)
	})
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func (s *ExpeditionService) newLine(expID string, oi entity.OrderItem, qty decimal.Decimal, sort int) entity.ExpeditionItem {
	return entity.ExpeditionItem{
		ID:           uuid.New().String(),
		ExpeditionID: expID,
		OrderItemID:  oi.ID,
		StockItemID:  oi.StockItemID,
		Quantity:     qty,
		SortOrder:    sort,
	}
}

func (s *ExpeditionService) GetExpedition(ctx context.Context, id string) (*entity.Expedition, error) {
	exp, err := s.repos.Expedition.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "expedition %s not found", id)
	}
	return exp, nil
}

// AssignSerial binds a scanned unit to a serialized expedition line.
func (s *ExpeditionService) AssignSerial(ctx context.Context, lineID, serial string) (*entity.ExpeditionItem, error) {
	hexSerial, err := entity.NormalizeSerial(serial)
	if err != nil {
		return nil, err
	}

	var line *entity.ExpeditionItem
	err = s.tx.run(ctx, "expedition.assign_serial", func(r *repository.Repositories) error {
		var err error
		_, line, err = lockLine(ctx, r, lineID, nil)
		if err != nil {
			return err
		}
		expected, err := r.Item.FindByID(ctx, line.StockItemID)
		if err != nil {
			return err
		}
		if !expected.IsSerialized {
			return entity.NewDomainError(entity.CodeValidation, "%s is not tracked by serial number", expected.Code)
		}
		if line.SerializedUnitID != nil {
			return entity.NewDomainError(entity.CodeInvalidTransition, "line already holds a unit")
		}

		unit, err := r.Serial.FindBySerialForUpdate(ctx, hexSerial)
		if errors.Is(err, repository.ErrNotFound) {
			de := entity.NewDomainError(entity.CodeNotFound, "serial %s not found, expected a unit of %s", hexSerial, expected.Name)
			de.ExpectedProduct = expected.Ref()
			return de
		}
		if err != nil {
			return err
		}
		if unit.StockItemID != expected.ID {
			de := entity.NewDomainError(entity.CodeWrongProduct, "serial %s belongs to another product, expected %s", hexSerial, expected.Name)
			de.ExpectedProduct = expected.Ref()
			return de
		}
		check, err := r.Serial.FindCheckByUnit(ctx, unit.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if check != nil && check.Failed() {
			return entity.NewDomainError(entity.CodeQCFailed, "serial %s failed quality check (%s)", hexSerial, check.DefectStatus)
		}
		if unit.Status == entity.SerialStatusShipped {
			return entity.NewDomainError(entity.CodeAlreadyShipped, "serial %s is already shipped", hexSerial)
		}
		if unit.Status != entity.SerialStatusInspected {
			return entity.NewDomainError(entity.CodeNotInspected, "serial %s is %s, not inspected", hexSerial, unit.Status)
		}
		claimed, err := r.Serial.ClaimedByOtherLine(ctx, unit.ID, line.ID)
		if err != nil {
			return err
		}
		if claimed {
			return entity.NewDomainError(entity.CodeAlreadyUsed, "serial %s is already on another expedition line", hexSerial)
		}

		if err := unit.TransitionTo(entity.SerialStatusAssigned); err != nil {
			return err
		}
		if err := r.Serial.UpdateStatus(ctx, unit.ID, unit.Status); err != nil {
			return fmt.Errorf("update serial: %w", err)
		}
		line.SerializedUnitID = &unit.ID
		line.SerializedUnit = unit
		return r.Expedition.UpdateItem(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// SetItemQuantity changes the picked quantity of a non-serialized line.
func (s *ExpeditionService) SetItemQuantity(ctx context.Context, lineID string, qty decimal.Decimal) (*entity.ExpeditionItem, error) {
	if !qty.IsPositive() {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "quantity must be greater than zero")
	}
	var line *entity.ExpeditionItem
	err := s.tx.run(ctx, "expedition.set_quantity", func(r *repository.Repositories) error {
		var order *entity.Order
		exp, locked, err := lockLine(ctx, r, lineID, func(orderID string) error {
			var err error
			order, err = r.Order.FindForUpdate(ctx, orderID)
			return err
		})
		if err != nil {
			return err
		}
		line = locked
		good, err := r.Item.FindByID(ctx, line.StockItemID)
		if err != nil {
			return err
		}
		if good.IsSerialized {
			return entity.NewDomainError(entity.CodeValidation, "serialized lines always carry one unit")
		}
		open, err := openQuantities(ctx, r, order, exp.ID)
		if err != nil {
			return err
		}
		if rest := open[line.OrderItemID]; qty.GreaterThan(rest) {
			return entity.NewDomainError(entity.CodeInvalidQuantity, "quantity %s exceeds open order quantity %s", qty, rest)
		}
		line.Quantity = qty
		return r.Expedition.UpdateItem(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// lockLine locks a draft expedition and then one of its lines. lockOrder, when
// set, runs before the expedition lock so the order row is always taken first.
func lockLine(ctx context.Context, r *repository.Repositories, lineID string, lockOrder func(orderID string) error) (*entity.Expedition, *entity.ExpeditionItem, error) {
	peek, err := r.Expedition.FindItemByID(ctx, lineID)
	if err != nil {
		return nil, nil, notFound(err, "expedition line %s not found", lineID)
	}
	if lockOrder != nil {
		header, err := r.Expedition.FindByID(ctx, peek.ExpeditionID)
		if err != nil {
			return nil, nil, err
		}
		if err := lockOrder(header.OrderID); err != nil {
			return nil, nil, err
		}
	}
	exp, err := r.Expedition.FindForUpdate(ctx, peek.ExpeditionID)
	if err != nil {
		return nil, nil, err
	}
	if exp.IsClosed() {
		return nil, nil, entity.NewDomainError(entity.CodeInvalidTransition, "expedition %s is %s", exp.Number, exp.Status)
	}
	line, err := r.Expedition.FindItemForUpdate(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	return exp, line, nil
}

// Close moves the expedition to ready or shipped and issues its lines. Closing
// an expedition whose issue already exists returns it unchanged.
func (s *ExpeditionService) Close(ctx context.Context, expeditionID, status, actor string) (*entity.Expedition, error) {
	if status != entity.ExpeditionStatusReady && status != entity.ExpeditionStatusShipped {
		return nil, entity.NewDomainError(entity.CodeValidation, "expedition can only close as ready or shipped")
	}
	var (
		exp  *entity.Expedition
		book *stockBook
	)
	err := s.tx.run(ctx, "expedition.close", func(r *repository.Repositories) error {
		book = nil
		header, err := r.Expedition.FindByID(ctx, expeditionID)
		if err != nil {
			return notFound(err, "expedition %s not found", expeditionID)
		}
		order, err := r.Order.FindForUpdate(ctx, header.OrderID)
		if err != nil {
			return err
		}
		exp, err = r.Expedition.FindForUpdate(ctx, expeditionID)
		if err != nil {
			return err
		}
		if exp.StockIssueID != nil {
			return nil
		}
		if existing, err := r.Issue.FindByExpedition(ctx, exp.ID); err == nil {
			exp.StockIssueID = &existing.ID
			return r.Expedition.SaveHeader(ctx, exp)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// lines may have been staged before another issue took part of the order
		issued, err := r.Order.IssuedByOrderItem(ctx, order.ID)
		if err != nil {
			return err
		}
		picked := make(map[string]decimal.Decimal, len(exp.Items))
		for _, it := range exp.Items {
			picked[it.OrderItemID] = picked[it.OrderItemID].Add(it.Quantity)
		}
		for _, oi := range order.Items {
			qty, ok := picked[oi.ID]
			if !ok {
				continue
			}
			if rest := oi.Quantity.Sub(issued[oi.ID]); qty.GreaterThan(rest) {
				return entity.NewDomainError(entity.CodeInvalidQuantity,
					"expedition %s ships %s of an order line with %s still open", exp.Number, qty, rest)
			}
		}

		var unitIDs []string
		for _, it := range exp.Items {
			if it.SerializedUnitID != nil {
				unitIDs = append(unitIDs, *it.SerializedUnitID)
			}
		}
		locked, err := r.Serial.LockByIDs(ctx, unitIDs)
		if err != nil {
			return fmt.Errorf("lock serialized units: %w", err)
		}
		units := make(map[string]entity.SerializedUnit, len(locked))
		for _, u := range locked {
			units[u.ID] = u
		}
		goods, err := r.Item.FindByIDs(ctx, expeditionItemIDs(exp.Items))
		if err != nil {
			return err
		}

		lines := make([]issueLine, 0, len(exp.Items))
		for i := range exp.Items {
			it := &exp.Items[i]
			orderItemID := it.OrderItemID
			line := issueLine{orderItemID: &orderItemID, stockItemID: it.StockItemID, qty: it.Quantity, expItem: it}
			if g := goods[it.StockItemID]; g != nil && g.IsSerialized {
				if it.SerializedUnitID == nil {
					return entity.NewDomainError(entity.CodeUnassignedSerial, "line %d of %s has no serial number assigned", it.SortOrder+1, g.Code)
				}
				unit, ok := units[*it.SerializedUnitID]
				if !ok {
					return entity.NewDomainError(entity.CodeNotFound, "serialized unit %s on line %d of %s not found", *it.SerializedUnitID, it.SortOrder+1, g.Code)
				}
				line.units = []entity.SerializedUnit{unit}
			}
			lines = append(lines, line)
		}

		issue := &entity.StockIssue{OrderID: &exp.OrderID, ExpeditionID: &exp.ID}
		book, err = s.outbound.execute(ctx, r, issue, lines, actor)
		if err != nil {
			return err
		}
		for i := range exp.Items {
			if err := r.Expedition.UpdateItem(ctx, &exp.Items[i]); err != nil {
				return fmt.Errorf("link expedition line: %w", err)
			}
		}
		now := s.now()
		exp.Status = status
		exp.StockIssueID = &issue.ID
		exp.ClosedAt = &now
		if err := r.Expedition.SaveHeader(ctx, exp); err != nil {
			return fmt.Errorf("close expedition: %w", err)
		}
		return s.outbound.refreshOrder(ctx, r, exp.OrderID)
	})
	if err != nil {
		return nil, err
	}
	if book != nil {
		s.logger.Info("expedition closed",
			zap.String("expedition", exp.Number),
			zap.String("status", exp.Status),
			zap.String("actor", actor),
		)
		s.publish(ctx, book)
	}
	return exp, nil
}

func expeditionItemIDs(items []entity.ExpeditionItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.StockItemID)
	}
	return ids
}
