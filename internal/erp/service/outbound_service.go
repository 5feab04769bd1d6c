package service

import (
	"context"
	"fmt"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OutboundService 订单、出库与冲销
type OutboundService struct {
	*core
}

// ========== Orders ==========

type OrderLineRequest struct {
	StockItemID string          `json:"stock_item_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateOrderRequest struct {
	Customer string             `json:"customer" binding:"required"`
	Lines    []OrderLineRequest `json:"lines" binding:"required,min=1"`
}

func (s *OutboundService) CreateOrder(ctx context.Context, req CreateOrderRequest, actor string) (*entity.Order, error) {
	if len(req.Lines) == 0 {
		return nil, entity.NewDomainError(entity.CodeValidation, "order needs at least one line")
	}
	ids := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "order line quantity must be greater than zero")
		}
		if l.UnitPrice.IsNegative() {
			return nil, entity.NewDomainError(entity.CodeValidation, "unit price cannot be negative")
		}
		ids = append(ids, l.StockItemID)
	}

	var order *entity.Order
	err := s.tx.run(ctx, "order.create", func(r *repository.Repositories) error {
		items, err := r.Item.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		now := s.now()
		number, err := r.Number.Next(ctx, repository.NumberOrder, now)
		if err != nil {
			return err
		}
		order = &entity.Order{
			ID:        uuid.New().String(),
			Number:    number,
			Customer:  req.Customer,
			Status:    entity.OrderStatusPending,
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, l := range req.Lines {
			item, ok := items[l.StockItemID]
			if !ok {
				return entity.NewDomainError(entity.CodeNotFound, "stock item %s not found", l.StockItemID)
			}
			if item.IsSerialized && !l.Quantity.IsInteger() {
				return entity.NewDomainError(entity.CodeInvalidQuantity, "serialized item %s needs a whole quantity", item.Code)
			}
			price := l.UnitPrice
			if price.IsZero() {
				price = item.UnitPrice
			}
			order.Items = append(order.Items, entity.OrderItem{
				ID:             uuid.New().String(),
				OrderID:        order.ID,
				StockItemID:    item.ID,
				Quantity:       l.Quantity,
				UnitPrice:      price,
				IssuedQuantity: decimal.Zero,
				Status:         entity.OrderStatusPending,
				SortOrder:      i,
			})
		}
		return r.Order.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OutboundService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.repos.Order.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order %s not found", id)
	}
	return order, nil
}

// ========== Issues ==========

func (s *OutboundService) GetIssue(ctx context.Context, id string) (*entity.StockIssue, error) {
	issue, err := s.repos.Issue.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "stock issue %s not found", id)
	}
	return issue, nil
}

// issueLine is one product line to take out of stock
type issueLine struct {
	orderItemID *string
	stockItemID string
	qty         decimal.Decimal
	units       []entity.SerializedUnit
	expItem     *entity.ExpeditionItem
}

// CreateIssueFromOrder issues whatever is still open on the order's lines and
// not staged on a draft expedition. Serialized goods ship assigned units that no
// draft expedition holds.
func (s *OutboundService) CreateIssueFromOrder(ctx context.Context, orderID, actor string) (*entity.StockIssue, error) {
	var (
		issue *entity.StockIssue
		book  *stockBook
	)
	err := s.tx.run(ctx, "issue.from_order", func(r *repository.Repositories) error {
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

		var lines []issueLine
		for i := range order.Items {
			oi := &order.Items[i]
			rest := open[oi.ID]
			if !rest.IsPositive() {
				continue
			}
			line := issueLine{orderItemID: &oi.ID, stockItemID: oi.StockItemID, qty: rest}
			if g := goods[oi.StockItemID]; g != nil && g.IsSerialized {
				need := int(rest.IntPart())
				units, err := r.Serial.PickAssigned(ctx, oi.StockItemID, need)
				if err != nil {
					return fmt.Errorf("pick serialized units: %w", err)
				}
				if len(units) < need {
					return entity.NewDomainError(entity.CodeInsufficientAvailable,
						"only %d assigned units of %s available, %d needed", len(units), g.Code, need)
				}
				line.units = units
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			return entity.NewDomainError(entity.CodeInvalidTransition, "order %s has nothing left to issue", order.Number)
		}

		issue = &entity.StockIssue{OrderID: &order.ID}
		book, err = s.execute(ctx, r, issue, lines, actor)
		if err != nil {
			return err
		}
		return s.refreshOrder(ctx, r, order.ID)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, book)
	return issue, nil
}

// execute applies lines as one issue: products leave stock, manufactured goods
// take their recipe ingredients with them and serialized units become shipped.
func (s *OutboundService) execute(ctx context.Context, r *repository.Repositories, issue *entity.StockIssue, lines []issueLine, actor string) (*stockBook, error) {
	productIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.stockItemID)
	}
	recipes, err := r.BOM.ListByGoods(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	lockIDs := append([]string{}, productIDs...)
	for _, edges := range recipes {
		lockIDs = append(lockIDs, ingredientIDs(edges)...)
	}
	now := s.now()
	book, err := openBook(ctx, r, lockIDs, actor, now)
	if err != nil {
		return nil, err
	}

	// every product line must be covered by free stock before anything moves
	demand := make(map[string]decimal.Decimal)
	for _, l := range lines {
		demand[l.stockItemID] = demand[l.stockItemID].Add(l.qty)
	}
	var shortages []entity.Shortage
	for _, id := range productIDs {
		item := book.item(id)
		need, ok := demand[id]
		if !ok {
			continue
		}
		delete(demand, id)
		if need.GreaterThan(item.Free) {
			shortages = append(shortages, entity.Shortage{
				IngredientID: item.ID, IngredientCode: item.Code, Ingredient: item.Name,
				Required: need, Available: item.Free,
			})
		}
	}
	if len(shortages) > 0 {
		err := entity.NewShortageError(shortages)
		err.Message = "insufficient free stock: " + err.Message
		return nil, err
	}

	number, err := r.Number.Next(ctx, repository.NumberIssue, now)
	if err != nil {
		return nil, err
	}
	issue.ID = uuid.New().String()
	issue.Number = number
	issue.CreatedBy = actor
	issue.CreatedAt = now
	issue.UpdatedAt = now
	ref := movementRef{Type: entity.RefTypeIssue, ID: issue.ID, Code: issue.Number}

	for _, l := range lines {
		good := book.item(l.stockItemID)
		item := entity.StockIssueItem{
			ID:          uuid.New().String(),
			IssueID:     issue.ID,
			StockItemID: l.stockItemID,
			OrderItemID: l.orderItemID,
			Quantity:    l.qty,
		}

		if good.IsManufactured() {
			for _, e := range recipes[good.ID] {
				required := e.Required(l.qty)
				fromReserved := decimal.Min(required, book.item(e.IngredientID).Reserved)
				if err := book.apply(e.IngredientID, entity.MovementIngredientOut, required, opIssueIngredient, ref); err != nil {
					return nil, err
				}
				item.Ingredients = append(item.Ingredients, entity.StockIssueIngredient{
					ID:           uuid.New().String(),
					IssueItemID:  item.ID,
					IngredientID: e.IngredientID,
					Quantity:     required,
					FromReserved: fromReserved,
				})
			}
		}

		if err := book.apply(l.stockItemID, entity.MovementSalesOut, l.qty, opRemove, ref); err != nil {
			return nil, err
		}

		for i := range l.units {
			u := &l.units[i]
			if err := u.TransitionTo(entity.SerialStatusShipped); err != nil {
				return nil, err
			}
			if err := r.Serial.UpdateStatus(ctx, u.ID, u.Status); err != nil {
				return nil, fmt.Errorf("update serial %s: %w", u.SerialHex, err)
			}
			item.Instances = append(item.Instances, entity.StockIssueInstance{
				ID:               uuid.New().String(),
				IssueItemID:      item.ID,
				SerializedUnitID: u.ID,
			})
		}
		if l.expItem != nil {
			id := item.ID
			l.expItem.StockIssueItemID = &id
		}
		issue.Items = append(issue.Items, item)
	}

	if err := r.Issue.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create stock issue: %w", err)
	}
	return book, nil
}

// opIssueIngredient issues an ingredient, first reserving whatever the
// production reservation does not cover.
func opIssueIngredient(item *entity.StockItem, qty decimal.Decimal) error {
	if short := qty.Sub(item.Reserved); short.IsPositive() {
		if err := item.Reserve(short); err != nil {
			return err
		}
	}
	return item.Issue(qty)
}

// Storno reverses an issue completely. Products and ingredients return to
// stock, the ingredient reservation consumed by the issue is restored and
// shipped units go back to assigned.
func (s *OutboundService) Storno(ctx context.Context, issueID, actor string) (*entity.StockIssue, error) {
	var (
		issue *entity.StockIssue
		book  *stockBook
	)
	err := s.tx.run(ctx, "issue.storno", func(r *repository.Repositories) error {
		var err error
		issue, err = r.Issue.FindForUpdate(ctx, issueID)
		if err != nil {
			return notFound(err, "stock issue %s not found", issueID)
		}
		if issue.IsStorno {
			return entity.NewDomainError(entity.CodeAlreadyStorno, "stock issue %s is already reversed", issue.Number)
		}

		var lockIDs, unitIDs []string
		for _, it := range issue.Items {
			lockIDs = append(lockIDs, it.StockItemID)
			for _, ing := range it.Ingredients {
				lockIDs = append(lockIDs, ing.IngredientID)
			}
			for _, inst := range it.Instances {
				unitIDs = append(unitIDs, inst.SerializedUnitID)
			}
		}
		now := s.now()
		book, err = openBook(ctx, r, lockIDs, actor, now)
		if err != nil {
			return err
		}
		units, err := r.Serial.LockByIDs(ctx, unitIDs)
		if err != nil {
			return fmt.Errorf("lock serialized units: %w", err)
		}

		ref := movementRef{Type: entity.RefTypeStorno, ID: issue.ID, Code: issue.Number}
		for _, it := range issue.Items {
			if err := book.apply(it.StockItemID, entity.MovementStornoIn, it.Quantity, opReturn, ref); err != nil {
				return err
			}
			for _, ing := range it.Ingredients {
				if err := book.apply(ing.IngredientID, entity.MovementIngredientReturn, ing.Quantity, opReturn, ref); err != nil {
					return err
				}
				if ing.FromReserved.IsPositive() {
					if err := book.apply(ing.IngredientID, entity.MovementIngredientReserve, ing.FromReserved, opReserve, ref); err != nil {
						return err
					}
				}
			}
		}
		for i := range units {
			u := &units[i]
			if err := u.RevertShipment(); err != nil {
				return err
			}
			if err := r.Serial.UpdateStatus(ctx, u.ID, u.Status); err != nil {
				return fmt.Errorf("update serial %s: %w", u.SerialHex, err)
			}
		}

		if err := r.Issue.MarkStorno(ctx, issue.ID, actor, now); err != nil {
			return fmt.Errorf("mark storno: %w", err)
		}
		issue.IsStorno = true
		issue.StornoAt = &now
		issue.StornoBy = actor
		if issue.OrderID != nil {
			return s.refreshOrder(ctx, r, *issue.OrderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock issue reversed",
		zap.String("issue", issue.Number),
		zap.String("actor", actor),
	)
	s.publish(ctx, book)
	return issue, nil
}

// refreshOrder re-derives issued quantities and statuses of an order from its
// non-storno issues.
func (s *OutboundService) refreshOrder(ctx context.Context, r *repository.Repositories, orderID string) error {
	order, err := r.Order.FindForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	issued, err := r.Order.IssuedByOrderItem(ctx, orderID)
	if err != nil {
		return err
	}
	for i := range order.Items {
		oi := &order.Items[i]
		oi.IssuedQuantity = issued[oi.ID]
		oi.Status = entity.OrderItemStatus(oi.IssuedQuantity, oi.Quantity)
		if err := r.Order.SaveItemProgress(ctx, oi); err != nil {
			return fmt.Errorf("update order item: %w", err)
		}
	}
	order.Status = entity.OrderStatusOf(order.Items)
	return r.Order.SaveStatus(ctx, order)
}

// openQuantities is ordered minus issued minus staged on draft expeditions, per
// order line. exceptExpeditionID leaves that expedition's lines out of staged.
func openQuantities(ctx context.Context, r *repository.Repositories, order *entity.Order, exceptExpeditionID string) (map[string]decimal.Decimal, error) {
	issued, err := r.Order.IssuedByOrderItem(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	staged, err := r.Expedition.StagedByOrderItem(ctx, order.ID, exceptExpeditionID)
	if err != nil {
		return nil, err
	}
	open := make(map[string]decimal.Decimal, len(order.Items))
	for _, oi := range order.Items {
		open[oi.ID] = oi.Quantity.Sub(issued[oi.ID]).Sub(staged[oi.ID])
	}
	return open, nil
}

func stockItemIDsOf(items []entity.OrderItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.StockItemID)
	}
	return ids
}
