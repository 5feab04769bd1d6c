package service

import (
	"context"
	"fmt"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductionService 生产计划、生产卡与入库
type ProductionService struct {
	*core
}

// CardResult is the entity graph returned by card operations
type CardResult struct {
	Card     *entity.ProductionCard     `json:"card"`
	PlanItem *entity.ProductionPlanItem `json:"plan_item,omitempty"`
	Receipt  *entity.StockReceipt       `json:"receipt,omitempty"`
}

// ========== Plans ==========

type CreatePlanRequest struct {
	Number    string    `json:"number" binding:"required"`
	PlanType  string    `json:"plan_type"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

func (s *ProductionService) CreatePlan(ctx context.Context, req CreatePlanRequest, actor string) (*entity.ProductionPlan, error) {
	planType := req.PlanType
	if planType == "" {
		planType = entity.PlanTypeMonthly
	}
	if planType != entity.PlanTypeMonthly && planType != entity.PlanTypeWeekly {
		return nil, entity.NewDomainError(entity.CodeValidation, "unknown plan type %q", planType)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, entity.NewDomainError(entity.CodeValidation, "plan end date is before its start date")
	}
	plan := &entity.ProductionPlan{
		ID:        uuid.New().String(),
		Number:    req.Number,
		PlanType:  planType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedBy: actor,
	}
	if err := s.repos.Production.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create production plan: %w", err)
	}
	return plan, nil
}

func (s *ProductionService) GetPlan(ctx context.Context, id string) (*entity.ProductionPlan, error) {
	plan, err := s.repos.Production.FindPlan(ctx, id)
	if err != nil {
		return nil, notFound(err, "production plan %s not found", id)
	}
	return plan, nil
}

type AddPlanItemRequest struct {
	StockItemID     string     `json:"stock_item_id" binding:"required"`
	PlannedQuantity int64      `json:"planned_quantity"`
	PlannedDate     *time.Time `json:"planned_date"`
}

func (s *ProductionService) AddPlanItem(ctx context.Context, planID string, req AddPlanItemRequest) (*entity.ProductionPlanItem, error) {
	if req.PlannedQuantity <= 0 {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "planned quantity must be greater than zero")
	}
	plan, err := s.repos.Production.FindPlan(ctx, planID)
	if err != nil {
		return nil, notFound(err, "production plan %s not found", planID)
	}
	good, err := s.repos.Item.FindByID(ctx, req.StockItemID)
	if err != nil {
		return nil, notFound(err, "stock item %s not found", req.StockItemID)
	}
	if good.ItemType == entity.ItemTypeRaw {
		return nil, entity.NewDomainError(entity.CodeValidation, "raw material %s cannot be planned for production", good.Code)
	}
	if req.PlannedDate != nil && (req.PlannedDate.Before(plan.StartDate) || req.PlannedDate.After(plan.EndDate)) {
		return nil, entity.NewDomainError(entity.CodeValidation, "planned date is outside the plan range")
	}
	item := &entity.ProductionPlanItem{
		ID:              uuid.New().String(),
		PlanID:          plan.ID,
		StockItemID:     good.ID,
		PlannedQuantity: req.PlannedQuantity,
		PlannedDate:     req.PlannedDate,
		Status:          entity.ProductionStatusPending,
	}
	if err := s.repos.Production.CreatePlanItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create plan item: %w", err)
	}
	return item, nil
}

// CancelPlanItem cancels a plan item that has no cards yet.
func (s *ProductionService) CancelPlanItem(ctx context.Context, id string) (*entity.ProductionPlanItem, error) {
	var item *entity.ProductionPlanItem
	err := s.tx.run(ctx, "plan_item.cancel", func(r *repository.Repositories) error {
		var err error
		item, err = r.Production.FindPlanItemForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "plan item %s not found", id)
		}
		if item.Status == entity.ProductionStatusCanceled {
			return entity.NewDomainError(entity.CodeInvalidTransition, "plan item is already canceled")
		}
		if item.TransferredQuantity > 0 {
			return entity.NewDomainError(entity.CodeInvalidTransition, "plan item already has %d transferred to cards", item.TransferredQuantity)
		}
		item.Status = entity.ProductionStatusCanceled
		return r.Production.SavePlanItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ========== Cards ==========

type CreateCardRequest struct {
	PlanItemID string `json:"plan_item_id" binding:"required"`
	// Quantity defaults to the remaining planned quantity
	Quantity *int64 `json:"quantity"`
}

// CreateCard transfers part of a plan item to a new production card.
func (s *ProductionService) CreateCard(ctx context.Context, req CreateCardRequest, actor string) (*CardResult, error) {
	var res *CardResult
	err := s.tx.run(ctx, "card.create", func(r *repository.Repositories) error {
		planItem, err := r.Production.FindPlanItemForUpdate(ctx, req.PlanItemID)
		if err != nil {
			return notFound(err, "plan item %s not found", req.PlanItemID)
		}
		if planItem.Status == entity.ProductionStatusCanceled {
			return entity.NewDomainError(entity.CodeInvalidTransition, "plan item is canceled")
		}

		available := planItem.Remaining()
		qty := available
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		if qty <= 0 {
			return entity.NewDomainError(entity.CodeInvalidQuantity, "card quantity must be greater than zero, got %d", qty)
		}
		if qty > available {
			return entity.NewDomainError(entity.CodeInsufficientPlan, "requested %d exceeds remaining planned quantity %d", qty, available)
		}

		edges, err := r.BOM.ListByGood(ctx, planItem.StockItemID)
		if err != nil {
			return fmt.Errorf("load recipe: %w", err)
		}
		now := s.now()
		book, err := openBook(ctx, r, append([]string{planItem.StockItemID}, ingredientIDs(edges)...), actor, now)
		if err != nil {
			return err
		}
		good := book.item(planItem.StockItemID)
		if good.ItemType != entity.ItemTypeRaw {
			if err := s.bom.CheckFeasibility(good, edges, decimal.NewFromInt(qty), book.items); err != nil {
				return err
			}
		}

		number, err := r.Number.Next(ctx, repository.NumberCard, now)
		if err != nil {
			return err
		}
		card := &entity.ProductionCard{
			ID:              uuid.New().String(),
			Number:          number,
			PlanItemID:      planItem.ID,
			StockItemID:     planItem.StockItemID,
			PlannedQuantity: qty,
			Status:          entity.ProductionStatusInProduction,
			CreatedBy:       actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := r.Production.CreateCard(ctx, card); err != nil {
			return fmt.Errorf("create card: %w", err)
		}

		planItem.TransferredQuantity += qty
		planItem.Status = entity.PlanItemStatus(planItem.TransferredQuantity, planItem.PlannedQuantity)
		if err := r.Production.SavePlanItem(ctx, planItem); err != nil {
			return fmt.Errorf("update plan item: %w", err)
		}
		res = &CardResult{Card: card, PlanItem: planItem}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ProductionService) GetCard(ctx context.Context, id string) (*entity.ProductionCard, error) {
	card, err := s.repos.Production.FindCard(ctx, id)
	if err != nil {
		return nil, notFound(err, "production card %s not found", id)
	}
	return card, nil
}

// UpdateProduced adds produced units: the card progresses, a receipt brings the
// units into stock and the recipe ingredients get reserved.
func (s *ProductionService) UpdateProduced(ctx context.Context, cardID string, added int64, actor string) (*CardResult, error) {
	if added < 0 {
		return nil, entity.NewDomainError(entity.CodeNonDecreasingViolation, "produced quantity cannot decrease (got %d)", added)
	}
	if added == 0 {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "added quantity must be greater than zero")
	}

	var (
		res  *CardResult
		book *stockBook
	)
	err := s.tx.run(ctx, "card.produced", func(r *repository.Repositories) error {
		card, err := r.Production.FindCardForUpdate(ctx, cardID)
		if err != nil {
			return notFound(err, "production card %s not found", cardID)
		}
		if card.Finished() {
			return entity.NewDomainError(entity.CodeInvalidTransition, "card %s is %s", card.Number, card.Status)
		}
		status, err := entity.CardStatus(card.ProducedQuantity+added, card.DefectiveQuantity, card.PlannedQuantity)
		if err != nil {
			return err
		}

		edges, err := r.BOM.ListByGood(ctx, card.StockItemID)
		if err != nil {
			return fmt.Errorf("load recipe: %w", err)
		}
		now := s.now()
		book, err = openBook(ctx, r, append([]string{card.StockItemID}, ingredientIDs(edges)...), actor, now)
		if err != nil {
			return err
		}
		qty := decimal.NewFromInt(added)
		if err := s.bom.CheckFeasibility(book.item(card.StockItemID), edges, qty, book.items); err != nil {
			return err
		}

		number, err := r.Number.Next(ctx, repository.NumberReceipt, now)
		if err != nil {
			return err
		}
		plan, err := r.Production.FindPlanItem(ctx, card.PlanItemID)
		if err != nil {
			return err
		}
		receipt := &entity.StockReceipt{
			ID:          uuid.New().String(),
			Number:      number,
			StockItemID: card.StockItemID,
			Quantity:    qty,
			Source:      entity.ReceiptSourceProduction,
			CardID:      &card.ID,
			PlanID:      &plan.PlanID,
			CreatedBy:   actor,
			CreatedAt:   now,
		}
		if err := r.Receipt.Create(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		ref := movementRef{Type: entity.RefTypeReceipt, ID: receipt.ID, Code: receipt.Number}
		if err := book.apply(card.StockItemID, entity.MovementProductionIn, qty, opAdd, ref); err != nil {
			return err
		}
		if err := s.bom.Consume(book, edges, qty, movementRef{Type: entity.RefTypeCard, ID: card.ID, Code: card.Number}); err != nil {
			return err
		}

		card.ProducedQuantity += added
		card.Status = status
		if err := r.Production.SaveCard(ctx, card); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		res = &CardResult{Card: card, Receipt: receipt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, book)
	return res, nil
}

// UpdateDefective books scrapped units on a card. No stock moves.
func (s *ProductionService) UpdateDefective(ctx context.Context, cardID string, added int64) (*CardResult, error) {
	if added < 0 {
		return nil, entity.NewDomainError(entity.CodeNonDecreasingViolation, "defective quantity cannot decrease (got %d)", added)
	}
	if added == 0 {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "added quantity must be greater than zero")
	}
	var res *CardResult
	err := s.tx.run(ctx, "card.defective", func(r *repository.Repositories) error {
		card, err := r.Production.FindCardForUpdate(ctx, cardID)
		if err != nil {
			return notFound(err, "production card %s not found", cardID)
		}
		if card.Finished() {
			return entity.NewDomainError(entity.CodeInvalidTransition, "card %s is %s", card.Number, card.Status)
		}
		status, err := entity.CardStatus(card.ProducedQuantity, card.DefectiveQuantity+added, card.PlannedQuantity)
		if err != nil {
			return err
		}
		card.DefectiveQuantity += added
		card.Status = status
		if err := r.Production.SaveCard(ctx, card); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		res = &CardResult{Card: card}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CancelCard stops a card and gives its unfinished quantity back to the plan item.
func (s *ProductionService) CancelCard(ctx context.Context, cardID string) (*CardResult, error) {
	var res *CardResult
	err := s.tx.run(ctx, "card.cancel", func(r *repository.Repositories) error {
		card, err := r.Production.FindCardForUpdate(ctx, cardID)
		if err != nil {
			return notFound(err, "production card %s not found", cardID)
		}
		if card.Finished() {
			return entity.NewDomainError(entity.CodeInvalidTransition, "card %s is already %s", card.Number, card.Status)
		}
		planItem, err := r.Production.FindPlanItemForUpdate(ctx, card.PlanItemID)
		if err != nil {
			return err
		}
		if rest := card.Unfinished(); rest > 0 {
			giveBack(planItem, rest)
			if err := r.Production.SavePlanItem(ctx, planItem); err != nil {
				return fmt.Errorf("update plan item: %w", err)
			}
		}
		card.Status = entity.ProductionStatusCanceled
		if err := r.Production.SaveCard(ctx, card); err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		res = &CardResult{Card: card, PlanItem: planItem}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteCard removes a card that has recorded nothing and returns its quantity to the plan item.
func (s *ProductionService) DeleteCard(ctx context.Context, cardID string) (*entity.ProductionPlanItem, error) {
	var planItem *entity.ProductionPlanItem
	err := s.tx.run(ctx, "card.delete", func(r *repository.Repositories) error {
		card, err := r.Production.FindCardForUpdate(ctx, cardID)
		if err != nil {
			return notFound(err, "production card %s not found", cardID)
		}
		deletable := card.Status == entity.ProductionStatusPending || card.Status == entity.ProductionStatusInProduction
		if !deletable || card.ProducedQuantity > 0 || card.DefectiveQuantity > 0 {
			return entity.NewDomainError(entity.CodeInvalidTransition, "card %s is %s and cannot be deleted", card.Number, card.Status)
		}
		planItem, err = r.Production.FindPlanItemForUpdate(ctx, card.PlanItemID)
		if err != nil {
			return err
		}
		giveBack(planItem, card.PlannedQuantity)
		if err := r.Production.SavePlanItem(ctx, planItem); err != nil {
			return fmt.Errorf("update plan item: %w", err)
		}
		return r.Production.DeleteCard(ctx, card.ID)
	})
	if err != nil {
		return nil, err
	}
	return planItem, nil
}

func giveBack(planItem *entity.ProductionPlanItem, qty int64) {
	planItem.TransferredQuantity -= qty
	if planItem.TransferredQuantity < 0 {
		planItem.TransferredQuantity = 0
	}
	if planItem.Status != entity.ProductionStatusCanceled {
		planItem.Status = entity.PlanItemStatus(planItem.TransferredQuantity, planItem.PlannedQuantity)
	}
}

// ========== Receipts ==========

type ManualReceiptRequest struct {
	StockItemID   string          `json:"stock_item_id" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	InvoiceNumber string          `json:"invoice_number"`
}

// CreateManualReceipt books purchased or otherwise received stock.
func (s *ProductionService) CreateManualReceipt(ctx context.Context, req ManualReceiptRequest, actor string) (*entity.StockReceipt, error) {
	if !req.Quantity.IsPositive() {
		return nil, entity.NewDomainError(entity.CodeInvalidQuantity, "receipt quantity must be greater than zero")
	}
	var (
		receipt *entity.StockReceipt
		book    *stockBook
	)
	err := s.tx.run(ctx, "receipt.manual", func(r *repository.Repositories) error {
		now := s.now()
		var err error
		book, err = openBook(ctx, r, []string{req.StockItemID}, actor, now)
		if err != nil {
			return err
		}
		item := book.item(req.StockItemID)
		if item.IsSerialized && !req.Quantity.IsInteger() {
			return entity.NewDomainError(entity.CodeInvalidQuantity, "serialized item %s needs a whole quantity", item.Code)
		}
		number, err := r.Number.Next(ctx, repository.NumberReceipt, now)
		if err != nil {
			return err
		}
		receipt = &entity.StockReceipt{
			ID:            uuid.New().String(),
			Number:        number,
			StockItemID:   item.ID,
			Quantity:      req.Quantity,
			Source:        entity.ReceiptSourceManual,
			InvoiceNumber: req.InvoiceNumber,
			CreatedBy:     actor,
			CreatedAt:     now,
		}
		if err := r.Receipt.Create(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return book.apply(item.ID, entity.MovementManualIn, req.Quantity, opAdd,
			movementRef{Type: entity.RefTypeReceipt, ID: receipt.ID, Code: receipt.Number})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, book)
	return receipt, nil
}

// DeleteReceipt reverses a receipt. The received quantity must still be free.
// A production receipt also lowers the card's produced count and releases the
// ingredient reservation made for it.
func (s *ProductionService) DeleteReceipt(ctx context.Context, receiptID, actor string) error {
	var book *stockBook
	err := s.tx.run(ctx, "receipt.delete", func(r *repository.Repositories) error {
		receipt, err := r.Receipt.FindForUpdate(ctx, receiptID)
		if err != nil {
			return notFound(err, "stock receipt %s not found", receiptID)
		}

		var (
			card  *entity.ProductionCard
			edges []entity.BOMEdge
		)
		if receipt.Source == entity.ReceiptSourceProduction && receipt.CardID != nil {
			card, err = r.Production.FindCardForUpdate(ctx, *receipt.CardID)
			if err != nil {
				return err
			}
			if card.Status == entity.ProductionStatusCanceled {
				return entity.NewDomainError(entity.CodeInvalidTransition, "card %s is canceled", card.Number)
			}
			edges, err = r.BOM.ListByGood(ctx, receipt.StockItemID)
			if err != nil {
				return fmt.Errorf("load recipe: %w", err)
			}
		}

		book, err = openBook(ctx, r, append([]string{receipt.StockItemID}, ingredientIDs(edges)...), actor, s.now())
		if err != nil {
			return err
		}
		ref := movementRef{Type: entity.RefTypeReceipt, ID: receipt.ID, Code: receipt.Number}
		if err := book.apply(receipt.StockItemID, entity.MovementReceiptReversal, receipt.Quantity, opRemove, ref); err != nil {
			return err
		}

		if card != nil {
			qty := receipt.Quantity.IntPart()
			card.ProducedQuantity -= qty
			if card.ProducedQuantity < 0 {
				card.ProducedQuantity = 0
			}
			if card.Status, err = entity.CardStatus(card.ProducedQuantity, card.DefectiveQuantity, card.PlannedQuantity); err != nil {
				return err
			}
			if err := r.Production.SaveCard(ctx, card); err != nil {
				return fmt.Errorf("update card: %w", err)
			}
			if err := s.bom.Reverse(book, edges, receipt.Quantity, ref); err != nil {
				return err
			}
		}
		return r.Receipt.Delete(ctx, receipt.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("stock receipt reversed", zap.String("receipt_id", receiptID), zap.String("actor", actor))
	s.publish(ctx, book)
	return nil
}

// ========== Shortage report ==========

// ShortageWarning is one order line not covered by active production
type ShortageWarning struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Ordered     decimal.Decimal `json:"ordered"`
	Planned     decimal.Decimal `json:"planned"`
	Missing     decimal.Decimal `json:"missing"`
	OrderNumber string          `json:"order_number"`
	Customer    string          `json:"customer_name"`
}

type ShortageReport struct {
	TotalWarnings   int               `json:"total_warnings"`
	TotalMissingQty decimal.Decimal   `json:"total_missing_qty_sum"`
	Warnings        []ShortageWarning `json:"warnings"`
}

// ShortageReport compares open order demand for manufactured goods with the
// planned quantity of active cards (or of one card). Supply covers the oldest
// orders first.
func (s *ProductionService) ShortageReport(ctx context.Context, cardID string) (*ShortageReport, error) {
	orders, err := s.repos.Order.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	cards, err := s.repos.Production.ListActiveCards(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list active cards: %w", err)
	}
	planned := make(map[string]decimal.Decimal)
	for _, c := range cards {
		planned[c.StockItemID] = planned[c.StockItemID].Add(decimal.NewFromInt(c.PlannedQuantity))
	}

	type demand struct {
		order *entity.Order
		item  *entity.OrderItem
	}
	var productOrder []string
	byProduct := make(map[string][]demand)
	for i := range orders {
		for j := range orders[i].Items {
			it := &orders[i].Items[j]
			if it.StockItem == nil || !it.StockItem.IsManufactured() {
				continue
			}
			if _, ok := byProduct[it.StockItemID]; !ok {
				productOrder = append(productOrder, it.StockItemID)
			}
			byProduct[it.StockItemID] = append(byProduct[it.StockItemID], demand{order: &orders[i], item: it})
		}
	}

	report := &ShortageReport{TotalMissingQty: decimal.Zero, Warnings: []ShortageWarning{}}
	for _, pid := range productOrder {
		lines := byProduct[pid]
		ordered := decimal.Zero
		for _, l := range lines {
			ordered = ordered.Add(l.item.Quantity)
		}
		supply := planned[pid]
		if !ordered.Sub(supply).IsPositive() {
			continue
		}
		report.TotalMissingQty = report.TotalMissingQty.Add(ordered.Sub(supply))

		remaining := supply
		for _, l := range lines {
			covered := decimal.Min(l.item.Quantity, remaining)
			remaining = remaining.Sub(covered)
			missing := l.item.Quantity.Sub(covered)
			if !missing.IsPositive() {
				continue
			}
			report.Warnings = append(report.Warnings, ShortageWarning{
				ProductID:   pid,
				ProductName: l.item.StockItem.Name,
				Ordered:     l.item.Quantity,
				Planned:     covered,
				Missing:     missing,
				OrderNumber: l.order.Number,
				Customer:    l.order.Customer,
			})
		}
	}
	report.TotalWarnings = len(report.Warnings)
	return report, nil
}
