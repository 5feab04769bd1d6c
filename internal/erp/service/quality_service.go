package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QualityService 质检闸门
type QualityService struct {
	*core
}

type CreateQualityCheckRequest struct {
	StockItemID       string `json:"stock_item_id" binding:"required"`
	Serial            string `json:"serial" binding:"required"`
	VisualCheck       bool   `json:"visual_check"`
	PackagingCheck    bool   `json:"packaging_check"`
	DefectStatus      string `json:"defect_status" binding:"required"`
	DefectDescription string `json:"defect_description"`
}

// CreateQualityCheck records the inspection of one unit, creating the unit in
// manufactured first when it is scanned for the first time.
func (s *QualityService) CreateQualityCheck(ctx context.Context, req CreateQualityCheckRequest, actor string) (*entity.QualityCheck, *entity.SerializedUnit, error) {
	serial, err := entity.NormalizeSerial(req.Serial)
	if err != nil {
		return nil, nil, err
	}
	if err := entity.ValidateDefect(req.DefectStatus, req.DefectDescription); err != nil {
		return nil, nil, err
	}

	var (
		check *entity.QualityCheck
		unit  *entity.SerializedUnit
	)
	err = s.tx.run(ctx, "qc.create", func(r *repository.Repositories) error {
		item, err := r.Item.FindByID(ctx, req.StockItemID)
		if err != nil {
			return notFound(err, "stock item %s not found", req.StockItemID)
		}
		if !item.IsSerialized {
			return entity.NewDomainError(entity.CodeValidation, "%s is not tracked by serial number", item.Code)
		}

		now := s.now()
		unit, err = r.Serial.FindBySerialForUpdate(ctx, serial)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			unit = &entity.SerializedUnit{
				ID:          uuid.New().String(),
				StockItemID: item.ID,
				SerialHex:   serial,
				Status:      entity.SerialStatusManufactured,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := r.Serial.Create(ctx, unit); err != nil {
				return fmt.Errorf("create serialized unit: %w", err)
			}
		case err != nil:
			return err
		case unit.StockItemID != item.ID:
			de := entity.NewDomainError(entity.CodeWrongProduct, "serial %s belongs to another product", serial)
			de.ExpectedProduct = item.Ref()
			return de
		}

		if _, err := r.Serial.FindCheckByUnit(ctx, unit.ID); err == nil {
			return entity.NewDomainError(entity.CodeValidation, "serial %s already has a quality check", serial)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		next := entity.SerialStatusDefective
		if req.DefectStatus == entity.DefectStatusOK {
			next = entity.SerialStatusInspected
		}
		if err := unit.TransitionTo(next); err != nil {
			return err
		}
		if err := r.Serial.UpdateStatus(ctx, unit.ID, unit.Status); err != nil {
			return fmt.Errorf("update serial: %w", err)
		}

		check = &entity.QualityCheck{
			ID:                uuid.New().String(),
			SerializedUnitID:  unit.ID,
			VisualCheck:       req.VisualCheck,
			PackagingCheck:    req.PackagingCheck,
			DefectStatus:      req.DefectStatus,
			DefectDescription: req.DefectDescription,
			CheckedBy:         actor,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return r.Serial.CreateCheck(ctx, check)
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("quality check recorded",
		zap.String("serial", unit.SerialHex),
		zap.String("defect_status", check.DefectStatus),
		zap.String("unit_status", unit.Status),
	)
	return check, unit, nil
}

// UpdateQualityCheckRequest 仅允许修改检查项与描述
type UpdateQualityCheckRequest struct {
	VisualCheck       *bool   `json:"visual_check"`
	PackagingCheck    *bool   `json:"packaging_check"`
	DefectStatus      *string `json:"defect_status"`
	DefectDescription *string `json:"defect_description"`
}

func (s *QualityService) UpdateQualityCheck(ctx context.Context, id string, req UpdateQualityCheckRequest) (*entity.QualityCheck, error) {
	var check *entity.QualityCheck
	err := s.tx.run(ctx, "qc.update", func(r *repository.Repositories) error {
		var err error
		check, err = r.Serial.FindCheckForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "quality check %s not found", id)
		}
		if err := check.EnsureMutable(); err != nil {
			return err
		}
		if req.DefectStatus != nil && *req.DefectStatus != check.DefectStatus {
			return entity.NewDomainError(entity.CodeInvalidTransition, "defect status cannot change after inspection")
		}
		if req.VisualCheck != nil {
			check.VisualCheck = *req.VisualCheck
		}
		if req.PackagingCheck != nil {
			check.PackagingCheck = *req.PackagingCheck
		}
		if req.DefectDescription != nil {
			check.DefectDescription = *req.DefectDescription
		}
		if err := entity.ValidateDefect(check.DefectStatus, check.DefectDescription); err != nil {
			return err
		}
		check.UpdatedAt = s.now()
		return r.Serial.SaveCheck(ctx, check)
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// ApproveForShipping locks a passed check.
func (s *QualityService) ApproveForShipping(ctx context.Context, id, actor string) (*entity.QualityCheck, error) {
	var check *entity.QualityCheck
	err := s.tx.run(ctx, "qc.approve", func(r *repository.Repositories) error {
		var err error
		check, err = r.Serial.FindCheckForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "quality check %s not found", id)
		}
		if err := check.EnsureMutable(); err != nil {
			return err
		}
		if check.Failed() {
			return entity.NewDomainError(entity.CodeQCFailed, "quality check %s did not pass (%s)", check.ID, check.DefectStatus)
		}
		now := s.now()
		check.ApprovedForShipping = true
		check.ApprovedAt = &now
		check.UpdatedAt = now
		return r.Serial.SaveCheck(ctx, check)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("quality check approved", zap.String("check", check.ID), zap.String("actor", actor))
	return check, nil
}

func (s *QualityService) GetSerial(ctx context.Context, id string) (*entity.SerializedUnit, error) {
	unit, err := s.repos.Serial.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "serialized unit %s not found", id)
	}
	return unit, nil
}
