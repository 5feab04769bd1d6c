package repository

import (
	"context"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SerialRepository struct {
	db *gorm.DB
}

func NewSerialRepository(db *gorm.DB) *SerialRepository {
	return &SerialRepository{db: db}
}

func (r *SerialRepository) Create(ctx context.Context, unit *entity.SerializedUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *SerialRepository) FindByID(ctx context.Context, id string) (*entity.SerializedUnit, error) {
	var unit entity.SerializedUnit
	err := r.db.WithContext(ctx).Preload("QualityCheck").First(&unit, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &unit, nil
}

// FindBySerialForUpdate 按序列号加锁查询
func (r *SerialRepository) FindBySerialForUpdate(ctx context.Context, serial string) (*entity.SerializedUnit, error) {
	var unit entity.SerializedUnit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("serial_hex = ?", serial).
		First(&unit).Error
	if err != nil {
		return nil, translate(err)
	}
	return &unit, nil
}

// LockByIDs locks units in ascending id order
func (r *SerialRepository) LockByIDs(ctx context.Context, ids []string) ([]entity.SerializedUnit, error) {
	var units []entity.SerializedUnit
	if len(ids) == 0 {
		return units, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&units).Error
	return units, err
}

func (r *SerialRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.SerializedUnit{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// PickAssigned returns up to limit assigned units of an item that no draft
// expedition line has claimed, ordered by serial.
func (r *SerialRepository) PickAssigned(ctx context.Context, stockItemID string, limit int) ([]entity.SerializedUnit, error) {
	var units []entity.SerializedUnit
	claimed := r.db.Model(&entity.ExpeditionItem{}).
		Select("erp_expedition_items.serialized_unit_id").
		Joins("JOIN erp_expeditions ON erp_expeditions.id = erp_expedition_items.expedition_id").
		Where("erp_expeditions.status = ? AND erp_expedition_items.serialized_unit_id IS NOT NULL", entity.ExpeditionStatusDraft)
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock_item_id = ? AND status = ?", stockItemID, entity.SerialStatusAssigned).
		Where("id NOT IN (?)", claimed).
		Order("serial_hex ASC").
		Limit(limit).
		Find(&units).Error
	return units, err
}

// ClaimedByOtherLine reports whether another expedition line already holds the unit
func (r *SerialRepository) ClaimedByOtherLine(ctx context.Context, unitID, lineID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ExpeditionItem{}).
		Where("serialized_unit_id = ? AND id <> ?", unitID, lineID).
		Count(&count).Error
	return count > 0, err
}

// ========== QualityCheck ==========

func (r *SerialRepository) CreateCheck(ctx context.Context, check *entity.QualityCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

func (r *SerialRepository) FindCheckForUpdate(ctx context.Context, id string) (*entity.QualityCheck, error) {
	var check entity.QualityCheck
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&check, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &check, nil
}

func (r *SerialRepository) FindCheckByUnit(ctx context.Context, unitID string) (*entity.QualityCheck, error) {
	var check entity.QualityCheck
	err := r.db.WithContext(ctx).First(&check, "serialized_unit_id = ?", unitID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &check, nil
}

func (r *SerialRepository) SaveCheck(ctx context.Context, check *entity.QualityCheck) error {
	return r.db.WithContext(ctx).Save(check).Error
}
