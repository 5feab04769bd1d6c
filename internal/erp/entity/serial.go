package entity

import (
	"encoding/hex"
	"strings"
	"time"
)

// SerialStatus 序列号状态
const (
	SerialStatusManufactured = "manufactured"
	SerialStatusInspected    = "inspected"
	SerialStatusDefective    = "defective"
	SerialStatusAssigned     = "assigned"
	SerialStatusShipped      = "shipped"
)

// DefectStatus 质检结果
const (
	DefectStatusOK    = "ok"
	DefectStatusError = "error"
	DefectStatusNone  = "none"
)

// SerializedUnit 单件追踪实例
type SerializedUnit struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StockItemID string    `json:"stock_item_id" gorm:"type:varchar(36);not null;index"`
	SerialHex   string    `json:"serial_hex" gorm:"size:64;not null;uniqueIndex"`
	Status      string    `json:"status" gorm:"size:20;not null;default:manufactured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	StockItem    *StockItem    `json:"stock_item,omitempty" gorm:"foreignKey:StockItemID"`
	QualityCheck *QualityCheck `json:"quality_check,omitempty" gorm:"foreignKey:SerializedUnitID"`
}

func (SerializedUnit) TableName() string {
	return "erp_serialized_units"
}

var serialTransitions = map[string][]string{
	SerialStatusManufactured: {SerialStatusInspected, SerialStatusDefective},
	SerialStatusInspected:    {SerialStatusAssigned},
	SerialStatusAssigned:     {SerialStatusShipped},
}

// CanTransition reports whether from -> to is legal outside of storno.
func CanTransition(from, to string) bool {
	for _, s := range serialTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the unit to status or fails with InvalidTransition.
func (u *SerializedUnit) TransitionTo(status string) error {
	if !CanTransition(u.Status, status) {
		return NewDomainError(CodeInvalidTransition, "serial %s cannot move from %s to %s", u.SerialHex, u.Status, status)
	}
	u.Status = status
	return nil
}

// RevertShipment is the storno path, the only way out of shipped.
func (u *SerializedUnit) RevertShipment() error {
	if u.Status != SerialStatusShipped {
		return NewDomainError(CodeInvalidTransition, "serial %s is %s, not shipped", u.SerialHex, u.Status)
	}
	u.Status = SerialStatusAssigned
	return nil
}

// NormalizeSerial lower-cases a scanned serial and checks it is hex.
func NormalizeSerial(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", NewDomainError(CodeValidation, "serial number is required")
	}
	src := s
	if len(src)%2 == 1 {
		src = "0" + src
	}
	if _, err := hex.DecodeString(src); err != nil {
		return "", NewDomainError(CodeValidation, "serial number %q is not a hex string", raw)
	}
	return s, nil
}

// QualityCheck 质检记录, one per unit
type QualityCheck struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SerializedUnitID    string     `json:"serialized_unit_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	VisualCheck         bool       `json:"visual_check" gorm:"not null;default:false"`
	PackagingCheck      bool       `json:"packaging_check" gorm:"not null;default:false"`
	DefectStatus        string     `json:"defect_status" gorm:"size:10;not null"`
	DefectDescription   string     `json:"defect_description" gorm:"type:text"`
	ApprovedForShipping bool       `json:"approved_for_shipping" gorm:"not null;default:false"`
	ApprovedAt          *time.Time `json:"approved_at"`
	CheckedBy           string     `json:"checked_by" gorm:"size:64"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (QualityCheck) TableName() string {
	return "erp_quality_checks"
}

// Failed reports a recorded defect
func (q *QualityCheck) Failed() bool {
	return q.DefectStatus != DefectStatusOK
}

// ValidateDefect checks the defect status and its description.
func ValidateDefect(status, description string) error {
	switch status {
	case DefectStatusOK:
		return nil
	case DefectStatusError, DefectStatusNone:
		if strings.TrimSpace(description) == "" {
			return NewDomainError(CodeValidation, "defect description is required when defect status is %s", status)
		}
		return nil
	default:
		return NewDomainError(CodeValidation, "unknown defect status %q", status)
	}
}

// EnsureMutable fails with Locked once the check is approved for shipping.
func (q *QualityCheck) EnsureMutable() error {
	if q.ApprovedForShipping {
		return NewDomainError(CodeLocked, "quality check %s is approved for shipping and locked", q.ID)
	}
	return nil
}
