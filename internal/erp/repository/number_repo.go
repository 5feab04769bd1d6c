package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NumberKind 单据编号类型
type NumberKind struct {
	Code  string
	Table string
}

// Document number kinds. Numbers are {YYYY}{Code}{seq:04d}, sequence per year.
var (
	NumberCard       = NumberKind{Code: "VK", Table: "erp_production_cards"}
	NumberReceipt    = NumberKind{Code: "PJ", Table: "erp_stock_receipts"}
	NumberIssue      = NumberKind{Code: "VY", Table: "erp_stock_issues"}
	NumberOrder      = NumberKind{Code: "PO", Table: "erp_orders"}
	NumberExpedition = NumberKind{Code: "EX", Table: "erp_expeditions"}
)

// Prefix returns the year-scoped prefix, e.g. 2026VK
func (k NumberKind) Prefix(at time.Time) string {
	return fmt.Sprintf("%04d%s", at.Year(), k.Code)
}

// Format builds a full number from a sequence
func (k NumberKind) Format(at time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", k.Prefix(at), seq)
}

type NumberRepository struct {
	db *gorm.DB
}

func NewNumberRepository(db *gorm.DB) *NumberRepository {
	return &NumberRepository{db: db}
}

// Next derives the next number from the highest existing one with this year's
// prefix. Must run inside the caller's transaction. On PostgreSQL a
// transaction-scoped advisory lock serializes callers per prefix; elsewhere the
// unique index on number plus transaction retry resolves collisions.
func (r *NumberRepository) Next(ctx context.Context, kind NumberKind, at time.Time) (string, error) {
	prefix := kind.Prefix(at)
	db := r.db.WithContext(ctx)

	if isPostgres(db) {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
			return "", fmt.Errorf("lock number sequence %s: %w", prefix, err)
		}
	}

	var last []string
	err := db.Table(kind.Table).
		Where("number LIKE ?", prefix+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", fmt.Errorf("read last number %s: %w", prefix, err)
	}

	seq := 1
	if len(last) > 0 {
		n, err := strconv.Atoi(strings.TrimPrefix(last[0], prefix))
		if err != nil {
			return "", fmt.Errorf("malformed number %q: %w", last[0], err)
		}
		seq = n + 1
	}
	return kind.Format(at, seq), nil
}
