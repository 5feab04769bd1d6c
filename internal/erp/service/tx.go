package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxOptions 事务重试配置
type TxOptions struct {
	LockTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultTxOptions is used when no stock config is provided
var DefaultTxOptions = TxOptions{
	LockTimeout:  5 * time.Second,
	MaxRetries:   3,
	RetryBackoff: 50 * time.Millisecond,
}

// pg error codes that abort a transaction before it commits and are safe to re-run
var retryableCodes = map[string]bool{
	"55P03": true, // lock_not_available
	"40P01": true, // deadlock_detected
	"40001": true, // serialization_failure
	"23505": true, // unique_violation, document number taken by a concurrent writer
}

type txRunner struct {
	db     *gorm.DB
	logger *zap.Logger
	opts   TxOptions
}

// run executes fn in one transaction and re-runs it on retryable failures.
// fn must not keep state across attempts.
func (r *txRunner) run(ctx context.Context, op string, fn func(repos *repository.Repositories) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if tx.Dialector.Name() == "postgres" && r.opts.LockTimeout > 0 {
				if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.opts.LockTimeout.Milliseconds())).Error; err != nil {
					return fmt.Errorf("set lock timeout: %w", err)
				}
			}
			return fn(repository.NewRepositories(tx))
		})
		if err == nil || !isRetryable(err) || attempt >= r.opts.MaxRetries {
			return err
		}

		r.logger.Warn("retrying stock transaction",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableCodes[pgErr.Code]
	}
	// SQLite reports a busy database or a unique violation only as text
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		(strings.Contains(msg, "UNIQUE constraint failed: erp_") && strings.Contains(msg, ".number"))
}
