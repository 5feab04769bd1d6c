package service

import (
	"context"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/events"
	"github.com/RastislavMadac/angeapp/internal/erp/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 库存服务集合
type Services struct {
	Catalog    *CatalogService
	Production *ProductionService
	Outbound   *OutboundService
	Expedition *ExpeditionService
	Quality    *QualityService
	Export     *ExportService
}

// Option customizes shared service dependencies
type Option func(*core)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(c *core) { c.logger = l }
}

// WithPublisher sets where committed stock changes are sent
func WithPublisher(p events.Publisher) Option {
	return func(c *core) { c.publisher = p }
}

// WithTxOptions sets lock timeout and retry behaviour
func WithTxOptions(o TxOptions) Option {
	return func(c *core) { c.tx.opts = o }
}

// WithClock overrides time.Now, used for document numbers and audit timestamps
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// core is shared by every service
type core struct {
	repos     *repository.Repositories
	tx        *txRunner
	logger    *zap.Logger
	publisher events.Publisher
	now       func() time.Time
	bom       *BOMResolver
}

func NewServices(repos *repository.Repositories, db *gorm.DB, opts ...Option) *Services {
	c := &core{
		repos:  repos,
		tx:     &txRunner{db: db, opts: DefaultTxOptions},
		logger: zap.NewNop(),
		now:    time.Now,
		bom:    &BOMResolver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tx.logger = c.logger

	outbound := &OutboundService{core: c}
	return &Services{
		Catalog:    &CatalogService{core: c},
		Production: &ProductionService{core: c},
		Outbound:   outbound,
		Expedition: &ExpeditionService{core: c, outbound: outbound},
		Quality:    &QualityService{core: c},
		Export:     &ExportService{core: c},
	}
}

// publish sends committed changes; errors are logged only
func (c *core) publish(ctx context.Context, book *stockBook) {
	if c.publisher == nil || book == nil {
		return
	}
	changes := book.changes()
	if len(changes) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, changes); err != nil {
		c.logger.Warn("stock event publish failed", zap.Error(err))
	}
}
