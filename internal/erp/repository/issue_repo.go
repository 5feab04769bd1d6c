package repository

import (
	"context"
	"time"

	"github.com/RastislavMadac/angeapp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IssueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts the issue and its lines, instances and ingredient rows
func (r *IssueRepository) Create(ctx context.Context, issue *entity.StockIssue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

func (r *IssueRepository) FindByID(ctx context.Context, id string) (*entity.StockIssue, error) {
	var issue entity.StockIssue
	err := r.preloaded(ctx).First(&issue, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &issue, nil
}

// FindForUpdate locks the issue row before loading the graph
func (r *IssueRepository) FindForUpdate(ctx context.Context, id string) (*entity.StockIssue, error) {
	var head entity.StockIssue
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&head, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.FindByID(ctx, id)
}

func (r *IssueRepository) FindByExpedition(ctx context.Context, expeditionID string) (*entity.StockIssue, error) {
	var issue entity.StockIssue
	err := r.preloaded(ctx).First(&issue, "expedition_id = ?", expeditionID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &issue, nil
}

func (r *IssueRepository) MarkStorno(ctx context.Context, id, actor string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.StockIssue{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_storno":  true,
			"storno_at":  at,
			"storno_by":  actor,
			"updated_at": at,
		}).Error
}

func (r *IssueRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Instances").
		Preload("Items.Instances.SerializedUnit").
		Preload("Items.Ingredients")
}
