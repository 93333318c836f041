package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khoslavarun/QuoteBuilder/internal/model"
)

// RunFilter narrows a history listing. Zero values match everything.
type RunFilter struct {
	Search    string
	ProductID *uuid.UUID
	Page      int
	Limit     int
}

type RunRepository interface {
	Create(ctx context.Context, run *model.QuoteRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.QuoteRun, error)
	List(ctx context.Context, filter RunFilter) ([]model.QuoteRun, int64, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *model.QuoteRun) error {
	return GetDB(ctx, r.db).Create(run).Error
}

// FindByID loads the run with its product, including a product deleted since.
func (r *runRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.QuoteRun, error) {
	var run model.QuoteRun
	err := GetDB(ctx, r.db).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) List(ctx context.Context, filter RunFilter) ([]model.QuoteRun, int64, error) {
	var runs []model.QuoteRun
	var total int64

	db := GetDB(ctx, r.db).Model(&model.QuoteRun{})
	if filter.Search != "" {
		db = db.Where("run_name ILIKE ?", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}
