package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/khoslavarun/QuoteBuilder/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByName(ctx context.Context, name string) (*model.Product, error)
	NamesWithPrefix(ctx context.Context, prefix string) ([]string, error)
	List(ctx context.Context, page, limit int, search string) ([]model.ProductUsage, int64, error)
	LastUsedAt(ctx context.Context, id uuid.UUID) (*time.Time, error)
	Count(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

const lastUsedColumn = "(SELECT MAX(quote_runs.created_at) FROM quote_runs WHERE quote_runs.product_id = products.id) AS last_used_at"

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByName matches case-insensitively, the way the unique check is applied.
func (r *productRepository) FindByName(ctx context.Context, name string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("LOWER(name) = ?", strings.ToLower(name)).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// NamesWithPrefix matches case-insensitively so copy names stay unique under FindByName.
func (r *productRepository) NamesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("name ILIKE ?", escapeLike(prefix)+"%").
		Pluck("name", &names).Error
	return names, err
}

func (r *productRepository) List(ctx context.Context, page, limit int, search string) ([]model.ProductUsage, int64, error) {
	var products []model.ProductUsage
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if search != "" {
		db = db.Where("products.name ILIKE ?", "%"+escapeLike(search)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Select("products.*, " + lastUsedColumn).
		Order("products.name asc").Offset(offset).Limit(limit).
		Scan(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) LastUsedAt(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	var last sql.NullTime
	err := GetDB(ctx, r.db).Model(&model.QuoteRun{}).
		Where("product_id = ?", id).
		Select("MAX(created_at)").
		Row().Scan(&last)
	if err != nil || !last.Valid {
		return nil, err
	}
	return &last.Time, nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Count(&total).Error
	return total, err
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
