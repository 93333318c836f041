package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/repository"
	ws "github.com/khoslavarun/QuoteBuilder/internal/websocket"
)

// DTOs
type CreateProductRequest struct {
	Name                 string          `json:"name" binding:"required,max=255"`
	DefaultUnitCostLocal decimal.Decimal `json:"default_unit_cost_local"`
	UnitLabel            string          `json:"unit_label" binding:"max=50"`
	Notes                string          `json:"notes"`
}

// UpdateProductRequest changes only the fields that are present.
type UpdateProductRequest struct {
	Name                 *string          `json:"name" binding:"omitempty,max=255"`
	DefaultUnitCostLocal *decimal.Decimal `json:"default_unit_cost_local"`
	UnitLabel            *string          `json:"unit_label" binding:"omitempty,max=50"`
	Notes                *string          `json:"notes"`
}

type ProductResponse struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	DefaultUnitCostLocal decimal.Decimal `json:"default_unit_cost_local"`
	UnitLabel            string          `json:"unit_label"`
	Notes                string          `json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	LastUsedAt           *time.Time      `json:"last_used_at"`
}

type ProductService interface {
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, userID string, id string) error
	DuplicateProduct(ctx context.Context, userID string, id string) (ProductResponse, error)
	SeedDemoProducts(ctx context.Context) (int, error)
}

type productService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
	log         *zap.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
		log:         log,
	}
}

func toProductResponse(p model.Product, lastUsed *time.Time) ProductResponse {
	return ProductResponse{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		DefaultUnitCostLocal: p.DefaultUnitCostLocal,
		UnitLabel:            p.UnitLabel,
		Notes:                p.Notes,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		LastUsedAt:           lastUsed,
	}
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, page, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p.Product, p.LastUsedAt))
	}
	return res, total, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}
	lastUsed, err := s.productRepo.LastUsedAt(ctx, product.ID)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("load product usage: %w", err)
	}
	return toProductResponse(*product, lastUsed), nil
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ProductResponse{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if req.DefaultUnitCostLocal.IsNegative() {
		return ProductResponse{}, fmt.Errorf("%w: default_unit_cost_local must not be negative", ErrInvalidArgument)
	}

	product := model.Product{
		Name:                 name,
		DefaultUnitCostLocal: req.DefaultUnitCostLocal,
		UnitLabel:            unitLabel(req.UnitLabel),
		Notes:                req.Notes,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameFree(txCtx, name, nil); err != nil {
			return err
		}
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionCreateProduct, product.ID.String(), product.Name, req); err != nil {
			return err
		}
		repository.AfterCommit(txCtx, func() {
			s.events.Publish(ws.EventProductCreated, toProductResponse(product, nil))
		})
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.log.Info("product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	return toProductResponse(product, nil), nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return ProductResponse{}, fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
		}
		product.Name = name
	}
	if req.DefaultUnitCostLocal != nil {
		if req.DefaultUnitCostLocal.IsNegative() {
			return ProductResponse{}, fmt.Errorf("%w: default_unit_cost_local must not be negative", ErrInvalidArgument)
		}
		product.DefaultUnitCostLocal = *req.DefaultUnitCostLocal
	}
	if req.UnitLabel != nil {
		product.UnitLabel = unitLabel(*req.UnitLabel)
	}
	if req.Notes != nil {
		product.Notes = *req.Notes
	}

	var lastUsed *time.Time
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureNameFree(txCtx, product.Name, product); err != nil {
			return err
		}
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, req); err != nil {
			return err
		}
		var err error
		if lastUsed, err = s.productRepo.LastUsedAt(txCtx, product.ID); err != nil {
			return fmt.Errorf("load product usage: %w", err)
		}
		res := toProductResponse(*product, lastUsed)
		repository.AfterCommit(txCtx, func() {
			s.events.Publish(ws.EventProductUpdated, res)
		})
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}

	return toProductResponse(*product, lastUsed), nil
}

func (s *productService) DeleteProduct(ctx context.Context, userID string, id string) error {
	product, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, product.ID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, map[string]bool{"deleted": true}); err != nil {
			return err
		}
		repository.AfterCommit(txCtx, func() {
			s.events.Publish(ws.EventProductDeleted, map[string]string{"id": product.ID.String()})
		})
		return nil
	})
}

// DuplicateProduct copies a product under the first free name of the form
// "<name> Copy", "<name> Copy 2", "<name> Copy 3", ...
func (s *productService) DuplicateProduct(ctx context.Context, userID string, id string) (ProductResponse, error) {
	source, err := s.find(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}

	product := model.Product{
		DefaultUnitCostLocal: source.DefaultUnitCostLocal,
		UnitLabel:            source.UnitLabel,
		Notes:                source.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		base := source.Name + " Copy"
		taken, err := s.productRepo.NamesWithPrefix(txCtx, base)
		if err != nil {
			return fmt.Errorf("load product names: %w", err)
		}
		product.Name = nextCopyName(base, taken)

		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to duplicate product: %w", err)
		}
		details := map[string]string{"source_id": source.ID.String(), "source_name": source.Name}
		if err := recordAudit(txCtx, s.auditRepo, userID, model.ActionDuplicateProduct, product.ID.String(), product.Name, details); err != nil {
			return err
		}
		repository.AfterCommit(txCtx, func() {
			s.events.Publish(ws.EventProductCreated, toProductResponse(product, nil))
		})
		return nil
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product, nil), nil
}

type demoProduct struct {
	name  string
	cost  int64
	unit  string
	notes string
}

var demoProducts = []demoProduct{
	{"Basmati Rice 5kg", 320, "bag", "Premium grade bag"},
	{"Cotton T-Shirt", 180, "piece", "Crew neck, 180 GSM"},
	{"Copper Wire", 650, "kg", "Industrial spool"},
}

// SeedDemoProducts fills an empty catalog with the demo products and reports
// how many were created.
func (s *productService) SeedDemoProducts(ctx context.Context) (int, error) {
	count, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, d := range demoProducts {
			p := model.Product{
				Name:                 d.name,
				DefaultUnitCostLocal: decimal.NewFromInt(d.cost),
				UnitLabel:            d.unit,
				Notes:                d.notes,
			}
			if err := s.productRepo.Create(txCtx, &p); err != nil {
				return fmt.Errorf("seed product %s: %w", d.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(demoProducts), nil
}

func (s *productService) find(ctx context.Context, id string) (*model.Product, error) {
	productID, err := parseID("product", id)
	if err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFound("product", err)
	}
	return product, nil
}

// ensureNameFree fails with ErrDuplicateName when another live product already
// uses name. self is the product being renamed, if any.
func (s *productService) ensureNameFree(ctx context.Context, name string, self *model.Product) error {
	existing, err := s.productRepo.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}
	if self != nil && existing.ID == self.ID {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrDuplicateName, name)
}

func unitLabel(label string) string {
	if label = strings.TrimSpace(label); label == "" {
		return model.DefaultUnitLabel
	}
	return label
}

func nextCopyName(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, name := range taken {
		used[strings.ToLower(name)] = true
	}
	if !used[strings.ToLower(base)] {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + " " + strconv.Itoa(n)
		if !used[strings.ToLower(candidate)] {
			return candidate
		}
	}
}
