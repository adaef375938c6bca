package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var (
	// DefaultMaxPrice is the upper price bound when none is given.
	DefaultMaxPrice = decimal.NewFromInt(1_000_000_000)

	ErrInvalidPriceRange = errors.New("minimum price must not exceed maximum price")
)

// sortAliases maps accepted sortBy values to repository sort columns.
var sortAliases = map[string]string{
	"name":        "name",
	"price":       "price",
	"stock":       "stock",
	"created_at":  "created_at",
	"createdat":   "created_at",
	"updated_at":  "updated_at",
	"updatedat":   "updated_at",
	"lastupdated": "updated_at",
}

// ProductFilter holds the query options for listing products. Page is
// 0-based. Nil price bounds fall back to [0, DefaultMaxPrice].
type ProductFilter struct {
	Category  string
	Query     string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Page      int
	Size      int
	SortBy    string
	Order     string
	ForceSync bool
}

// ProductDTO is the public view of a product
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	ExternalID  *int64          `json:"external_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Content       []ProductDTO `json:"content"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
	TotalElements int          `json:"total_elements"`
	TotalPages    int          `json:"total_pages"`
}

// ProductService defines the interface for catalog queries
type ProductService interface {
	List(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	Find(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
}

type productService struct {
	store  repository.Store
	syncer SyncService
	logger *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(store repository.Store, syncer SyncService, logger *zap.Logger) ProductService {
	return &productService{
		store:  store,
		syncer: syncer,
		logger: logger,
	}
}

// List returns one page of products matching filter. An unfiltered query
// against an empty catalog triggers a single best-effort sync first. The
// trigger is an empty catalog rather than an empty page, so paging past the
// end of a populated catalog never syncs.
func (s *productService) List(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	q, err := buildQuery(filter)
	if err != nil {
		return nil, err
	}

	if filter.ForceSync {
		if _, err := s.syncer.SyncAll(ctx, q.Category); err != nil {
			return nil, fmt.Errorf("failed to force sync: %w", err)
		}
	}

	products, total, err := s.store.Products().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if total == 0 && !filter.ForceSync && q.Category == "" && q.Search == "" {
		s.logger.Info("Catalog is empty, running lazy product sync")
		if _, err := s.syncer.SyncAll(ctx, ""); err != nil {
			s.logger.Warn("Lazy product sync failed", zap.Error(err))
		} else {
			products, total, err = s.store.Products().List(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("failed to list products: %w", err)
			}
		}
	}

	page := &ProductPage{
		Content:       make([]ProductDTO, 0, len(products)),
		Page:          q.Offset / q.Limit,
		Size:          q.Limit,
		TotalElements: total,
		TotalPages:    (total + q.Limit - 1) / q.Limit,
	}
	for _, p := range products {
		page.Content = append(page.Content, toProductDTO(p))
	}
	return page, nil
}

func (s *productService) Find(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(product)
	return &dto, nil
}

func buildQuery(filter ProductFilter) (repository.ProductQuery, error) {
	if filter.Page < 0 {
		filter.Page = 0
	}
	size := filter.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	// Pages past the largest representable offset are simply empty.
	if maxPage := math.MaxInt32 / size; filter.Page > maxPage {
		filter.Page = maxPage
	}

	minPrice, maxPrice := decimal.Zero, DefaultMaxPrice
	if filter.MinPrice != nil {
		minPrice = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		maxPrice = *filter.MaxPrice
	}
	if minPrice.GreaterThan(maxPrice) {
		return repository.ProductQuery{}, ErrInvalidPriceRange
	}

	sortBy, ok := sortAliases[strings.ToLower(strings.TrimSpace(filter.SortBy))]
	if !ok {
		sortBy = "created_at"
	}
	order := repository.SortOrderDesc
	if strings.EqualFold(strings.TrimSpace(filter.Order), "asc") {
		order = repository.SortOrderAsc
	}

	return repository.ProductQuery{
		Category:  strings.TrimSpace(filter.Category),
		Search:    strings.TrimSpace(filter.Query),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		SortBy:    sortBy,
		SortOrder: order,
		Limit:     size,
		Offset:    filter.Page * size,
	}, nil
}

func toProductDTO(p *domain.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.CategoryName,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}
