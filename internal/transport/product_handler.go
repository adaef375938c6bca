package transport

import (
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductListQuery holds the raw query parameters of a product listing
type ProductListQuery struct {
	Category  string `query:"category" validate:"max=255"`
	Query     string `query:"q" validate:"max=255"`
	MinPrice  string `query:"minPrice" validate:"omitempty,numeric"`
	MaxPrice  string `query:"maxPrice" validate:"omitempty,numeric"`
	SortBy    string `query:"sortBy" validate:"omitempty,oneof=name price stock created_at createdAt updated_at updatedAt lastUpdated"`
	Order     string `query:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page      string `query:"page" validate:"omitempty,number"`
	Size      string `query:"size" validate:"omitempty,number"`
	ForceSync string `query:"forceSync" validate:"omitempty,boolean"`
}

func parseProductListQuery(values url.Values) ProductListQuery {
	return ProductListQuery{
		Category:  values.Get("category"),
		Query:     values.Get("q"),
		MinPrice:  values.Get("minPrice"),
		MaxPrice:  values.Get("maxPrice"),
		SortBy:    values.Get("sortBy"),
		Order:     values.Get("order"),
		Page:      values.Get("page"),
		Size:      values.Get("size"),
		ForceSync: values.Get("forceSync"),
	}
}

// Filter converts a validated query into a service filter
func (q ProductListQuery) Filter() (service.ProductFilter, error) {
	filter := service.ProductFilter{
		Category: q.Category,
		Query:    q.Query,
		SortBy:   q.SortBy,
		Order:    q.Order,
	}

	var err error
	if filter.MinPrice, err = optionalDecimal(q.MinPrice); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = optionalDecimal(q.MaxPrice); err != nil {
		return filter, err
	}
	if q.Page != "" {
		if filter.Page, err = strconv.Atoi(q.Page); err != nil {
			return filter, err
		}
	}
	if q.Size != "" {
		if filter.Size, err = strconv.Atoi(q.Size); err != nil {
			return filter, err
		}
	}
	if q.ForceSync != "" {
		if filter.ForceSync, err = strconv.ParseBool(q.ForceSync); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
	})
}

// ListProducts handles filtered, paginated product listing
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := parseProductListQuery(r.URL.Query())
	if err := middleware.ValidateRequest(&query); err != nil {
		h.logger.Debug("Product query validation failed", zap.Error(err))
		respondWithDecodeError(w, err, "invalid query parameters")
		return
	}

	filter, err := query.Filter()
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	page, err := h.productService.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetProduct handles retrieval of a single product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Find(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}
