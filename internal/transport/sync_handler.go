package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SyncResponse reports the outcome of a manual sync
type SyncResponse struct {
	Synced  int    `json:"synced"`
	Message string `json:"message"`
}

// SyncHandler exposes manual product sync
type SyncHandler struct {
	syncService service.SyncService
	logger      *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

// RegisterRoutes registers the sync routes behind the given middlewares,
// typically a rate limiter.
func (h *SyncHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api/sync", func(r chi.Router) {
		r.Use(middlewares...)
		r.Post("/products", h.SyncProducts)
		r.Post("/products/{externalId}", h.SyncProduct)
	})
}

// SyncProducts syncs all products, or one category when ?category is set
func (h *SyncHandler) SyncProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	n, err := h.syncService.SyncAll(r.Context(), category)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to sync products")
		return
	}

	h.logger.Info("Manual product sync finished", zap.String("category", category), zap.Int("synced", n))
	middleware.RespondWithJSON(w, http.StatusOK, SyncResponse{
		Synced:  n,
		Message: fmt.Sprintf("Synced/updated: %d products", n),
	})
}

// SyncProduct syncs a single product by its external catalog id
func (h *SyncHandler) SyncProduct(w http.ResponseWriter, r *http.Request) {
	externalID, err := strconv.ParseInt(chi.URLParam(r, "externalId"), 10, 64)
	if err != nil || externalID <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid external product id")
		return
	}

	product, err := h.syncService.SyncOne(r.Context(), externalID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to sync product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}
