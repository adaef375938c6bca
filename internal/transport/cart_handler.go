package transport

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest represents the add-to-cart payload. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1"`
}

// UpdateItemQuery holds the raw query of a cart item update
type UpdateItemQuery struct {
	Quantity string `query:"quantity" validate:"required,numeric"`
}

// CartHandler handles HTTP requests for the session cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes behind the session middleware
func (h *CartHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productId}", h.UpdateItem)
		r.Delete("/items/{productId}", h.RemoveItem)
	})
}

func (h *CartHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID, ok := middleware.GetCartSessionID(r.Context())
	if !ok {
		h.logger.Error("Cart route reached without a session")
		middleware.RespondWithError(w, http.StatusInternalServerError, "missing cart session")
	}
	return sessionID, ok
}

func productIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return productID, true
}

// GetCart returns the session's cart, creating it if needed
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), sessionID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem adds a product to the cart, merging with an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))
		respondWithDecodeError(w, err, "invalid request body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.cartService.AddToCart(r.Context(), sessionID, uuid.MustParse(req.ProductID), quantity)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to add item to cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// UpdateItem sets an item's quantity; zero or less removes the item
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	query := UpdateItemQuery{Quantity: r.URL.Query().Get("quantity")}
	if err := middleware.ValidateRequest(&query); err != nil {
		respondWithDecodeError(w, err, "invalid quantity")
		return
	}
	quantity, err := strconv.Atoi(query.Quantity)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	cart, err := h.cartService.UpdateCartItem(r.Context(), sessionID, productID, quantity)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem removes a product from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveFromCart(r.Context(), sessionID, productID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to remove cart item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// ClearCart removes every item from the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(r.Context(), sessionID); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusOK)
}
