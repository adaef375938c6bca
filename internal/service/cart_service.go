package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartItemResponse is one line of a cart as returned to clients
type CartItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductImageURL string          `json:"product_image_url"`
	ProductPrice    decimal.Decimal `json:"product_price"`
	Quantity        int             `json:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// CartResponse is a cart with its totals computed from the current items
type CartResponse struct {
	ID          uuid.UUID          `json:"id"`
	SessionID   string             `json:"session_id"`
	Items       []CartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	TotalItems  int                `json:"total_items"`
}

// CartService defines the interface for session-scoped cart operations.
// Every operation takes the caller's cart session id explicitly.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*CartResponse, error)
	AddToCart(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*CartResponse, error)
	// UpdateCartItem sets the item's quantity; zero or less removes it.
	UpdateCartItem(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*CartResponse, error)
	RemoveFromCart(ctx context.Context, sessionID string, productID uuid.UUID) (*CartResponse, error)
	ClearCart(ctx context.Context, sessionID string) error
	GenerateSessionID() string
}

type cartService struct {
	store repository.Store
	clock clock.Clock
}

// NewCartService creates a new instance of CartService
func NewCartService(store repository.Store, clk clock.Clock) CartService {
	return &cartService{
		store: store,
		clock: clk,
	}
}

func (s *cartService) GetCart(ctx context.Context, sessionID string) (*CartResponse, error) {
	var cart *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		cart, err = s.getOrCreateCart(ctx, tx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCartResponse(cart), nil
}

func (s *cartService) AddToCart(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*CartResponse, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, sessionID, func(tx repository.Store, cart *domain.Cart) error {
		if _, err := tx.Products().FindByID(ctx, productID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		return tx.Carts().AddItem(ctx, &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
}

func (s *cartService) UpdateCartItem(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*CartResponse, error) {
	return s.mutate(ctx, sessionID, func(tx repository.Store, cart *domain.Cart) error {
		if _, ok := cart.FindItem(productID); !ok {
			return repository.ErrCartItemNotFound
		}
		if quantity <= 0 {
			return tx.Carts().RemoveItem(ctx, cart.ID, productID)
		}
		return tx.Carts().UpdateItemQuantity(ctx, cart.ID, productID, quantity, s.clock.Now().UTC())
	})
}

func (s *cartService) RemoveFromCart(ctx context.Context, sessionID string, productID uuid.UUID) (*CartResponse, error) {
	return s.mutate(ctx, sessionID, func(tx repository.Store, cart *domain.Cart) error {
		return tx.Carts().RemoveItem(ctx, cart.ID, productID)
	})
}

// ClearCart empties the session's cart. A session without a cart is left
// without one.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().FindBySessionID(ctx, sessionID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Carts().ClearItems(ctx, cart.ID); err != nil {
			return err
		}
		return tx.Carts().Touch(ctx, cart.ID, s.clock.Now().UTC())
	})
}

func (s *cartService) GenerateSessionID() string {
	return uuid.NewString()
}

// mutate runs fn against the session's cart in one transaction, touches the
// cart and returns it reloaded.
func (s *cartService) mutate(
	ctx context.Context,
	sessionID string,
	fn func(tx repository.Store, cart *domain.Cart) error,
) (*CartResponse, error) {
	var cart *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := s.getOrCreateCart(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		if err := fn(tx, current); err != nil {
			return err
		}
		if err := tx.Carts().Touch(ctx, current.ID, s.clock.Now().UTC()); err != nil {
			return err
		}

		cart, err = tx.Carts().FindBySessionID(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCartResponse(cart), nil
}

func (s *cartService) getOrCreateCart(ctx context.Context, tx repository.Store, sessionID string) (*domain.Cart, error) {
	cart, err := tx.Carts().FindBySessionID(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	now := s.clock.Now().UTC()
	err = tx.Carts().CreateIfAbsent(ctx, &domain.Cart{
		ID:        uuid.New(),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	cart, err = tx.Carts().FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created cart: %w", err)
	}
	return cart, nil
}

func toCartResponse(cart *domain.Cart) *CartResponse {
	resp := &CartResponse{
		ID:          cart.ID,
		SessionID:   cart.SessionID,
		Items:       make([]CartItemResponse, 0, len(cart.Items)),
		TotalAmount: cart.TotalAmount(),
		TotalItems:  cart.TotalItems(),
	}
	for _, item := range cart.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.Product.Name,
			ProductImageURL: item.Product.ImageURL,
			ProductPrice:    item.Product.Price,
			Quantity:        item.Quantity,
			Subtotal:        item.Subtotal(),
		})
	}
	return resp
}
