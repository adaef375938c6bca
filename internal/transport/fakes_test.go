package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeProductService struct {
	lastFilter service.ProductFilter
	page       *service.ProductPage
	product    *service.ProductDTO
	err        error
}

func (f *fakeProductService) List(ctx context.Context, filter service.ProductFilter) (*service.ProductPage, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func (f *fakeProductService) Find(ctx context.Context, id uuid.UUID) (*service.ProductDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

type fakeCategoryService struct {
	categories []*domain.Category
	err        error
}

func (f *fakeCategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return f.categories, f.err
}

type fakeSyncService struct {
	lastCategory   string
	lastExternalID int64
	synced         int
	product        *domain.Product
	err            error
}

func (f *fakeSyncService) SyncAll(ctx context.Context, category string) (int, error) {
	f.lastCategory = category
	return f.synced, f.err
}

func (f *fakeSyncService) SyncOne(ctx context.Context, externalID int64) (*domain.Product, error) {
	f.lastExternalID = externalID
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

type cartCall struct {
	op        string
	sessionID string
	productID uuid.UUID
	quantity  int
}

type fakeCartService struct {
	calls []cartCall
	err   error
}

func (f *fakeCartService) record(call cartCall) (*service.CartResponse, error) {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return &service.CartResponse{SessionID: call.sessionID, Items: []service.CartItemResponse{}}, nil
}

func (f *fakeCartService) GetCart(ctx context.Context, sessionID string) (*service.CartResponse, error) {
	return f.record(cartCall{op: "get", sessionID: sessionID})
}

func (f *fakeCartService) AddToCart(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*service.CartResponse, error) {
	return f.record(cartCall{op: "add", sessionID: sessionID, productID: productID, quantity: quantity})
}

func (f *fakeCartService) UpdateCartItem(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (*service.CartResponse, error) {
	return f.record(cartCall{op: "update", sessionID: sessionID, productID: productID, quantity: quantity})
}

func (f *fakeCartService) RemoveFromCart(ctx context.Context, sessionID string, productID uuid.UUID) (*service.CartResponse, error) {
	return f.record(cartCall{op: "remove", sessionID: sessionID, productID: productID})
}

func (f *fakeCartService) ClearCart(ctx context.Context, sessionID string) error {
	_, err := f.record(cartCall{op: "clear", sessionID: sessionID})
	return err
}

func (f *fakeCartService) GenerateSessionID() string {
	return "generated-session"
}

func (f *fakeCartService) last() cartCall {
	return f.calls[len(f.calls)-1]
}

var testSession = middleware.SessionConfig{
	CookieName: "CART_SESSION_ID",
	Secret:     "test-secret",
	MaxAge:     7 * 24 * time.Hour,
}

func newCartRouter(cartService *fakeCartService) http.Handler {
	r := chi.NewRouter()
	session := middleware.CartSessionMiddleware(testSession, cartService.GenerateSessionID, zap.NewNop())
	NewCartHandler(cartService, zap.NewNop()).RegisterRoutes(r, session)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
