package transport

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCart_StartsSession(t *testing.T) {
	cartService := &fakeCartService{}
	router := newCartRouter(cartService)

	w := serve(t, router, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generated-session", cartService.last().sessionID)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "CART_SESSION_ID" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	// The cookie binds follow-up requests to the same session.
	req := httptest.NewRequest(http.MethodDelete, "/api/cart", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cartCall{op: "clear", sessionID: "generated-session"}, cartService.last())
}

func TestAddItem(t *testing.T) {
	productID := uuid.New()

	t.Run("quantity defaults to one", func(t *testing.T) {
		cartService := &fakeCartService{}
		w := serve(t, newCartRouter(cartService), http.MethodPost, "/api/cart/items",
			`{"product_id":"`+productID.String()+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, cartService.last().quantity)
		assert.Equal(t, productID, cartService.last().productID)
	})

	t.Run("explicit quantity", func(t *testing.T) {
		cartService := &fakeCartService{}
		w := serve(t, newCartRouter(cartService), http.MethodPost, "/api/cart/items",
			`{"product_id":"`+productID.String()+`","quantity":3}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, cartService.last().quantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		cartService := &fakeCartService{err: repository.ErrProductNotFound}
		w := serve(t, newCartRouter(cartService), http.MethodPost, "/api/cart/items",
			`{"product_id":"`+productID.String()+`"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := serve(t, newCartRouter(&fakeCartService{}), http.MethodPost, "/api/cart/items", `{"product_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// Feature: storefront, Property: invalid add-to-cart payloads are rejected
func TestProperty_InvalidAddItemIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("bad product ids or quantities below one never reach the service", prop.ForAll(
		func(quantity int, badID bool) bool {
			productID := uuid.NewString()
			if badID {
				productID = "product-" + productID[:8]
			}
			if !badID && quantity >= 1 {
				quantity = -quantity
			}

			cartService := &fakeCartService{}
			body := `{"product_id":"` + productID + `","quantity":` + strconv.Itoa(quantity) + `}`
			w := serve(t, newCartRouter(cartService), http.MethodPost, "/api/cart/items", body)

			return w.Code == http.StatusBadRequest && len(cartService.calls) == 0
		},
		gen.IntRange(-100, 100),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUpdateItem(t *testing.T) {
	productID := uuid.New()
	cartService := &fakeCartService{}
	router := newCartRouter(cartService)

	w := serve(t, router, http.MethodPut, "/api/cart/items/"+productID.String()+"?quantity=0", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cartCall{op: "update", sessionID: "generated-session", productID: productID, quantity: 0}, cartService.last())

	w = serve(t, router, http.MethodPut, "/api/cart/items/"+productID.String(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, router, http.MethodPut, "/api/cart/items/"+productID.String()+"?quantity=1.5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, router, http.MethodPut, "/api/cart/items/nope?quantity=2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cartService.err = repository.ErrCartItemNotFound
	w = serve(t, router, http.MethodPut, "/api/cart/items/"+productID.String()+"?quantity=2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveItem(t *testing.T) {
	productID := uuid.New()
	cartService := &fakeCartService{}
	router := newCartRouter(cartService)

	w := serve(t, router, http.MethodDelete, "/api/cart/items/"+productID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "remove", cartService.last().op)

	cartService.err = repository.ErrCartItemNotFound
	w = serve(t, router, http.MethodDelete, "/api/cart/items/"+productID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_InvalidQuantityFromService(t *testing.T) {
	cartService := &fakeCartService{err: service.ErrInvalidQuantity}
	w := serve(t, newCartRouter(cartService), http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
