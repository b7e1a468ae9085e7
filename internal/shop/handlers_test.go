package shop

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/holo-toybox-market/internal/auth"
	"github.com/apper-apps/holo-toybox-market/internal/catalog"
)

func newTestRouter(t *testing.T) (*mux.Router, *Store, *ModeHolder) {
	t.Helper()

	source, err := catalog.NewMemorySource()
	require.NoError(t, err)

	mode := NewModeHolder(ModeKid)
	store := NewStore(WithModeSource(mode.Mode))
	h := NewHandler(store, source, mode)

	r := mux.NewRouter()
	r.HandleFunc("/api/cart", h.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/api/cart", h.AddToCart).Methods(http.MethodPost)
	r.HandleFunc("/api/cart", h.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/api/cart/{productId:[0-9]+}", h.UpdateCartQuantity).Methods(http.MethodPut)
	r.HandleFunc("/api/cart/{productId:[0-9]+}", h.RemoveFromCart).Methods(http.MethodDelete)
	r.HandleFunc("/api/wishlist", h.GetWishlist).Methods(http.MethodGet)
	r.HandleFunc("/api/wishlist/{productId:[0-9]+}", h.ToggleWishlist).Methods(http.MethodPost)
	r.HandleFunc("/api/wishlist/{productId:[0-9]+}/approve", RequireParent(h.ApproveWishlistItem)).Methods(http.MethodPost)
	r.HandleFunc("/api/filters", h.GetFilters).Methods(http.MethodGet)
	r.HandleFunc("/api/filters", h.UpdateFilters).Methods(http.MethodPut)
	r.HandleFunc("/api/quickview", h.GetQuickView).Methods(http.MethodGet)
	r.HandleFunc("/api/quickview", h.CloseQuickView).Methods(http.MethodDelete)
	r.HandleFunc("/api/quickview/{productId:[0-9]+}", h.SetQuickView).Methods(http.MethodPost)
	r.HandleFunc("/api/checkout", h.GetCheckout).Methods(http.MethodGet)
	r.HandleFunc("/api/checkout", h.UpdateCheckout).Methods(http.MethodPut)
	r.HandleFunc("/api/checkout", h.ClearCheckout).Methods(http.MethodDelete)
	r.HandleFunc("/api/checkout/place", h.PlaceOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/mode", h.GetMode).Methods(http.MethodGet)
	r.HandleFunc("/api/mode", h.SetMode).Methods(http.MethodPut)

	return r, store, mode
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parentToken(t *testing.T) string {
	t.Helper()
	claims := auth.Claims{
		Role: auth.RoleParent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("handler-test-secret"))
	require.NoError(t, err)
	return signed
}

func TestAddToCartEndpoint(t *testing.T) {
	r, store, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 1, "quantity": 2}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var view CartView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, 2, view.ItemCount)
	assert.True(t, store.IsInCart(1))
}

func TestAddToCartDefaultsQuantityToOne(t *testing.T) {
	r, store, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 1}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.CartItemCount())
}

func TestAddToCartUnknownProduct(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 99999, "quantity": 1}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddToCartOutOfStockConflict(t *testing.T) {
	r, _, _ := newTestRouter(t)

	// product 12 in the seed catalog has zero stock
	w := doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 12, "quantity": 1}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateCartQuantityEndpointZeroDeletes(t *testing.T) {
	r, store, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 1, "quantity": 2}, "")

	w := doJSON(t, r, http.MethodPut, "/api/cart/1", map[string]int{"quantity": 0}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.IsInCart(1))
}

func TestClearCartEndpoint(t *testing.T) {
	r, store, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 1, "quantity": 2}, "")

	w := doJSON(t, r, http.MethodDelete, "/api/cart", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, store.CartItemCount())
}

func TestWishlistToggleEndpoint(t *testing.T) {
	r, store, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/wishlist/3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.IsInWishlist(3))

	w = doJSON(t, r, http.MethodPost, "/api/wishlist/3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.IsInWishlist(3))
}

func TestApproveRequiresParentToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")
	r, store, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/wishlist/3", nil, "")

	w := doJSON(t, r, http.MethodPost, "/api/wishlist/3/approve", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, store.Wishlist()[0].ParentApproved)

	w = doJSON(t, r, http.MethodPost, "/api/wishlist/3/approve", nil, parentToken(t))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.Wishlist()[0].ParentApproved)
}

func TestPendingWishlistViewIsParentOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")
	r, _, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/wishlist/3", nil, "")

	w := doJSON(t, r, http.MethodGet, "/api/wishlist?status=pending", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/wishlist?status=pending", nil, parentToken(t))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []WishlistEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].ProductID)
}

func TestFiltersEndpointPartialUpdate(t *testing.T) {
	r, store, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/api/filters", map[string]interface{}{
		"category":   "Toys",
		"priceRange": []float64{10, 60},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	spec := store.Filters()
	assert.Equal(t, "Toys", spec.Category)
	assert.Equal(t, 10.0, spec.PriceMin)
	assert.Equal(t, 60.0, spec.PriceMax)
	// untouched fields keep their defaults
	assert.Empty(t, spec.SearchQuery)
}

func TestQuickViewEndpoints(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/quickview", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/quickview/2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/quickview", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var p catalog.Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, 2, p.ID)

	w = doJSON(t, r, http.MethodDelete, "/api/quickview", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCheckoutFlowEndpoints(t *testing.T) {
	r, store, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/cart", map[string]int{"productId": 1, "quantity": 1}, "")

	// placing with an unfinished draft reports field errors
	w := doJSON(t, r, http.MethodPost, "/api/checkout/place", nil, "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var invalid struct {
		Errors FieldErrors `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&invalid))
	assert.Contains(t, invalid.Errors, "firstName")
	assert.Contains(t, invalid.Errors, "method")

	doJSON(t, r, http.MethodPut, "/api/checkout", CheckoutDraft{Address: validAddress()}, "")
	doJSON(t, r, http.MethodPut, "/api/checkout", CheckoutDraft{Payment: validCardPayment()}, "")

	w = doJSON(t, r, http.MethodPost, "/api/checkout/place", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var placed map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))
	assert.NotEmpty(t, placed["orderId"])

	assert.Zero(t, store.CartItemCount())
	assert.Equal(t, CheckoutDraft{}, store.CheckoutData())
}

func TestPlaceOrderEmptyCartEndpoint(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/checkout/place", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestModeEndpoints(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")
	r, store, mode := newTestRouter(t)
	assert.Equal(t, ModeKid, mode.Mode())

	// kid sessions cannot flip themselves into parent mode
	w := doJSON(t, r, http.MethodPut, "/api/mode", map[string]string{"mode": "parent"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/mode", map[string]string{"mode": "parent"}, parentToken(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ModeParent, mode.Mode())

	// wishlist inserts now default to approved
	doJSON(t, r, http.MethodPost, "/api/wishlist/5", nil, "")
	require.Len(t, store.Wishlist(), 1)
	assert.True(t, store.Wishlist()[0].ParentApproved)

	w = doJSON(t, r, http.MethodPut, "/api/mode", map[string]string{"mode": "kid"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ModeKid, mode.Mode())

	w = doJSON(t, r, http.MethodPut, "/api/mode", map[string]string{"mode": "grandparent"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
