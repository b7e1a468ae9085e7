package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	source, err := NewMemorySource()
	require.NoError(t, err)
	h := NewHandler(source)

	r := mux.NewRouter()
	r.HandleFunc("/api/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/featured", h.FeaturedProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/search", h.SearchProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/category/{category}", h.ProductsByCategory).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)
	return r
}

func get(t *testing.T, r *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) ProductListResponse {
	t.Helper()
	var resp ProductListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestListProductsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeList(t, w)
	assert.NotEmpty(t, resp.Products)
	assert.Equal(t, len(resp.Products), resp.Total)
}

func TestListProductsFilterParams(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products?category=Toys&ageGroups=4-6&priceMin=0&priceMax=60")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeList(t, w)
	require.NotEmpty(t, resp.Products)
	for _, p := range resp.Products {
		assert.Equal(t, "Toys", p.Category)
		assert.Contains(t, p.AgeGroups, "4-6")
		assert.LessOrEqual(t, p.Price, 60.0)
	}
}

func TestListProductsTotalIsCategoryWide(t *testing.T) {
	r := newTestRouter(t)

	// the search predicate narrows the page, the total still covers the
	// whole category
	w := get(t, r, "/api/products?category=Toys&q=blocks")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeList(t, w)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Rainbow Building Blocks", resp.Products[0].Name)

	wantTotal := decodeList(t, get(t, r, "/api/products/category/Toys")).Total
	assert.Equal(t, wantTotal, resp.Total)
	assert.Greater(t, resp.Total, len(resp.Products))
}

func TestGetProductEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products/1")
	require.Equal(t, http.StatusOK, w.Code)

	var p Product
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, 1, p.ID)
}

func TestGetProductNotFound(t *testing.T) {
	r := newTestRouter(t)
	w := get(t, r, "/api/products/99999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeaturedEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products/featured")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeList(t, w)
	assert.NotEmpty(t, resp.Products)
	assert.LessOrEqual(t, resp.Total, 8)
}

func TestCategoryEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products/category/Games")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeList(t, w)
	require.NotEmpty(t, resp.Products)
	for _, p := range resp.Products {
		assert.Equal(t, "Games", p.Category)
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	r := newTestRouter(t)

	w := get(t, r, "/api/products/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, r, "/api/products/search?q=paint")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeList(t, w)
	assert.NotEmpty(t, resp.Products)
}
