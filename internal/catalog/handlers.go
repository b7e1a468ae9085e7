package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/apper-apps/holo-toybox-market/internal/logger"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests for catalog reads
type Handler struct {
	source Source
}

// counter is implemented by sources that can report the category-wide
// total alongside a filtered page.
type counter interface {
	CountProducts(ctx context.Context, category string) (int, error)
}

// NewHandler creates a new catalog handler
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// specFromQuery builds a FilterSpec from list query parameters. Absent
// parameters leave the matching predicate inactive.
func specFromQuery(r *http.Request) FilterSpec {
	q := r.URL.Query()
	spec := FilterSpec{
		Category:    q.Get("category"),
		SearchQuery: q.Get("q"),
	}
	if spec.Category == "" {
		spec.Category = CategoryAll
	}
	if ages := q.Get("ageGroups"); ages != "" {
		spec.AgeGroups = strings.Split(ages, ",")
	}
	if min, err := strconv.ParseFloat(q.Get("priceMin"), 64); err == nil {
		spec.PriceMin = min
	}
	if max, err := strconv.ParseFloat(q.Get("priceMax"), 64); err == nil {
		spec.PriceMax = max
	}
	return spec
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ListProducts handles GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	spec := specFromQuery(r)

	products, err := h.source.List(r.Context(), spec)
	if err != nil {
		logger.Errorf("ListProducts: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Report the category-wide total when the source can count
	total := len(products)
	if c, ok := h.source.(counter); ok {
		n, err := c.CountProducts(r.Context(), spec.Category)
		if err != nil {
			logger.Errorf("CountProducts: %v", err)
		} else {
			total = n
		}
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: products, Total: total})
}

// GetProduct handles GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := h.source.Get(r.Context(), id)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Errorf("GetProduct: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// FeaturedProducts handles GET /api/products/featured
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.source.Featured(r.Context())
	if err != nil {
		logger.Errorf("FeaturedProducts: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: products, Total: len(products)})
}

// ProductsByCategory handles GET /api/products/category/{category}
func (h *Handler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]

	products, err := h.source.ByCategory(r.Context(), category)
	if err != nil {
		logger.Errorf("ProductsByCategory: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: products, Total: len(products)})
}

// SearchProducts handles GET /api/products/search?q=
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing search query", http.StatusBadRequest)
		return
	}

	products, err := h.source.Search(r.Context(), query)
	if err != nil {
		logger.Errorf("SearchProducts: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{Products: products, Total: len(products)})
}
