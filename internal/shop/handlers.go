package shop

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/apper-apps/holo-toybox-market/internal/auth"
	"github.com/apper-apps/holo-toybox-market/internal/catalog"
	"github.com/apper-apps/holo-toybox-market/internal/logger"

	"github.com/gorilla/mux"
)

// ModeHolder carries the session's parent/kid mode. The store reads it;
// the mode endpoints own it.
type ModeHolder struct {
	v atomic.Value
}

// NewModeHolder starts in the given mode.
func NewModeHolder(initial Mode) *ModeHolder {
	h := &ModeHolder{}
	h.v.Store(initial)
	return h
}

// Mode returns the current mode.
func (h *ModeHolder) Mode() Mode {
	return h.v.Load().(Mode)
}

// Set replaces the current mode.
func (h *ModeHolder) Set(m Mode) {
	h.v.Store(m)
}

// Handler handles HTTP requests for shopping mutations and reads
type Handler struct {
	store  *Store
	source catalog.Source
	mode   *ModeHolder
}

// NewHandler creates a new shopping handler
func NewHandler(store *Store, source catalog.Source, mode *ModeHolder) *Handler {
	return &Handler{store: store, source: source, mode: mode}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// resolveProduct looks the path product up in the catalog, writing the
// error response itself when the lookup fails.
func (h *Handler) resolveProduct(w http.ResponseWriter, r *http.Request) *catalog.Product {
	id, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return nil
	}

	product, err := h.source.Get(r.Context(), id)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return nil
		}
		logger.Errorf("resolve product %d: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}

	return product
}

// --- cart ---

// AddToCart handles POST /api/cart
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"productId"`
		Quantity  int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.source.Get(r.Context(), req.ProductID)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		logger.Errorf("AddToCart lookup: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	switch err := h.store.AddToCart(*product, req.Quantity); {
	case errors.Is(err, ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrOutOfStock):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, h.store.Cart())
}

// UpdateCartQuantity handles PUT /api/cart/{productId}
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateCartQuantity(productID, req.Quantity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.store.Cart())
}

// RemoveFromCart handles DELETE /api/cart/{productId}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	h.store.RemoveFromCart(productID)
	writeJSON(w, http.StatusOK, h.store.Cart())
}

// ClearCart handles DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, _ *http.Request) {
	h.store.ClearCart()
	w.WriteHeader(http.StatusNoContent)
}

// GetCart handles GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Cart())
}

// --- wishlist ---

// ToggleWishlist handles POST /api/wishlist/{productId}
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	product := h.resolveProduct(w, r)
	if product == nil {
		return
	}

	h.store.ToggleWishlist(*product)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inWishlist": h.store.IsInWishlist(product.ID),
		"count":      h.store.WishlistCount(),
	})
}

// ApproveWishlistItem handles POST /api/wishlist/{productId}/approve
func (h *Handler) ApproveWishlistItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(mux.Vars(r)["productId"])
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	h.store.ApproveWishlistItem(productID)
	writeJSON(w, http.StatusOK, h.store.Wishlist())
}

// GetWishlist handles GET /api/wishlist. The pending split is a parent
// surface; kids only see approved entries.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("status") {
	case "pending":
		if !auth.IsParent(r) {
			http.Error(w, "forbidden - parent role required", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, h.store.WishlistByApproval(false))
	case "approved":
		writeJSON(w, http.StatusOK, h.store.WishlistByApproval(true))
	default:
		writeJSON(w, http.StatusOK, h.store.Wishlist())
	}
}

// --- filters ---

// filterUpdate distinguishes absent fields from zero values; present
// fields replace the current selection wholesale.
type filterUpdate struct {
	Category    *string     `json:"category"`
	AgeGroups   *[]string   `json:"ageGroups"`
	PriceRange  *[2]float64 `json:"priceRange"`
	SearchQuery *string     `json:"searchQuery"`
}

// UpdateFilters handles PUT /api/filters
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filterUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Category != nil {
		h.store.SetCategory(*req.Category)
	}
	if req.AgeGroups != nil {
		h.store.SetAgeGroups(*req.AgeGroups)
	}
	if req.PriceRange != nil {
		h.store.SetPriceRange(req.PriceRange[0], req.PriceRange[1])
	}
	if req.SearchQuery != nil {
		h.store.SetSearchQuery(*req.SearchQuery)
	}

	writeJSON(w, http.StatusOK, h.store.Filters())
}

// GetFilters handles GET /api/filters
func (h *Handler) GetFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Filters())
}

// --- quick view ---

// SetQuickView handles POST /api/quickview/{productId}
func (h *Handler) SetQuickView(w http.ResponseWriter, r *http.Request) {
	product := h.resolveProduct(w, r)
	if product == nil {
		return
	}

	h.store.SetQuickViewProduct(*product)
	writeJSON(w, http.StatusOK, product)
}

// CloseQuickView handles DELETE /api/quickview
func (h *Handler) CloseQuickView(w http.ResponseWriter, _ *http.Request) {
	h.store.CloseQuickView()
	w.WriteHeader(http.StatusNoContent)
}

// GetQuickView handles GET /api/quickview
func (h *Handler) GetQuickView(w http.ResponseWriter, _ *http.Request) {
	product := h.store.QuickView()
	if product == nil {
		http.Error(w, "no quick view selection", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// --- checkout ---

// UpdateCheckout handles PUT /api/checkout
func (h *Handler) UpdateCheckout(w http.ResponseWriter, r *http.Request) {
	var partial CheckoutDraft
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.store.UpdateCheckoutData(partial)
	writeJSON(w, http.StatusOK, h.store.CheckoutData())
}

// GetCheckout handles GET /api/checkout
func (h *Handler) GetCheckout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.CheckoutData())
}

// ClearCheckout handles DELETE /api/checkout
func (h *Handler) ClearCheckout(w http.ResponseWriter, _ *http.Request) {
	h.store.ClearCheckoutData()
	w.WriteHeader(http.StatusNoContent)
}

// PlaceOrder handles POST /api/checkout/place
func (h *Handler) PlaceOrder(w http.ResponseWriter, _ *http.Request) {
	orderID, fieldErrs, err := h.store.PlaceOrder()
	switch {
	case errors.Is(err, ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrCheckoutInvalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": fieldErrs})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"orderId": orderID})
}

// --- mode ---

// GetMode handles GET /api/mode
func (h *Handler) GetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]Mode{"mode": h.mode.Mode()})
}

// SetMode handles PUT /api/mode. Entering parent mode requires a parent
// token; dropping back to kid mode is always allowed.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	switch req.Mode {
	case ModeKid:
		h.mode.Set(ModeKid)
	case ModeParent:
		if !auth.IsParent(r) {
			http.Error(w, "forbidden - parent role required", http.StatusForbidden)
			return
		}
		h.mode.Set(ModeParent)
	default:
		http.Error(w, "mode must be \"parent\" or \"kid\"", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]Mode{"mode": h.mode.Mode()})
}

// RequireParent is middleware that requires a valid JWT token with the
// parent role
func RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := auth.GetBearerToken(r)
		if tokenStr == "" {
			logger.Debugf("RequireParent: no bearer token provided")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			logger.Debugf("RequireParent: JWT parse error: %v", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if claims.Role != auth.RoleParent {
			logger.Debugf("RequireParent: user lacks parent role")
			http.Error(w, "forbidden - parent role required", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}
