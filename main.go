package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/apper-apps/holo-toybox-market/internal/catalog"
	"github.com/apper-apps/holo-toybox-market/internal/db"
	"github.com/apper-apps/holo-toybox-market/internal/featureflags"
	mw "github.com/apper-apps/holo-toybox-market/internal/http/middleware"
	"github.com/apper-apps/holo-toybox-market/internal/logger"
	"github.com/apper-apps/holo-toybox-market/internal/shop"
	"github.com/apper-apps/holo-toybox-market/internal/storage"
)

func main() {
	// 1) Catalog source: Postgres when DATABASE_URL is set, otherwise the
	// embedded seed catalog.
	sqlDB, err := db.Init()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	var source catalog.Source
	if sqlDB != nil {
		defer sqlDB.Close()
		source = catalog.NewPGSource(sqlDB)
	} else {
		mem, err := catalog.NewMemorySource()
		if err != nil {
			log.Fatalf("seed catalog load failed: %v", err)
		}
		source = mem
	}

	// 2) Feature flags init (non-fatal)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := featureflags.Init(ctx, ""); err != nil {
		log.Printf("feature flags init warning: %v", err)
	} else {
		log.Printf("feature flags ready: offline=%v, logLevel=%s",
			featureflags.Values().Offline.IsEnabled(nil),
			featureflags.Values().LogLevel.GetValue(nil))
	}
	defer featureflags.Shutdown()

	// 2a) Initialize levelled logger from flag & watch for flips
	logger.Init(featureflags.Values().LogLevel.GetValue(nil))
	logger.Infof("log level set to %s", logger.GetLevel())

	go func() {
		prev := featureflags.Values().LogLevel.GetValue(nil)
		for {
			time.Sleep(5 * time.Second)
			cur := featureflags.Values().LogLevel.GetValue(nil)
			if cur != prev {
				logger.SetLevel(cur)
				logger.Infof("log level changed to %s", logger.GetLevel())
				prev = cur
			}
		}
	}()

	// 3) Durable state slot + shopping store
	statePath := os.Getenv("STATE_DB_PATH")
	if statePath == "" {
		statePath = "toybox-state.db"
	}
	slot, err := storage.Open(statePath)
	if err != nil {
		log.Fatalf("state storage init failed: %v", err)
	}
	defer slot.Close()

	initialMode := shop.ModeParent
	if featureflags.Values().DefaultKidMode.IsEnabled(nil) {
		initialMode = shop.ModeKid
	}
	modeHolder := shop.NewModeHolder(initialMode)

	store := shop.NewStore(
		shop.WithSlot(slot),
		shop.WithModeSource(modeHolder.Mode),
	)

	// 4) Router
	r := mux.NewRouter()

	// 4a) Offline kill-switch middleware (placed immediately after router creation)
	offlineGate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// always allow health checks
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}
			// block all other requests when Offline flag is ON
			if featureflags.Values().Offline.IsEnabled(nil) {
				http.Error(w, "service temporarily offline", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	r.Use(offlineGate)

	// 4b) Request logger (skip noisy health endpoints)
	r.Use(mw.LogRequests(mw.WithSkips("/health", "/ready")))

	// 5) Health endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := slot.Ping(); err != nil {
			http.Error(w, "state db not ready", http.StatusServiceUnavailable)
			return
		}
		if sqlDB != nil {
			if err := sqlDB.Ping(); err != nil {
				http.Error(w, "catalog db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	// 6) Inspect current flag values
	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]interface{}{
			"offline":        featureflags.Values().Offline.IsEnabled(nil),
			"logLevel":       featureflags.Values().LogLevel.GetValue(nil),
			"defaultKidMode": featureflags.Values().DefaultKidMode.IsEnabled(nil),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}).Methods(http.MethodGet)

	// 7) Catalog read endpoints (no authentication required)
	catalogHandler := catalog.NewHandler(source)

	r.HandleFunc("/api/products", catalogHandler.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/featured", catalogHandler.FeaturedProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/search", catalogHandler.SearchProducts).Methods(http.MethodGet)
	r.HandleFunc("/api/products/category/{category}", catalogHandler.ProductsByCategory).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id:[0-9]+}", catalogHandler.GetProduct).Methods(http.MethodGet)

	// 8) Shopping endpoints
	shopHandler := shop.NewHandler(store, source, modeHolder)

	r.HandleFunc("/api/cart", shopHandler.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/api/cart", shopHandler.AddToCart).Methods(http.MethodPost)
	r.HandleFunc("/api/cart", shopHandler.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/api/cart/{productId:[0-9]+}", shopHandler.UpdateCartQuantity).Methods(http.MethodPut)
	r.HandleFunc("/api/cart/{productId:[0-9]+}", shopHandler.RemoveFromCart).Methods(http.MethodDelete)

	r.HandleFunc("/api/wishlist", shopHandler.GetWishlist).Methods(http.MethodGet)
	r.HandleFunc("/api/wishlist/{productId:[0-9]+}", shopHandler.ToggleWishlist).Methods(http.MethodPost)
	r.HandleFunc("/api/wishlist/{productId:[0-9]+}/approve",
		shop.RequireParent(shopHandler.ApproveWishlistItem)).Methods(http.MethodPost)

	r.HandleFunc("/api/filters", shopHandler.GetFilters).Methods(http.MethodGet)
	r.HandleFunc("/api/filters", shopHandler.UpdateFilters).Methods(http.MethodPut)

	r.HandleFunc("/api/quickview", shopHandler.GetQuickView).Methods(http.MethodGet)
	r.HandleFunc("/api/quickview", shopHandler.CloseQuickView).Methods(http.MethodDelete)
	r.HandleFunc("/api/quickview/{productId:[0-9]+}", shopHandler.SetQuickView).Methods(http.MethodPost)

	r.HandleFunc("/api/checkout", shopHandler.GetCheckout).Methods(http.MethodGet)
	r.HandleFunc("/api/checkout", shopHandler.UpdateCheckout).Methods(http.MethodPut)
	r.HandleFunc("/api/checkout", shopHandler.ClearCheckout).Methods(http.MethodDelete)
	r.HandleFunc("/api/checkout/place", shopHandler.PlaceOrder).Methods(http.MethodPost)

	r.HandleFunc("/api/mode", shopHandler.GetMode).Methods(http.MethodGet)
	r.HandleFunc("/api/mode", shopHandler.SetMode).Methods(http.MethodPut)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("toybox market listening on %s", s.Addr)
	log.Fatal(s.ListenAndServe())
}
