package shop

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/apper-apps/holo-toybox-market/internal/catalog"
	"github.com/apper-apps/holo-toybox-market/internal/logger"
)

// slotName is the single durable slot holding {cart, wishlist}.
const slotName = "toybox-state"

var (
	// ErrInvalidQuantity signals a non-positive quantity argument.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrOutOfStock signals an add against a product with no stock.
	ErrOutOfStock = errors.New("product is out of stock")
)

// Slot is the durable storage contract the store persists into.
type Slot interface {
	Save(ctx context.Context, name string, blob []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}

// slotClearer is implemented by slots that can drop a saved value
// outright; stores prefer that over writing an empty payload.
type slotClearer interface {
	Clear(ctx context.Context, name string) error
}

// Store is the authoritative shopping state: cart, wishlist, active
// filters, checkout draft and quick-view selection. Every mutation runs
// to completion under the store lock before the next is observed, and
// each cart or wishlist change overwrites the durable slot in full.
type Store struct {
	mu       sync.Mutex
	cart     []CartLine
	wishlist []WishlistEntry
	filters  catalog.FilterSpec
	checkout CheckoutDraft
	quick    *catalog.Product

	slot Slot
	mode func() Mode
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSlot attaches durable storage. Without it the store is purely
// in-memory (tests, previews).
func WithSlot(slot Slot) Option {
	return func(s *Store) { s.slot = slot }
}

// WithModeSource injects the parent/kid role context the store reads when
// inserting wishlist entries. The store never owns the mode.
func WithModeSource(mode func() Mode) Option {
	return func(s *Store) { s.mode = mode }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store with an empty cart and wishlist, the default
// filter selection and an empty checkout draft, then rehydrates from the
// durable slot when one is attached.
func NewStore(opts ...Option) *Store {
	s := &Store{
		filters:  catalog.DefaultFilterSpec(),
		checkout: emptyCheckoutDraft(),
		mode:     func() Mode { return ModeKid },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rehydrate()
	return s
}

// rehydrate loads the persisted {cart, wishlist} blob and replays it.
// State is reset first, so loading the same blob twice cannot double
// quantities, and wishlist entries keep the approval flag they were saved
// with regardless of the session's current mode. A missing or corrupt
// blob starts the session empty.
func (s *Store) rehydrate() {
	if s.slot == nil {
		return
	}

	blob, err := s.slot.Load(context.Background(), slotName)
	if err != nil {
		logger.Debugf("state slot load: %v", err)
		return
	}

	var saved persistedState
	if err := json.Unmarshal(blob, &saved); err != nil {
		logger.Debugf("discarding unparseable state slot: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = nil
	s.wishlist = nil
	for _, line := range saved.Cart {
		s.addLine(line.Product, line.Quantity, line.AddedAt)
	}
	for _, entry := range saved.Wishlist {
		s.insertEntry(entry.Product, entry.AddedAt, entry.ParentApproved)
	}
}

// insertEntry adds a wishlist entry carrying an explicit approval flag.
// Only rehydration uses it: replaying through toggleEntry would re-derive
// the flag from whatever mode the process restarted in, flipping entries
// saved as unapproved. Duplicate ids are dropped to keep the uniqueness
// invariant. Lock must be held.
func (s *Store) insertEntry(p catalog.Product, at time.Time, approved bool) {
	for _, entry := range s.wishlist {
		if entry.ProductID == p.ID {
			return
		}
	}
	s.wishlist = append(s.wishlist, WishlistEntry{
		ProductID:      p.ID,
		AddedAt:        at,
		ParentApproved: approved,
		Product:        p,
	})
}

// persist serializes {cart, wishlist} and overwrites the durable slot.
// Failures are logged, never surfaced: a lost write costs a rehydrate,
// not correctness. Must be called with the lock held.
func (s *Store) persist() {
	if s.slot == nil {
		return
	}

	if len(s.cart) == 0 && len(s.wishlist) == 0 {
		if c, ok := s.slot.(slotClearer); ok {
			if err := c.Clear(context.Background(), slotName); err != nil {
				logger.Warnf("clear state slot: %v", err)
			}
			return
		}
	}

	blob, err := json.Marshal(persistedState{Cart: s.cart, Wishlist: s.wishlist})
	if err != nil {
		logger.Warnf("serialize state: %v", err)
		return
	}
	if err := s.slot.Save(context.Background(), slotName, blob); err != nil {
		logger.Warnf("persist state: %v", err)
	}
}

// --- cart transitions ---

// addLine inserts or increments the line for p, clamping the resulting
// quantity to the product's stock when the snapshot carries one. Lock
// must be held.
func (s *Store) addLine(p catalog.Product, quantity int, at time.Time) {
	for i := range s.cart {
		if s.cart[i].ProductID == p.ID {
			s.cart[i].Quantity = clampToStock(s.cart[i].Quantity+quantity, p.Stock)
			return
		}
	}
	s.cart = append(s.cart, CartLine{
		ProductID: p.ID,
		Quantity:  clampToStock(quantity, p.Stock),
		AddedAt:   at,
		Product:   p,
	})
}

func clampToStock(quantity, stock int) int {
	if stock > 0 && quantity > stock {
		return stock
	}
	return quantity
}

// AddToCart inserts a line for p or increments the existing one. The
// resulting quantity never exceeds the product's stock count; adding a
// product with zero stock is rejected.
func (s *Store) AddToCart(p catalog.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock == 0 {
		return ErrOutOfStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLine(p, quantity, s.now())
	s.persist()
	return nil
}

// UpdateCartQuantity sets the quantity on an existing line. Zero is the
// deletion sentinel; negative values are rejected.
func (s *Store) UpdateCartQuantity(productID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity == 0 {
		s.removeLine(productID)
	} else {
		for i := range s.cart {
			if s.cart[i].ProductID == productID {
				s.cart[i].Quantity = quantity
				break
			}
		}
	}
	s.persist()
	return nil
}

func (s *Store) removeLine(productID int) {
	kept := s.cart[:0]
	for _, line := range s.cart {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	s.cart = kept
}

// RemoveFromCart deletes the line for productID. Removing an absent line
// is a no-op, not an error.
func (s *Store) RemoveFromCart(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLine(productID)
	s.persist()
}

// ClearCart empties the cart unconditionally.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.persist()
}

// --- wishlist transitions ---

// toggleEntry flips membership for p. Lock must be held.
func (s *Store) toggleEntry(p catalog.Product, at time.Time) {
	for i, entry := range s.wishlist {
		if entry.ProductID == p.ID {
			s.wishlist = append(s.wishlist[:i], s.wishlist[i+1:]...)
			return
		}
	}
	s.wishlist = append(s.wishlist, WishlistEntry{
		ProductID:      p.ID,
		AddedAt:        at,
		ParentApproved: s.mode() == ModeParent,
		Product:        p,
	})
}

// ToggleWishlist removes the entry for p if present, otherwise inserts
// one. New entries are pre-approved only when the current mode is parent.
func (s *Store) ToggleWishlist(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggleEntry(p, s.now())
	s.persist()
}

func (s *Store) approveEntry(productID int) {
	for i := range s.wishlist {
		if s.wishlist[i].ProductID == productID {
			s.wishlist[i].ParentApproved = true
			return
		}
	}
}

// ApproveWishlistItem marks the entry as parent-approved. Absent or
// already-approved entries make this a no-op.
func (s *Store) ApproveWishlistItem(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approveEntry(productID)
	s.persist()
}

// --- filter transitions (each replaces its field wholesale) ---

// SetCategory replaces the category selection.
func (s *Store) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.Category = category
}

// SetAgeGroups replaces the age-group selection.
func (s *Store) SetAgeGroups(ageGroups []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.AgeGroups = append([]string(nil), ageGroups...)
}

// SetPriceRange replaces the price range. Inverted bounds are swapped so
// the stored pair always satisfies min <= max.
func (s *Store) SetPriceRange(min, max float64) {
	if min > max {
		min, max = max, min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.PriceMin = min
	s.filters.PriceMax = max
}

// SetSearchQuery replaces the free-text query.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.SearchQuery = query
}

// Filters returns the current filter selection.
func (s *Store) Filters() catalog.FilterSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec := s.filters
	spec.AgeGroups = append([]string(nil), s.filters.AgeGroups...)
	return spec
}

// --- quick view ---

// SetQuickViewProduct selects p for preview. Never persisted.
func (s *Store) SetQuickViewProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.quick = &cp
}

// CloseQuickView clears the preview selection.
func (s *Store) CloseQuickView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quick = nil
}

// QuickView returns the previewed product, or nil when none is selected.
func (s *Store) QuickView() *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quick == nil {
		return nil
	}
	cp := *s.quick
	return &cp
}

// --- derived reads (recomputed on demand, never stored) ---

// Cart returns the cart lines with their derived aggregates.
func (s *Store) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := CartView{Lines: append([]CartLine(nil), s.cart...)}
	for _, line := range s.cart {
		view.Total += line.Product.Price * float64(line.Quantity)
		view.ItemCount += line.Quantity
	}
	return view
}

// CartTotal is the sum of price*quantity over all lines.
func (s *Store) CartTotal() float64 {
	return s.Cart().Total
}

// CartItemCount is the sum of quantities over all lines, not the line count.
func (s *Store) CartItemCount() int {
	return s.Cart().ItemCount
}

// IsInCart reports whether a line exists for productID.
func (s *Store) IsInCart(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.cart {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}

// Wishlist returns a copy of every wishlist entry.
func (s *Store) Wishlist() []WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WishlistEntry(nil), s.wishlist...)
}

// WishlistByApproval returns the entries matching the approval flag: the
// parent surface reads the pending split, the kid surface the approved one.
func (s *Store) WishlistByApproval(approved bool) []WishlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []WishlistEntry{}
	for _, entry := range s.wishlist {
		if entry.ParentApproved == approved {
			matched = append(matched, entry)
		}
	}
	return matched
}

// WishlistCount is the number of wishlist entries.
func (s *Store) WishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}

// IsInWishlist reports whether an entry exists for productID.
func (s *Store) IsInWishlist(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.wishlist {
		if entry.ProductID == productID {
			return true
		}
	}
	return false
}
