package shop

import (
	"time"

	"github.com/apper-apps/holo-toybox-market/internal/catalog"
)

// Mode is the role context gating wishlist approval defaults.
type Mode string

const (
	ModeParent Mode = "parent"
	ModeKid    Mode = "kid"
)

// CartLine is one aggregated quantity entry for a single product. The
// cart never holds two lines for the same product id.
type CartLine struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
	Product   catalog.Product `json:"product"`
}

// WishlistEntry is a saved-for-later product reference. At most one entry
// exists per product id.
type WishlistEntry struct {
	ProductID      int             `json:"productId"`
	AddedAt        time.Time       `json:"addedAt"`
	ParentApproved bool            `json:"parentApproved"`
	Product        catalog.Product `json:"product"`
}

// persistedState is the durable slot payload. Only cart and wishlist
// survive a session; filters, checkout draft and quick view are transient.
type persistedState struct {
	Cart     []CartLine      `json:"cart"`
	Wishlist []WishlistEntry `json:"wishlist"`
}

// CartView is the cart plus its derived aggregates, as served to callers.
type CartView struct {
	Lines     []CartLine `json:"lines"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"itemCount"`
}
