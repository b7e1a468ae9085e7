package catalog

import "context"

// Source is the catalog read contract the storefront consumes. All calls
// are side-effect-free; implementations never hand out shared mutable
// state.
type Source interface {
	// List returns the products matching spec, in catalog order.
	List(ctx context.Context, spec FilterSpec) ([]Product, error)
	// Get returns the product with the given id or a *NotFoundError.
	Get(ctx context.Context, id int) (*Product, error)
	// Featured returns the featured shelf, capped at eight products.
	Featured(ctx context.Context) ([]Product, error)
	// ByCategory returns every product in a category ("all" = everything).
	ByCategory(ctx context.Context, category string) ([]Product, error)
	// Search matches free text against name, description, tags and category.
	Search(ctx context.Context, query string) ([]Product, error)
}
