package catalog

import "fmt"

// CategoryAll is the FilterSpec wildcard: no category narrowing.
const CategoryAll = "all"

// Categories the storefront recognizes. Seed data and the products table
// only ever use these values; matching is case-insensitive.
var Categories = []string{"Toys", "Art Supplies", "School Items", "Games", "Craft Kits"}

// AgeGroups the storefront filters on.
var AgeGroups = []string{"0-3", "4-6", "7-9", "10+"}

// SafetyInfo carries the child-safety details shown on a product page.
type SafetyInfo struct {
	AgeRecommendation string   `json:"ageRecommendation"`
	Certifications    []string `json:"certifications"`
	Warnings          []string `json:"warnings"`
}

// Product represents a product in the catalog. Products are read-only to
// the shopping engine; it only ever holds copies.
type Product struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	AgeGroups   []string   `json:"ageGroups"`
	Tags        []string   `json:"tags"`
	Images      []string   `json:"images"`
	Stock       int        `json:"stock"`
	SafetyInfo  SafetyInfo `json:"safetyInfo"`
}

// FilterSpec is the combined predicate used to narrow the catalog. The
// zero value of a field disables that predicate; see Filter for semantics.
type FilterSpec struct {
	Category    string   `json:"category"`
	AgeGroups   []string `json:"ageGroups"`
	PriceMin    float64  `json:"priceMin"`
	PriceMax    float64  `json:"priceMax"`
	SearchQuery string   `json:"searchQuery"`
}

// DefaultFilterSpec returns the storefront's initial filter selection.
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{Category: CategoryAll, PriceMin: 0, PriceMax: 200}
}

// NotFoundError signals a catalog lookup with no matching product.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ID)
}

// ProductListResponse wraps a list of products for the read API.
type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
