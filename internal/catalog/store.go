package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// PGSource serves the catalog from Postgres. It implements Source with
// the same semantics as MemorySource: category narrowing happens in SQL,
// the remaining predicates run through the shared filter.
type PGSource struct {
	db *sql.DB
}

// NewPGSource creates a Postgres-backed catalog source
func NewPGSource(db *sql.DB) *PGSource {
	return &PGSource{db: db}
}

const productColumns = `
	id, name, description, price, category,
	COALESCE(age_groups, '{}'::text[]) as age_groups,
	COALESCE(tags, '{}'::text[]) as tags,
	COALESCE(images, '{}'::text[]) as images,
	stock, COALESCE(safety_info, '{}'::jsonb) as safety_info
`

func scanProduct(scan func(dest ...interface{}) error) (*Product, error) {
	var p Product
	var ageGroups, tags, images pq.StringArray
	var safetyJSON []byte

	err := scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&ageGroups, &tags, &images, &p.Stock, &safetyJSON,
	)
	if err != nil {
		return nil, err
	}

	p.AgeGroups = []string(ageGroups)
	p.Tags = []string(tags)
	p.Images = []string(images)
	if len(safetyJSON) > 0 {
		if err := json.Unmarshal(safetyJSON, &p.SafetyInfo); err != nil {
			return nil, fmt.Errorf("decode safety info for product %d: %w", p.ID, err)
		}
	}

	return &p, nil
}

func (s *PGSource) queryProducts(ctx context.Context, query string, args ...interface{}) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// List returns the products matching spec, in catalog order.
func (s *PGSource) List(ctx context.Context, spec FilterSpec) ([]Product, error) {
	query := "SELECT" + productColumns + "FROM catalog.products"
	args := []interface{}{}

	if spec.Category != "" && spec.Category != CategoryAll {
		query += " WHERE LOWER(category) = LOWER($1)"
		args = append(args, spec.Category)
	}
	query += " ORDER BY id"

	products, err := s.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// Category is already narrowed; the rest of the spec still applies.
	rest := spec
	rest.Category = CategoryAll
	return Filter(products, rest), nil
}

// Get returns the product with the given id or a *NotFoundError.
func (s *PGSource) Get(ctx context.Context, id int) (*Product, error) {
	query := "SELECT" + productColumns + "FROM catalog.products WHERE id = $1"

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("catalog get: %w", err)
	}

	return p, nil
}

// Featured returns the featured shelf, capped at eight products.
func (s *PGSource) Featured(ctx context.Context) ([]Product, error) {
	query := "SELECT" + productColumns + `FROM catalog.products WHERE 'featured' = ANY(tags) ORDER BY id LIMIT 8`
	return s.queryProducts(ctx, query)
}

// ByCategory returns every product in a category ("all" = everything).
func (s *PGSource) ByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.List(ctx, FilterSpec{Category: category})
}

// Search matches free text against name, description, tags and category.
func (s *PGSource) Search(ctx context.Context, query string) ([]Product, error) {
	all, err := s.queryProducts(ctx, "SELECT"+productColumns+"FROM catalog.products ORDER BY id")
	if err != nil {
		return nil, err
	}

	matched := []Product{}
	for _, p := range all {
		if searchMatches(p, query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// CountProducts returns the total count of products (with optional category filter)
func (s *PGSource) CountProducts(ctx context.Context, category string) (int, error) {
	query := "SELECT COUNT(*) FROM catalog.products"
	args := []interface{}{}

	if category != "" && category != CategoryAll {
		query += " WHERE LOWER(category) = LOWER($1)"
		args = append(args, category)
	}

	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountProducts: %w", err)
	}

	return count, nil
}
