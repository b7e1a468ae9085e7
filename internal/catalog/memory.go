package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

//go:embed products.json
var seedData []byte

// MemorySource serves the embedded seed catalog. An optional per-call
// latency models the remote fetch the storefront sees in production.
type MemorySource struct {
	products []Product
	latency  time.Duration
}

// NewMemorySource loads the embedded seed catalog.
func NewMemorySource() (*MemorySource, error) {
	var products []Product
	if err := json.Unmarshal(seedData, &products); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	return &MemorySource{products: products}, nil
}

// WithLatency makes every call sleep for d before returning, unless the
// context expires first.
func (s *MemorySource) WithLatency(d time.Duration) *MemorySource {
	s.latency = d
	return s
}

func (s *MemorySource) wait(ctx context.Context) error {
	if s.latency == 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshot copies the catalog so callers can never mutate the seed.
func (s *MemorySource) snapshot() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// List returns the products matching spec, in catalog order.
func (s *MemorySource) List(ctx context.Context, spec FilterSpec) ([]Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return Filter(s.snapshot(), spec), nil
}

// Get returns the product with the given id or a *NotFoundError.
func (s *MemorySource) Get(ctx context.Context, id int) (*Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	for _, p := range s.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, &NotFoundError{ID: id}
}

// Featured returns the featured shelf, capped at eight products.
func (s *MemorySource) Featured(ctx context.Context) ([]Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return Featured(s.snapshot()), nil
}

// ByCategory returns every product in a category ("all" = everything).
func (s *MemorySource) ByCategory(ctx context.Context, category string) ([]Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	spec := FilterSpec{Category: category}
	return Filter(s.snapshot(), spec), nil
}

// CountProducts returns the total count of products, optionally narrowed
// to a category ("all" or empty counts everything).
func (s *MemorySource) CountProducts(ctx context.Context, category string) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}

	count := 0
	for _, p := range s.products {
		if category == "" || strings.EqualFold(category, CategoryAll) || strings.EqualFold(p.Category, category) {
			count++
		}
	}
	return count, nil
}

// Search matches free text against name, description, tags and category.
func (s *MemorySource) Search(ctx context.Context, query string) ([]Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	matched := []Product{}
	for _, p := range s.products {
		if searchMatches(p, query) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
