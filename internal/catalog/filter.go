package catalog

import "strings"

// Filter returns the subsequence of products matching every active
// predicate in spec, preserving input order. Predicates compose as a
// conjunction; within the age-group predicate a single shared tag
// suffices. An empty result is a valid outcome, not an error.
func Filter(products []Product, spec FilterSpec) []Product {
	matched := []Product{}
	for _, p := range products {
		if matchesSpec(p, spec) {
			matched = append(matched, p)
		}
	}
	return matched
}

func matchesSpec(p Product, spec FilterSpec) bool {
	if spec.Category != "" && !strings.EqualFold(spec.Category, CategoryAll) {
		if !strings.EqualFold(p.Category, spec.Category) {
			return false
		}
	}

	if len(spec.AgeGroups) > 0 && !sharesAgeGroup(p.AgeGroups, spec.AgeGroups) {
		return false
	}

	// A zero PriceMax means no range was chosen.
	if spec.PriceMax > 0 && (p.Price < spec.PriceMin || p.Price > spec.PriceMax) {
		return false
	}

	if spec.SearchQuery != "" && !matchesQuery(p, spec.SearchQuery) {
		return false
	}

	return true
}

func sharesAgeGroup(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// matchesQuery reports whether the lowercased query is a substring of the
// product's name, description, or any tag.
func matchesQuery(p Product, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// searchMatches is the looser predicate used by the standalone search
// endpoint: in addition to name/description/tags it matches the category
// name itself.
func searchMatches(p Product, query string) bool {
	if matchesQuery(p, query) {
		return true
	}
	return strings.Contains(strings.ToLower(p.Category), strings.ToLower(query))
}

// featuredLimit caps the featured shelf on the home surface.
const featuredLimit = 8

// Featured returns up to featuredLimit products tagged "featured",
// preserving catalog order.
func Featured(products []Product) []Product {
	featured := []Product{}
	for _, p := range products {
		for _, tag := range p.Tags {
			if tag == "featured" {
				featured = append(featured, p)
				break
			}
		}
		if len(featured) == featuredLimit {
			break
		}
	}
	return featured
}
