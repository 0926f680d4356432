// Package query derives filtered views and statistics from a catalog snapshot.
// Every function is pure and preserves the input order.
package query

import (
	"strings"

	"github.com/ikkim/marketplace-backend/internal/app/model"
)

// AllCategories is the category value that disables category filtering.
const AllCategories = "All"

// Filter returns the products whose title or description contains term
// (case-insensitive) and whose category equals category. An empty term or a
// category of "" or "All" does not restrict the result.
func Filter(products []model.Product, term, category string) []model.Product {
	needle := strings.ToLower(term)
	anyCategory := category == "" || category == AllCategories

	result := make([]model.Product, 0, len(products))
	for _, p := range products {
		if needle != "" && !containsFold(p.Title, needle) && !containsFold(p.Description, needle) {
			continue
		}
		if !anyCategory && p.Category != category {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Categories returns "All" followed by the distinct categories in order of first appearance.
func Categories(products []model.Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := []string{AllCategories}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories
}

// Search matches term against title, description or id, case-insensitively.
func Search(products []model.Product, term string) []model.Product {
	needle := strings.ToLower(term)
	result := make([]model.Product, 0, len(products))
	for _, p := range products {
		if needle == "" || containsFold(p.Title, needle) || containsFold(p.Description, needle) || containsFold(p.ID, needle) {
			result = append(result, p)
		}
	}
	return result
}

// needle must already be lower-cased
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}
