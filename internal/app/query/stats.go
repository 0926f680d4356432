package query

import (
	"sort"

	"github.com/ikkim/marketplace-backend/internal/app/model"
)

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary is the admin dashboard view of the catalog.
type Summary struct {
	TotalProducts   int             `json:"totalProducts"`
	InStockProducts int             `json:"inStockProducts"`
	TotalClicks     int64           `json:"totalClicks"`
	Categories      []CategoryCount `json:"categories"`
	TopProducts     []model.Product `json:"topProducts"`
}

// Summarize counts products per category and picks the topN most clicked
// products. Ties keep catalog order.
func Summarize(products []model.Product, topN int) Summary {
	summary := Summary{
		TotalProducts: len(products),
		Categories:    []CategoryCount{},
		TopProducts:   []model.Product{},
	}

	index := make(map[string]int)
	for _, p := range products {
		if p.InStock {
			summary.InStockProducts++
		}
		summary.TotalClicks += p.Clicks

		i, ok := index[p.Category]
		if !ok {
			i = len(summary.Categories)
			index[p.Category] = i
			summary.Categories = append(summary.Categories, CategoryCount{Category: p.Category})
		}
		summary.Categories[i].Count++
	}

	if topN <= 0 {
		return summary
	}

	ranked := make([]model.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Clicks > ranked[j].Clicks
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	summary.TopProducts = ranked
	return summary
}
