package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

// Header names recognised in the first row; column order is free.
const (
	colTitle       = "title"
	colDescription = "description"
	colPrice       = "price"
	colCategory    = "category"
	colInStock     = "in_stock"
	colBuyLink     = "buy_link"
	colImages      = "images"
)

var requiredColumns = []string{colTitle, colDescription, colPrice, colCategory}

type importResult struct {
	Products []service.CreateProductInput
	Skipped  []string
}

// readProductsFromXLSX parses the first sheet. Rows that cannot become a
// product are reported in Skipped instead of failing the import.
func readProductsFromXLSX(f *excelize.File) (*importResult, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	columns := make(map[string]int)
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := &importResult{}
	seen := make(map[string]bool) // title|category

	for i, row := range rows[1:] {
		line := i + 2

		title := cell(row, colTitle)
		category := cell(row, colCategory)
		if title == "" && category == "" {
			continue // blank row
		}

		price, err := strconv.ParseFloat(cell(row, colPrice), 64)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: invalid price %q", line, cell(row, colPrice)))
			continue
		}

		key := title + "|" + category
		if seen[key] {
			result.Skipped = append(result.Skipped, fmt.Sprintf("row %d: duplicate of %q", line, title))
			continue
		}
		seen[key] = true

		result.Products = append(result.Products, service.CreateProductInput{
			Title:       title,
			Description: cell(row, colDescription),
			Price:       &price,
			Images:      splitImages(cell(row, colImages)),
			Category:    category,
			InStock:     parseInStock(cell(row, colInStock)),
			BuyLink:     cell(row, colBuyLink),
		})
	}

	return result, nil
}

func splitImages(value string) []string {
	images := []string{}
	for _, part := range strings.Split(value, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			images = append(images, trimmed)
		}
	}
	return images
}

// parseInStock defaults to true for an empty cell.
func parseInStock(value string) bool {
	switch strings.ToLower(value) {
	case "", "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}
