package billparse

import (
	"math"
	"strings"
)

// Item is a product code and quantity read from bill text.
// An empty Name and a nil Price mean the bill did not carry them.
type Item struct {
	SKU   string   `json:"sku"`
	Qty   int      `json:"qty"`
	Name  string   `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// Clean uppercases and trims SKUs, drops items without a SKU or with a
// non-positive quantity, and merges repeated SKUs by summing quantities.
// The first name and price seen for a SKU win. Output keeps the order in
// which each SKU first appeared.
func Clean(raw []Item) []Item {
	cleaned := make([]Item, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, item := range raw {
		sku := strings.ToUpper(strings.TrimSpace(item.SKU))
		if sku == "" || item.Qty <= 0 {
			continue
		}

		if i, ok := index[sku]; ok {
			cleaned[i].Qty += item.Qty
			continue
		}

		index[sku] = len(cleaned)
		cleaned = append(cleaned, Item{
			SKU:   sku,
			Qty:   item.Qty,
			Name:  strings.TrimSpace(item.Name),
			Price: cleanPrice(item.Price),
		})
	}

	return cleaned
}

// cleanPrice copies p, treating zero and NaN as absent.
func cleanPrice(p *float64) *float64 {
	if p == nil || *p == 0 || math.IsNaN(*p) {
		return nil
	}
	v := *p
	return &v
}
