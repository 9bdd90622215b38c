package billparse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// maxLineQty bounds quantities read from a single line. Anything at or above
// it is more likely a price, a total or a code than a quantity.
const maxLineQty = 1000

// lineShape is one layout of an item line. The ints are capture group
// indexes; zero means the shape does not capture that field.
type lineShape struct {
	pattern *regexp.Regexp
	sku     int
	qty     int
	name    int
	price   int
}

// lineShapes are tried in order and the first acceptable match wins.
var lineShapes = []lineShape{
	// SKU  description  qty  price
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,})\s+(.+?)\s+(\d+)\s+[$€£]?([\d.,]+)`), sku: 1, name: 2, qty: 3, price: 4},
	// qty  SKU  description  price
	{pattern: regexp.MustCompile(`(?i)(\d+)\s+([A-Z0-9_-]{3,})\s+(.+?)\s+[$€£]?([\d.,]+)`), qty: 1, sku: 2, name: 3, price: 4},
	// SKU  qty
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,})\s+(\d+)`), sku: 1, qty: 2},
	// qty  SKU
	{pattern: regexp.MustCompile(`(?i)(\d+)\s+([A-Z0-9_-]{3,})`), qty: 1, sku: 2},
	// SKU|description|qty|price, tabs or pipes
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,})[\t|]+(.+?)[\t|]+(\d+)[\t|]+[$€£]?([\d.,]+)`), sku: 1, name: 2, qty: 3, price: 4},
	// SKU  description  qty  price, two or more spaces apart
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,})\s{2,}(.+?)\s{2,}(\d+)\s{2,}[$€£]?([\d.,]+)`), sku: 1, name: 2, qty: 3, price: 4},
}

// itemFromLine reads one item from a line. A shape is accepted when it
// matches, its SKU looks like a code and its quantity is in (0, maxLineQty).
func itemFromLine(line string) (Item, bool) {
	for _, shape := range lineShapes {
		m := shape.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		sku := m[shape.sku]
		qty, ok := boundedQty(m[shape.qty])
		if !ok || !looksLikeCode(sku) {
			continue
		}

		item := Item{SKU: sku, Qty: qty}
		if shape.name > 0 {
			item.Name = strings.TrimSpace(m[shape.name])
		}
		if shape.price > 0 {
			item.Price = parsePrice(m[shape.price])
		}
		return item, true
	}
	return Item{}, false
}

// looksLikeCode reports whether s could be a product code rather than a
// plain word or number: at least three characters, one letter and one digit.
func looksLikeCode(s string) bool {
	if len(s) < 3 {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// boundedQty parses a captured quantity and applies the single-line bound.
func boundedQty(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n >= maxLineQty {
		return 0, false
	}
	return n, true
}

var (
	notPriceChars = regexp.MustCompile(`[^0-9.]`)
	pricePrefix   = regexp.MustCompile(`^(?:\d+\.?\d*|\.\d+)`)
)

// parsePrice keeps digits and dots, then reads the leading decimal number.
// Thousands separators are dropped, so "1,299.00" reads as 1299.
func parsePrice(raw string) *float64 {
	num := pricePrefix.FindString(notPriceChars.ReplaceAllString(raw, ""))
	if num == "" {
		return nil
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &v
}
