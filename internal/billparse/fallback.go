package billparse

import "regexp"

var (
	// Letters then digits or digits then letters, then the next number.
	fallbackCode = regexp.MustCompile(`([A-Z]{2,}[0-9]{2,}|[0-9]{2,}[A-Z]{2,})[^\d]*(\d+)`)
	// Optional label, a 4+ character token, then the next number.
	fallbackLabeled = regexp.MustCompile(`(?i)(PROD|ITEM|SKU|CODE)?[_-]?([A-Z0-9]{4,})[^\d]*(\d+)`)
)

// fallbackItems searches the whole text for anything shaped like a code
// followed by a number. Labelled matches that overlap a code match are
// skipped so the same span is not counted twice.
func fallbackItems(text string) []Item {
	var (
		items   []Item
		claimed [][2]int
	)

	for _, m := range fallbackCode.FindAllStringSubmatchIndex(text, -1) {
		claimed = append(claimed, [2]int{m[0], m[1]})
		qty, ok := boundedQty(text[m[4]:m[5]])
		if !ok {
			continue
		}
		items = append(items, Item{SKU: text[m[2]:m[3]], Qty: qty})
	}

	for _, m := range fallbackLabeled.FindAllStringSubmatchIndex(text, -1) {
		if overlapsAny(claimed, m[0], m[1]) {
			continue
		}
		qty, ok := boundedQty(text[m[6]:m[7]])
		if !ok {
			continue
		}
		sku := text[m[4]:m[5]]
		if m[2] >= 0 {
			sku = text[m[2]:m[5]]
		}
		items = append(items, Item{SKU: sku, Qty: qty})
	}

	return items
}

func overlapsAny(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
