package billparse

import (
	"regexp"
	"strconv"
)

// strategy reads candidate items from the normalised lines of a bill.
type strategy struct {
	name    string
	extract func(lines []string) []Item
}

// strategies run in order of decreasing structural confidence. The first
// one that returns anything decides the result.
var strategies = []strategy{
	{name: "table", extract: tableItems},
	{name: "line", extract: lineItems},
	{name: "key_value", extract: keyValueItems},
	{name: "descriptive", extract: descriptiveItems},
}

var (
	tableHeaders = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:item|sku|code|part).{0,20}(?:description|name).{0,20}(?:qty|quantity|amount)`),
		regexp.MustCompile(`(?i)(?:product|item).{0,30}(?:qty|quantity)`),
		regexp.MustCompile(`(?i)(?:sku|code).{0,30}(?:qty|quantity)`),
	}
	tableFooter = regexp.MustCompile(`(?i)total|subtotal|tax|discount|payment|terms|thank you`)

	metadataLine = regexp.MustCompile(`(?i)invoice|receipt|bill|total|subtotal|tax|date|customer|vendor|address|phone|email|thank you|terms|conditions`)

	keyValueLine = regexp.MustCompile(`(?i)(sku|item|product|code):\s*([A-Z0-9_-]+).*?(?:qty|quantity|amount):\s*(\d+)`)
)

// tableItems reads the rows under the first column-header line, stopping at
// the totals footer.
func tableItems(lines []string) []Item {
	header := -1
	for i, line := range lines {
		if matchesAny(tableHeaders, line) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil
	}

	var items []Item
	for _, line := range lines[header+1:] {
		if tableFooter.MatchString(line) {
			break
		}
		if item, ok := itemFromLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// lineItems treats every line that is not document metadata as a
// potential item row.
func lineItems(lines []string) []Item {
	var items []Item
	for _, line := range lines {
		if metadataLine.MatchString(line) {
			continue
		}
		if item, ok := itemFromLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// keyValueItems reads "SKU: X ... Qty: N" lines, at most one item per line.
func keyValueItems(lines []string) []Item {
	var items []Item
	for _, line := range lines {
		m := keyValueLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		items = append(items, Item{SKU: m[2], Qty: qty, Name: productName(line)})
	}
	return items
}

type sentenceShape struct {
	pattern *regexp.Regexp
	sku     int
	qty     int
}

var sentenceShapes = []sentenceShape{
	// 5 units of ABC123
	{pattern: regexp.MustCompile(`(?i)(\d+)\s+(?:units?\s+of|pieces?\s+of|qty\s+of)?\s*([A-Z0-9_-]{3,})`), qty: 1, sku: 2},
	// ABC123 x 5
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,})\s*[x×]\s*(\d+)`), sku: 1, qty: 2},
	// ABC123 ... quantity: 5
	{pattern: regexp.MustCompile(`(?i)([A-Z0-9_-]{3,}).*?(?:quantity|qty|amount):\s*(\d+)`), sku: 1, qty: 2},
}

// descriptiveItems reads quantities phrased in prose. Every shape is
// searched globally, so one line may yield several items.
func descriptiveItems(lines []string) []Item {
	var items []Item
	for _, line := range lines {
		for _, shape := range sentenceShapes {
			for _, m := range shape.pattern.FindAllStringSubmatch(line, -1) {
				sku := m[shape.sku]
				if !looksLikeCode(sku) {
					continue
				}
				qty, err := strconv.Atoi(m[shape.qty])
				if err != nil {
					continue
				}
				items = append(items, Item{SKU: sku, Qty: qty, Name: productName(line)})
			}
		}
	}
	return items
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
