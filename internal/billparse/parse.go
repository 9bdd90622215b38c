// Package billparse turns the free text of a bill (OCR output or a PDF text
// layer) into a deduplicated list of product codes and quantities.
package billparse

import "log/slog"

// StrategyFallback names the whole-text matcher used when no line-based
// strategy found anything.
const StrategyFallback = "fallback"

// Result is the outcome of Extract. Strategy is empty when nothing matched.
type Result struct {
	Items    []Item `json:"items"`
	Strategy string `json:"strategy,omitempty"`
}

// Parse extracts cleaned items from bill text.
func Parse(text string) []Item {
	return Extract(text).Items
}

// Extract runs the strategies in order and cleans the output of the first
// one that finds anything. The fallback matcher runs on the raw text only
// when every strategy came back empty.
func Extract(text string) Result {
	lines := Lines(text)

	for _, s := range strategies {
		raw := s.extract(lines)
		if len(raw) == 0 {
			continue
		}
		slog.Debug("Bill strategy matched", "strategy", s.name, "candidates", len(raw))
		return Result{Items: Clean(raw), Strategy: s.name}
	}

	raw := fallbackItems(text)
	if len(raw) == 0 {
		slog.Debug("No items found in bill text", "lines", len(lines))
		return Result{Items: []Item{}}
	}
	slog.Debug("Bill fallback matched", "candidates", len(raw))
	return Result{Items: Clean(raw), Strategy: StrategyFallback}
}
