package billparse

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

// Quantity range accepted by Validate, both ends inclusive.
const (
	MinQty = 1
	MaxQty = 10000
)

var (
	ErrInvalidSKU      = errors.New("invalid sku")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

var skuShape = regexp.MustCompile(`(?i)^[A-Z0-9_-]{3,}$`)

// Check reports why an item would be rejected by Validate, or nil.
func Check(item Item) error {
	if !skuShape.MatchString(item.SKU) {
		return fmt.Errorf("%w: %q", ErrInvalidSKU, item.SKU)
	}
	if item.Qty < MinQty || item.Qty > MaxQty {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, item.Qty)
	}
	return nil
}

// Rejection is an item that failed Check and the reason it failed.
type Rejection struct {
	Item   Item   `json:"item"`
	Reason string `json:"reason"`
}

// Screen splits items into those that pass Check and those that do not,
// keeping the original order of both. Each rejection is logged.
func Screen(items []Item) ([]Item, []Rejection) {
	valid := make([]Item, 0, len(items))
	rejected := []Rejection{}
	for _, item := range items {
		if err := Check(item); err != nil {
			slog.Warn("Rejected bill item", "sku", item.SKU, "qty", item.Qty, "reason", err)
			rejected = append(rejected, Rejection{Item: item, Reason: err.Error()})
			continue
		}
		valid = append(valid, item)
	}
	return valid, rejected
}

// Validate returns the items that pass Check, in their original order.
// Rejected items are logged and dropped; nothing is repaired.
func Validate(items []Item) []Item {
	valid, _ := Screen(items)
	return valid
}
