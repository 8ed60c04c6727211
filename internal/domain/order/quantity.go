package order

import (
	"encoding/json"
	"strconv"
)

// Quantity is a cart line quantity with deliberately lenient decoding:
// numbers are truncated to integers, numeric strings are parsed, and
// anything non-numeric (or negative) decodes to 0. A single malformed line
// therefore never aborts an otherwise valid order; it just contributes
// nothing to the subtotal.
type Quantity int

// UnmarshalJSON implements the lenient coercion. It never returns an error
// for scalar values; only structurally invalid JSON fails upstream.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = clampQuantity(int(n))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		*q = clampQuantity(int(f))
		return nil
	}

	// null, objects, arrays, booleans: all coerce to 0.
	return nil
}

func clampQuantity(n int) Quantity {
	if n < 0 {
		return 0
	}
	return Quantity(n)
}

// CartLine is a single untrusted client-submitted cart entry. The product
// reference may arrive under either of two synonym fields ("product" or
// "_id"); display fields are advisory and any client-submitted price is
// ignored entirely.
type CartLine struct {
	Product  string   `json:"product"`
	LegacyID string   `json:"_id"`
	Name     string   `json:"name"`
	Image    string   `json:"image"`
	Quantity Quantity `json:"qty"`
}

// ProductRef resolves the union of the two synonym reference fields.
// It returns an empty string when neither is present.
func (l CartLine) ProductRef() string {
	if l.Product != "" {
		return l.Product
	}
	return l.LegacyID
}
