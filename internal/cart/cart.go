// Package cart holds the wire-level domain types exchanged with the
// storefront API. This layer never computes totals or eligibility itself;
// it only carries what the backend returned.
package cart

import "time"

// Item is one cart line. ProductID and Quantity together are what the
// result cache keys on; everything else is display data.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
}

// Coupon is a discount as evaluated by the backend against the current cart.
type Coupon struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Discount    float64 `json:"discount"`
	Reason      string  `json:"reason,omitempty"`
}

// Summary is the backend's priced view of the cart.
type Summary struct {
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// Order is returned by order placement.
type Order struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Total    float64   `json:"total"`
	PlacedAt time.Time `json:"placedAt"`
}
