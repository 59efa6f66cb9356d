// Package cart owns the shopper's active cart: an ordered list of product
// lines with quantities, its persistence, and its derived totals.
package cart

// TaxRate is the flat tax applied to the cart subtotal.
const TaxRate = 0.10

// Line is one product entry with quantity in the shopper's active cart.
type Line struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Quantity int     `json:"qty"`
}

// LineTotal returns price times quantity for this line.
func (l Line) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Totals holds the derived cart amounts. They are computed on demand from the
// lines and never stored.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Sum computes totals for a set of lines.
func Sum(lines []Line) Totals {
	var sub float64
	for _, l := range lines {
		sub += l.LineTotal()
	}
	tax := sub * TaxRate
	return Totals{Subtotal: sub, Tax: tax, Total: sub + tax}
}
