package domain

// Product is the catalog view of an item at the moment it is offered to the cart.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Active      bool   `json:"active"`
}

// CartLine is one product's participation in the cart. UnitPrice and the display
// fields are snapshots taken when the line was added.
type CartLine struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	UnitPrice     int64  `json:"unit_price"`
	Quantity      int    `json:"quantity"`
	StockSnapshot int    `json:"stock_snapshot"`
}

func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Totals are derived from the cart lines and never stored.
type Totals struct {
	TotalQuantity int   `json:"total_quantity"`
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	Total         int64 `json:"total"`
}

// CartSnapshot represents the cart state captured when checkout starts
type CartSnapshot struct {
	Lines  []CartLine `json:"lines"`
	Totals Totals     `json:"totals"`
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}
