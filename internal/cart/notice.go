package cart

// Notice is a non-fatal adjustment reported back to the caller.
type Notice string

const (
	NoticeNone            Notice = ""
	NoticeQuantityClamped Notice = "quantity_clamped"
)

// Change describes the outcome of a mutation for one product. Quantity is 0 when the
// line is no longer in the cart.
type Change struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Quantity  int    `json:"quantity"`
	Notice    Notice `json:"notice,omitempty"`
}

func (c Change) Clamped() bool {
	return c.Notice == NoticeQuantityClamped
}
