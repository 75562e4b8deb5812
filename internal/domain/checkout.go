package domain

import "time"

// User is the authenticated shopper as reported by the auth backend.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// AddressDraft holds a shipping address that has not been saved yet.
type AddressDraft struct {
	Street        string `json:"street"`
	Unit          string `json:"unit,omitempty"`
	Region        string `json:"region"`
	Commune       string `json:"commune"`
	DeliveryNotes string `json:"delivery_notes,omitempty"`
}

// Address is a saved shipping address owned by a user.
type Address struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	Street        string `json:"street"`
	Unit          string `json:"unit,omitempty"`
	Region        string `json:"region"`
	Commune       string `json:"commune"`
	DeliveryNotes string `json:"delivery_notes,omitempty"`
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// OrderIntent is the finalized bundle submitted to create an order.
type OrderIntent struct {
	IdempotencyKey string      `json:"idempotency_key"`
	UserID         string      `json:"user_id"`
	AddressID      string      `json:"address_id"`
	Customer       Customer    `json:"customer"`
	Lines          []OrderLine `json:"lines"`
	Totals         Totals      `json:"totals"`
}

type OrderConfirmation struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// CheckoutCompleted is announced once an order has been accepted.
type CheckoutCompleted struct {
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	OrderID     string      `json:"order_id"`
	AddressID   string      `json:"address_id"`
	Lines       []OrderLine `json:"lines"`
	Totals      Totals      `json:"totals"`
	CompletedAt time.Time   `json:"completed_at"`
}
