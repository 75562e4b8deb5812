package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotAuthenticated    = errors.New("user must be authenticated to check out")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition   = errors.New("illegal transition of checkout step")
	ErrSubmissionInFlight  = errors.New("checkout submission already in progress")
	ErrNoSession           = errors.New("no checkout session")
	ErrSessionDone         = errors.New("checkout session already completed")
	ErrAddressNotAvailable = errors.New("address is not in the saved address list")
)

// FieldErrors maps a form field to a displayable message.
type FieldErrors map[string]string

func (f FieldErrors) fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError blocks a step transition until the listed fields are corrected.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.fields(), ", ")
}

// StockProblem describes one snapshot line that can no longer be ordered as is.
type StockProblem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

type StockError struct {
	Problems []StockProblem
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.ProductID, p.Reason))
	}
	return "stock check failed: " + strings.Join(parts, "; ")
}

// Message is the text shown to the shopper.
func (e *StockError) Message() string {
	names := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		name := p.Name
		if name == "" {
			name = p.ProductID
		}
		names = append(names, name)
	}
	return "some products no longer have enough stock: " + strings.Join(names, ", ")
}

// CollaboratorError wraps a failed backend call made on behalf of the session.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Message prefers the backend's own message when the error carries one.
func (e *CollaboratorError) Message() string {
	var m interface{ Message() string }
	if errors.As(e.Err, &m) {
		if msg := m.Message(); msg != "" {
			return msg
		}
	}
	return e.Op + " failed, please try again"
}
