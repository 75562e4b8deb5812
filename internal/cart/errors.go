package cart

import "errors"

var (
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidProduct  = errors.New("product id is required")
	ErrLineNotFound    = errors.New("product is not in the cart")
	ErrInvalidPrice    = errors.New("product price must not be negative")
)
