package checkout

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// UserProvider returns nil, nil for an anonymous caller.
type UserProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

type AddressResolver interface {
	ListAddresses(ctx context.Context, userID string) ([]domain.Address, error)
	CreateAddress(ctx context.Context, draft domain.AddressDraft, userID string) (*domain.Address, error)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, intent domain.OrderIntent) (*domain.OrderConfirmation, error)
}

// ProductCatalog enables the live availability check before an order is sent.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

type EventPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, event domain.CheckoutCompleted) error
}

// Cart is the part of the cart manager the workflow reads and clears.
type Cart interface {
	Snapshot() domain.CartSnapshot
	StockOf(productID string) (int, bool)
	RefreshStock(ctx context.Context, stock map[string]int) ([]cart.Change, error)
	Clear(ctx context.Context) error
}

var _ Cart = (*cart.Manager)(nil)
