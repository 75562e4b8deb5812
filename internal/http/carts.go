package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/store"
)

// Carts loads per-user cart managers and serializes work on the same cart.
type Carts struct {
	store   store.Store
	taxRate decimal.Decimal
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewCarts(st store.Store, taxRate decimal.Decimal, logger *slog.Logger) *Carts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Carts{
		store:   st,
		taxRate: taxRate,
		logger:  logger,
		locks:   make(map[string]*userLock),
	}
}

func (c *Carts) Load(ctx context.Context, userID string) (*cart.Manager, error) {
	return cart.Load(ctx, c.store,
		cart.WithKey(store.CartKey(userID)),
		cart.WithTaxRate(c.taxRate),
		cart.WithLogger(c.logger.With("user_id", userID)),
	)
}

// Lock blocks until the caller holds the user's cart. The returned func releases it.
func (c *Carts) Lock(userID string) func() {
	c.mu.Lock()
	l, ok := c.locks[userID]
	if !ok {
		l = &userLock{}
		c.locks[userID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, userID)
		}
		c.mu.Unlock()
	}
}
