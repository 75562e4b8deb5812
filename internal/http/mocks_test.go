package http

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/clients"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type mockAuth struct {
	users map[string]*domain.User
	err   error
}

func (m *mockAuth) Authenticate(ctx context.Context) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[clients.TokenFromContext(ctx)]
	if !ok {
		return nil, clients.ErrUnauthorized
	}
	return user, nil
}

type mockCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	err      error
}

func (m *mockCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, clients.ErrNotFound)
	}
	return &p, nil
}

func (m *mockCatalog) setStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	p.Stock = stock
	m.products[productID] = p
}

type mockAddresses struct {
	mu      sync.Mutex
	saved   []domain.Address
	created int
}

func (m *mockAddresses) ListAddresses(_ context.Context, userID string) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Address
	for _, a := range m.saved {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAddresses) CreateAddress(_ context.Context, draft domain.AddressDraft, userID string) (*domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	addr := domain.Address{
		ID:      fmt.Sprintf("addr-%d", m.created),
		UserID:  userID,
		Street:  draft.Street,
		Unit:    draft.Unit,
		Region:  draft.Region,
		Commune: draft.Commune,
	}
	m.saved = append(m.saved, addr)
	return &addr, nil
}

type mockOrders struct {
	mu      sync.Mutex
	err     error
	intents []domain.OrderIntent
}

func (m *mockOrders) Submit(_ context.Context, intent domain.OrderIntent) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.intents = append(m.intents, intent)
	return &domain.OrderConfirmation{
		OrderID:     fmt.Sprintf("order-%d", len(m.intents)),
		Status:      "pendiente",
		SubmittedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockOrders) submitted() []domain.OrderIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderIntent(nil), m.intents...)
}

// backendError mimics a client error carrying the backend's own message.
type backendError struct {
	msg string
	err error
}

func (e *backendError) Error() string   { return strings.ToLower(e.msg) }
func (e *backendError) Unwrap() error   { return e.err }
func (e *backendError) Message() string { return e.msg }
