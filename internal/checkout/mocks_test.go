package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var errBackendDown = errors.New("backend unavailable")

// callLog records collaborator calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type mockUsers struct {
	user *domain.User
	err  error
}

func (m *mockUsers) CurrentUser(_ context.Context) (*domain.User, error) {
	return m.user, m.err
}

type mockAddresses struct {
	log       *callLog
	saved     []domain.Address
	listErr   error
	createErr error
	nextID    int
	created   []domain.AddressDraft
}

func (m *mockAddresses) ListAddresses(_ context.Context, userID string) ([]domain.Address, error) {
	m.log.add("list_addresses")
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Address
	for _, a := range m.saved {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAddresses) CreateAddress(_ context.Context, draft domain.AddressDraft, userID string) (*domain.Address, error) {
	m.log.add("create_address")
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	m.created = append(m.created, draft)
	addr := domain.Address{
		ID:            fmt.Sprintf("addr-%d", m.nextID),
		UserID:        userID,
		Street:        draft.Street,
		Unit:          draft.Unit,
		Region:        draft.Region,
		Commune:       draft.Commune,
		DeliveryNotes: draft.DeliveryNotes,
	}
	m.saved = append(m.saved, addr)
	return &addr, nil
}

type mockOrders struct {
	log      *callLog
	failures int // number of calls to fail before succeeding
	err      error
	intents  []domain.OrderIntent
	block    chan struct{}
}

func (m *mockOrders) Submit(ctx context.Context, intent domain.OrderIntent) (*domain.OrderConfirmation, error) {
	m.log.add("submit_order")
	if m.block != nil {
		<-m.block
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.intents = append(m.intents, intent)
	if m.failures > 0 {
		m.failures--
		return nil, m.err
	}
	return &domain.OrderConfirmation{
		OrderID:     fmt.Sprintf("order-%d", len(m.intents)),
		Status:      "pendiente",
		SubmittedAt: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}, nil
}

type mockCatalog struct {
	products map[string]domain.Product
	err      error
}

func (m *mockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

type mockPublisher struct {
	events []domain.CheckoutCompleted
	err    error
}

func (m *mockPublisher) PublishCheckoutCompleted(_ context.Context, event domain.CheckoutCompleted) error {
	m.events = append(m.events, event)
	return m.err
}

// backendMessageError mimics a client error carrying the backend's message.
type backendMessageError struct{ msg string }

func (e *backendMessageError) Error() string   { return "backend: " + e.msg }
func (e *backendMessageError) Message() string { return e.msg }
