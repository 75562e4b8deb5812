package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
	"github.com/shopspring/decimal"
)

const DefaultKey = "cart"

var DefaultTaxRate = decimal.RequireFromString("0.19")

// Manager owns the client-side cart for one storage scope. Every mutation is written
// through to the store before it returns; a failed write leaves the cart unchanged.
// A Manager is not safe for concurrent use.
type Manager struct {
	store   store.Store
	key     string
	taxRate decimal.Decimal
	logger  *slog.Logger
	lines   []domain.CartLine
}

type Option func(*Manager)

func WithKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

func WithTaxRate(rate decimal.Decimal) Option {
	return func(m *Manager) { m.taxRate = rate }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Load builds a Manager and rehydrates it from the store. A missing blob yields an
// empty cart; a corrupt blob is purged and also yields an empty cart. Only a store
// that cannot be reached is reported as an error.
func Load(ctx context.Context, st store.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:   st,
		key:     DefaultKey,
		taxRate: DefaultTaxRate,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	data, err := st.Get(ctx, m.key)
	if errors.Is(err, store.ErrNotFound) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	lines, err := decodeLines(data)
	if err != nil {
		m.logger.Warn("discarding corrupt cart blob", "key", m.key, "error", err)
		if errRemove := st.Remove(ctx, m.key); errRemove != nil {
			m.logger.Error("failed to purge corrupt cart blob", "key", m.key, "error", errRemove)
		}
		return m, nil
	}

	m.lines = lines
	return m, nil
}

func decodeLines(data []byte) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, errors.New("line without product id")
		}
		if _, dup := seen[l.ProductID]; dup {
			return nil, fmt.Errorf("duplicate line for product %s", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}

		if l.UnitPrice < 0 || l.StockSnapshot < 0 {
			return nil, fmt.Errorf("negative price or stock for product %s", l.ProductID)
		}
		if l.Quantity <= 0 || l.Quantity > maxQuantity(l.StockSnapshot) {
			return nil, fmt.Errorf("quantity %d out of range for product %s", l.Quantity, l.ProductID)
		}
	}
	return lines, nil
}

// maxQuantity is the largest quantity a line may hold for a given stock snapshot.
// Lines whose stock dropped to zero after being added keep at most one unit.
func maxQuantity(stock int) int {
	return max(stock, 1)
}

func (m *Manager) persist(ctx context.Context, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := m.store.Set(ctx, m.key, data); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	m.lines = lines
	return nil
}

func (m *Manager) index(productID string) int {
	for i, l := range m.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) cloneLines() []domain.CartLine {
	out := make([]domain.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

// AddItem puts quantity units of product into the cart, bounded by the product's stock.
func (m *Manager) AddItem(ctx context.Context, product domain.Product, quantity int) (Change, error) {
	if product.ID == "" {
		return Change{}, ErrInvalidProduct
	}
	if product.Price < 0 {
		return Change{}, fmt.Errorf("%w: %s", ErrInvalidPrice, product.ID)
	}
	if quantity <= 0 {
		return Change{}, ErrInvalidQuantity
	}
	if product.Stock <= 0 {
		m.logger.Info("rejected add of out of stock product", "product_id", product.ID)
		return Change{}, fmt.Errorf("%w: %s", ErrOutOfStock, product.ID)
	}

	lines := m.cloneLines()
	change := Change{ProductID: product.ID, Requested: quantity}

	if i := m.index(product.ID); i >= 0 {
		line := lines[i]
		change.Requested = math.MaxInt
		if quantity <= math.MaxInt-line.Quantity {
			change.Requested = line.Quantity + quantity
		}
		// compare against the remaining room; the sum may overflow
		if quantity > product.Stock-line.Quantity {
			line.Quantity = product.Stock
			change.Notice = NoticeQuantityClamped
		} else {
			line.Quantity += quantity
		}
		line.StockSnapshot = product.Stock
		lines[i] = line
		change.Quantity = line.Quantity
	} else {
		line := domain.CartLine{
			ProductID:     product.ID,
			Name:          product.Name,
			Description:   product.Description,
			ImageURL:      product.ImageURL,
			UnitPrice:     product.Price,
			Quantity:      min(quantity, product.Stock),
			StockSnapshot: product.Stock,
		}
		lines = append(lines, line)
		change.Quantity = line.Quantity
		if quantity > product.Stock {
			change.Notice = NoticeQuantityClamped
		}
	}

	if err := m.persist(ctx, lines); err != nil {
		return Change{}, err
	}
	if change.Clamped() {
		m.logger.Info("quantity clamped to stock",
			"product_id", product.ID, "requested", change.Requested, "allowed", change.Quantity)
	}
	return change, nil
}

// RemoveItem drops the line for productID. Removing an absent product is not an error.
func (m *Manager) RemoveItem(ctx context.Context, productID string) error {
	lines := make([]domain.CartLine, 0, len(m.lines))
	for _, l := range m.lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	return m.persist(ctx, lines)
}

// SetQuantity sets the quantity of an existing line. Zero or less removes the line.
func (m *Manager) SetQuantity(ctx context.Context, productID string, quantity int) (Change, error) {
	change := Change{ProductID: productID, Requested: quantity}
	if quantity <= 0 {
		if err := m.RemoveItem(ctx, productID); err != nil {
			return Change{}, err
		}
		return change, nil
	}

	i := m.index(productID)
	if i < 0 {
		return Change{}, fmt.Errorf("%w: %s", ErrLineNotFound, productID)
	}

	lines := m.cloneLines()
	limit := maxQuantity(lines[i].StockSnapshot)
	if quantity > limit {
		lines[i].Quantity = limit
		change.Notice = NoticeQuantityClamped
	} else {
		lines[i].Quantity = quantity
	}
	change.Quantity = lines[i].Quantity

	if err := m.persist(ctx, lines); err != nil {
		return Change{}, err
	}
	if change.Clamped() {
		m.logger.Info("quantity clamped to stock",
			"product_id", productID, "requested", quantity, "allowed", change.Quantity)
	}
	return change, nil
}

// RefreshStock replaces stock snapshots with live values. Lines holding more than the
// new stock allows are clamped and reported.
func (m *Manager) RefreshStock(ctx context.Context, stock map[string]int) ([]Change, error) {
	lines := m.cloneLines()
	var (
		changes []Change
		dirty   bool
	)
	for i, l := range lines {
		s, ok := stock[l.ProductID]
		if !ok || s < 0 || s == l.StockSnapshot {
			continue
		}
		dirty = true
		lines[i].StockSnapshot = s
		if limit := maxQuantity(s); l.Quantity > limit {
			lines[i].Quantity = limit
			changes = append(changes, Change{
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Quantity:  limit,
				Notice:    NoticeQuantityClamped,
			})
		}
	}
	if !dirty {
		return nil, nil
	}
	if err := m.persist(ctx, lines); err != nil {
		return nil, err
	}
	return changes, nil
}

func (m *Manager) Clear(ctx context.Context) error {
	return m.persist(ctx, []domain.CartLine{})
}

// Lines returns the cart lines in insertion order.
func (m *Manager) Lines() []domain.CartLine {
	return m.cloneLines()
}

func (m *Manager) Line(productID string) (domain.CartLine, bool) {
	if i := m.index(productID); i >= 0 {
		return m.lines[i], true
	}
	return domain.CartLine{}, false
}

// StockOf returns the last known stock for a product in the cart.
func (m *Manager) StockOf(productID string) (int, bool) {
	l, ok := m.Line(productID)
	return l.StockSnapshot, ok
}

func (m *Manager) IsEmpty() bool {
	return len(m.lines) == 0
}

func (m *Manager) Totals() domain.Totals {
	return ComputeTotals(m.lines, m.taxRate)
}

func (m *Manager) Snapshot() domain.CartSnapshot {
	return domain.CartSnapshot{
		Lines:  m.cloneLines(),
		Totals: m.Totals(),
	}
}

// ComputeTotals derives quantity, subtotal, tax and total. Tax is rounded to whole units.
func ComputeTotals(lines []domain.CartLine, taxRate decimal.Decimal) domain.Totals {
	var t domain.Totals
	for _, l := range lines {
		t.TotalQuantity += l.Quantity
		t.Subtotal += l.LineTotal()
	}
	t.Tax = decimal.NewFromInt(t.Subtotal).Mul(taxRate).Round(0).IntPart()
	t.Total = t.Subtotal + t.Tax
	return t
}
