package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Deps struct {
	Users     UserProvider
	Addresses AddressResolver
	Orders    OrderSubmitter
	Catalog   ProductCatalog // optional
	Events    EventPublisher // optional
	Logger    *slog.Logger
}

// Workflow owns one checkout session and runs the collaborator calls its
// transitions require.
type Workflow struct {
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	session Session
}

// Start opens a session over the current cart contents.
func Start(ctx context.Context, deps Deps, c Cart) (*Workflow, error) {
	if deps.Addresses == nil || deps.Orders == nil {
		return nil, errors.New("checkout requires address and order collaborators")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var user *domain.User
	if deps.Users != nil {
		u, err := deps.Users.CurrentUser(ctx)
		if err != nil {
			return nil, &CollaboratorError{Op: "load user", Err: err}
		}
		user = u
	}
	if user == nil || user.ID == "" {
		return nil, ErrNotAuthenticated
	}

	snapshot := c.Snapshot()
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	session := NewSession(uuid.NewString(), uuid.NewString(), *user, snapshot)
	logger.Info("checkout started",
		"session_id", session.ID,
		"user_id", session.UserID,
		"lines", len(snapshot.Lines),
		"total", snapshot.Totals.Total)

	return &Workflow{deps: deps, logger: logger, session: session}, nil
}

// Session returns a copy of the current state.
func (w *Workflow) Session() Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Clone()
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Step
}

func (w *Workflow) UpdateCustomer(c domain.Customer) (Session, error) {
	return w.do(CustomerEdited{Customer: c})
}

// Next validates the customer step and loads the saved addresses. A failed
// listing still enters the address step, in new-address mode with the error shown.
func (w *Workflow) Next(ctx context.Context) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.apply(NextRequested{}); err != nil {
		return w.session.Clone(), err
	}

	addresses, err := w.deps.Addresses.ListAddresses(ctx, w.session.UserID)
	if err != nil {
		cerr := &CollaboratorError{Op: "list addresses", Err: err}
		w.logger.Warn("saved addresses unavailable",
			"session_id", w.session.ID,
			"user_id", w.session.UserID,
			"error", err)
		_ = w.apply(AddressesUnavailable{Message: cerr.Message()})
		return w.session.Clone(), nil
	}

	if err := w.apply(AddressesLoaded{Addresses: addresses}); err != nil {
		return w.session.Clone(), err
	}
	return w.session.Clone(), nil
}

func (w *Workflow) Back() (Session, error) {
	return w.do(BackRequested{})
}

func (w *Workflow) SelectSavedAddress(addressID string) (Session, error) {
	return w.do(SavedAddressSelected{AddressID: addressID})
}

// UseNewAddress switches to new-address mode, replacing the draft when one is given.
func (w *Workflow) UseNewAddress(draft *domain.AddressDraft) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.apply(NewAddressChosen{}); err != nil {
		return w.session.Clone(), err
	}
	if draft != nil {
		if err := w.apply(DraftEdited{Draft: *draft}); err != nil {
			return w.session.Clone(), err
		}
	}
	return w.session.Clone(), nil
}

// Pay validates the address step and runs the submission sequence once. The
// session sits in StepSubmitting until the outcome is known, so a second call
// in the meantime fails with ErrSubmissionInFlight. Caller cancellation does
// not interrupt a submission that has started.
func (w *Workflow) Pay(ctx context.Context, c Cart) (Session, error) {
	w.mu.Lock()
	if err := w.apply(PayRequested{}); err != nil {
		s := w.session.Clone()
		w.mu.Unlock()
		return s, err
	}
	s := w.session.Clone()
	w.mu.Unlock()

	err := w.submit(context.WithoutCancel(ctx), s, c)
	return w.Session(), err
}

func (w *Workflow) submit(ctx context.Context, s Session, c Cart) error {
	log := w.logger.With("session_id", s.ID, "user_id", s.UserID)

	addressID := s.AddressMode.AddressID
	if s.AddressMode.Kind == AddressModeNew {
		addr, err := w.deps.Addresses.CreateAddress(ctx, s.Draft, s.UserID)
		if err == nil && (addr == nil || addr.ID == "") {
			err = errors.New("backend returned no address id")
		}
		if err != nil {
			return w.fail(log, &CollaboratorError{Op: "create address", Err: err})
		}
		w.dispatch(AddressCreated{Address: *addr})
		addressID = addr.ID
		log.Info("address created", "address_id", addressID)
	}

	if err := w.checkStock(ctx, s.Snapshot, c); err != nil {
		return w.fail(log, err)
	}

	intent := buildIntent(s, addressID)
	confirmation, err := w.deps.Orders.Submit(ctx, intent)
	if err == nil && confirmation == nil {
		err = errors.New("backend returned no order confirmation")
	}
	if err != nil {
		return w.fail(log, &CollaboratorError{Op: "submit order", Err: err})
	}

	// The order stands even if the cart cannot be emptied.
	if err := c.Clear(ctx); err != nil {
		log.Error("order accepted but cart could not be cleared",
			"order_id", confirmation.OrderID,
			"error", err)
	}
	w.dispatch(SubmissionSucceeded{Confirmation: *confirmation})
	log.Info("checkout completed",
		"order_id", confirmation.OrderID,
		"address_id", addressID,
		"total", intent.Totals.Total)

	w.publish(ctx, log, intent, *confirmation, s.ID)
	return nil
}

// checkStock re-validates every snapshot line against the stock the cart knows,
// refreshed from the catalog first when one is configured.
func (w *Workflow) checkStock(ctx context.Context, snapshot domain.CartSnapshot, c Cart) error {
	var problems []StockProblem
	blocked := make(map[string]bool)
	live := make(map[string]int)

	if w.deps.Catalog != nil {
		for _, line := range snapshot.Lines {
			p, err := w.deps.Catalog.GetProduct(ctx, line.ProductID)
			var reason string
			switch {
			case err != nil:
				w.logger.Warn("failed to verify product", "product_id", line.ProductID, "error", err)
				reason = "could not verify product"
			case !p.Active:
				reason = "product is no longer available"
			}
			if reason != "" {
				blocked[line.ProductID] = true
				problems = append(problems, StockProblem{
					ProductID: line.ProductID,
					Name:      line.Name,
					Requested: line.Quantity,
					Reason:    reason,
				})
				continue
			}
			live[line.ProductID] = p.Stock
		}
		if len(live) > 0 {
			if _, err := c.RefreshStock(ctx, live); err != nil {
				w.logger.Warn("failed to refresh cart stock", "error", err)
			}
		}
	}

	for _, line := range snapshot.Lines {
		if blocked[line.ProductID] {
			continue
		}
		stock, ok := live[line.ProductID]
		if !ok {
			stock, ok = c.StockOf(line.ProductID)
		}
		if !ok {
			stock = line.StockSnapshot
		}

		var reason string
		switch {
		case stock <= 0:
			reason = "out of stock"
		case line.Quantity > stock:
			reason = fmt.Sprintf("only %d left", stock)
		default:
			continue
		}
		problems = append(problems, StockProblem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Requested: line.Quantity,
			Available: max(stock, 0),
			Reason:    reason,
		})
	}

	if len(problems) > 0 {
		return &StockError{Problems: problems}
	}
	return nil
}

func (w *Workflow) publish(ctx context.Context, log *slog.Logger, intent domain.OrderIntent, confirmation domain.OrderConfirmation, sessionID string) {
	if w.deps.Events == nil {
		return
	}
	completedAt := confirmation.SubmittedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	event := domain.CheckoutCompleted{
		SessionID:   sessionID,
		UserID:      intent.UserID,
		OrderID:     confirmation.OrderID,
		AddressID:   intent.AddressID,
		Lines:       intent.Lines,
		Totals:      intent.Totals,
		CompletedAt: completedAt,
	}
	if err := w.deps.Events.PublishCheckoutCompleted(ctx, event); err != nil {
		log.Error("failed to publish checkout event", "order_id", confirmation.OrderID, "error", err)
	}
}

func (w *Workflow) fail(log *slog.Logger, err error) error {
	message := err.Error()
	var m interface{ Message() string }
	if errors.As(err, &m) {
		message = m.Message()
	}
	log.Warn("checkout submission failed", "error", err)
	w.dispatch(SubmissionFailed{Message: message})
	return err
}

func (w *Workflow) do(ev Event) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.apply(ev)
	return w.session.Clone(), err
}

func (w *Workflow) dispatch(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.apply(ev); err != nil {
		w.logger.Error("checkout transition rejected", "event", ev.eventName(), "error", err)
	}
}

// apply must be called with mu held.
func (w *Workflow) apply(ev Event) error {
	next, err := Apply(w.session, ev)
	w.session = next
	return err
}

func buildIntent(s Session, addressID string) domain.OrderIntent {
	lines := make([]domain.OrderLine, 0, len(s.Snapshot.Lines))
	for _, l := range s.Snapshot.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal(),
		})
	}
	return domain.OrderIntent{
		IdempotencyKey: s.IdempotencyKey,
		UserID:         s.UserID,
		AddressID:      addressID,
		Customer:       s.Customer,
		Lines:          lines,
		Totals:         s.Snapshot.Totals,
	}
}
