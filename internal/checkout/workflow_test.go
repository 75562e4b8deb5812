package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/store"
)

const santiago = "Región Metropolitana de Santiago"

type fixture struct {
	log       *callLog
	users     *mockUsers
	addresses *mockAddresses
	orders    *mockOrders
	catalog   *mockCatalog
	events    *mockPublisher
	store     *store.MemoryStore
	cart      *cart.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := &callLog{}
	st := store.NewMemoryStore()

	m, err := cart.Load(ctx, st)
	require.NoError(t, err)
	_, err = m.AddItem(ctx, domain.Product{ID: "ring-1", Name: "Anillo de plata", Price: 1000, Stock: 5}, 2)
	require.NoError(t, err)
	_, err = m.AddItem(ctx, domain.Product{ID: "necklace-1", Name: "Collar de cuarzo", Price: 500, Stock: 3}, 3)
	require.NoError(t, err)

	return &fixture{
		log: log,
		users: &mockUsers{user: &domain.User{
			ID:        "42",
			FirstName: "Camila",
			LastName:  "Rojas Soto",
			Email:     "camila@example.cl",
		}},
		addresses: &mockAddresses{log: log},
		orders:    &mockOrders{log: log},
		events:    &mockPublisher{},
		store:     st,
		cart:      m,
	}
}

func (f *fixture) deps() Deps {
	d := Deps{
		Users:     f.users,
		Addresses: f.addresses,
		Orders:    f.orders,
		Events:    f.events,
	}
	if f.catalog != nil {
		d.Catalog = f.catalog
	}
	return d
}

func (f *fixture) start(t *testing.T) *Workflow {
	t.Helper()
	w, err := Start(context.Background(), f.deps(), f.cart)
	require.NoError(t, err)
	return w
}

func (f *fixture) savedAddress(id string) domain.Address {
	addr := domain.Address{ID: id, UserID: "42", Street: "Los Leones 55", Region: santiago, Commune: "Providencia"}
	f.addresses.saved = append(f.addresses.saved, addr)
	return addr
}

func validDraft() domain.AddressDraft {
	return domain.AddressDraft{
		Street:  "Av. Providencia 1234",
		Unit:    "Depto 501",
		Region:  santiago,
		Commune: "Providencia",
	}
}

func TestStart_RequiresAuthenticatedUser(t *testing.T) {
	f := newFixture(t)
	f.users.user = nil

	w, err := Start(context.Background(), f.deps(), f.cart)

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, w)
}

func TestStart_UserLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.users.err = errBackendDown

	_, err := Start(context.Background(), f.deps(), f.cart)

	var cerr *CollaboratorError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestStart_RequiresItemsInCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.Clear(context.Background()))

	_, err := Start(context.Background(), f.deps(), f.cart)

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestStart_PrefillsCustomerAndCapturesSnapshot(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)

	s := w.Session()
	assert.Equal(t, StepCustomerInfo, s.Step)
	assert.Equal(t, domain.Customer{FirstName: "Camila", LastName: "Rojas Soto", Email: "camila@example.cl"}, s.Customer)
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.IdempotencyKey)
	assert.NotEqual(t, s.ID, s.IdempotencyKey)
	require.Len(t, s.Snapshot.Lines, 2)
	assert.Equal(t, domain.Totals{TotalQuantity: 5, Subtotal: 3500, Tax: 665, Total: 4165}, s.Snapshot.Totals)
	assert.Empty(t, f.log.all())
}

func TestStart_SnapshotIsIsolatedFromLiveCart(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)

	require.NoError(t, f.cart.RemoveItem(context.Background(), "ring-1"))

	assert.Len(t, w.Session().Snapshot.Lines, 2)
}

func TestNext_InvalidCustomerStaysOnCustomerInfo(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)

	_, err := w.UpdateCustomer(domain.Customer{FirstName: "Camila", LastName: " ", Email: "camila@example"})
	require.NoError(t, err)
	s, err := w.Next(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, FieldLastName)
	assert.Contains(t, verr.Fields, FieldEmail)
	assert.NotContains(t, verr.Fields, FieldFirstName)
	assert.Equal(t, StepCustomerInfo, s.Step)
	assert.Equal(t, verr.Fields, s.FieldErrors)
	assert.Empty(t, f.log.all(), "addresses must not be requested before the step is valid")
}

func TestNext_DefaultsToFirstSavedAddress(t *testing.T) {
	f := newFixture(t)
	first := f.savedAddress("addr-10")
	f.savedAddress("addr-11")
	w := f.start(t)

	s, err := w.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.True(t, s.AddressesLoaded)
	assert.Len(t, s.SavedAddresses, 2)
	assert.Equal(t, UseSaved(first.ID), s.AddressMode)
	assert.Equal(t, []string{"list_addresses"}, f.log.all())
}

func TestNext_NoSavedAddressesDefaultsToNewAddress(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)

	s, err := w.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, CreateNew(), s.AddressMode)
	assert.Equal(t, domain.AddressDraft{}, s.Draft)
	assert.Empty(t, s.SavedAddresses)
}

func TestNext_ListFailureStillAllowsNewAddress(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	f.addresses.listErr = &backendMessageError{msg: "servicio de envíos no disponible"}
	w := f.start(t)

	s, err := w.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Equal(t, CreateNew(), s.AddressMode)
	assert.Equal(t, "servicio de envíos no disponible", s.LastError)
}

func TestBack_PreservesEnteredData(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	s, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepCustomerInfo, s.Step)
	assert.Equal(t, "Camila", s.Customer.FirstName)

	s, err = w.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Equal(t, draft, s.Draft)
}

func TestPay_EmptyStreetIsBlocked(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	draft.Street = ""
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, FieldStreet)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Equal(t, []string{"list_addresses"}, f.log.all())
	assert.False(t, f.cart.IsEmpty())
}

func TestPay_CommuneMustBelongToRegion(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	draft.Commune = "Viña del Mar"
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	_, err = w.Pay(ctx, f.cart)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, FieldCommune)
}

func TestPay_NewAddressEndToEnd(t *testing.T) {
	f := newFixture(t)
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	require.NoError(t, err)
	assert.Equal(t, StepDone, s.Step)
	require.NotNil(t, s.Confirmation)
	assert.Equal(t, "order-1", s.Confirmation.OrderID)
	assert.Equal(t, []string{"list_addresses", "create_address", "submit_order"}, f.log.all())

	require.Len(t, f.orders.intents, 1)
	intent := f.orders.intents[0]
	assert.Equal(t, "addr-1", intent.AddressID)
	assert.Equal(t, "42", intent.UserID)
	assert.Equal(t, s.IdempotencyKey, intent.IdempotencyKey)
	assert.Equal(t, domain.Totals{TotalQuantity: 5, Subtotal: 3500, Tax: 665, Total: 4165}, intent.Totals)
	assert.Equal(t, []domain.OrderLine{
		{ProductID: "ring-1", Name: "Anillo de plata", Quantity: 2, UnitPrice: 1000, LineTotal: 2000},
		{ProductID: "necklace-1", Name: "Collar de cuarzo", Quantity: 3, UnitPrice: 500, LineTotal: 1500},
	}, intent.Lines)

	assert.True(t, f.cart.IsEmpty())
	reloaded, err := cart.Load(ctx, f.store)
	require.NoError(t, err)
	assert.True(t, reloaded.IsEmpty())

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "order-1", f.events.events[0].OrderID)
	assert.Equal(t, "addr-1", f.events.events[0].AddressID)
}

func TestPay_SavedAddressSkipsCreation(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	second := f.savedAddress("addr-11")
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	_, err = w.SelectSavedAddress(second.ID)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	require.NoError(t, err)
	assert.Equal(t, StepDone, s.Step)
	assert.Equal(t, []string{"list_addresses", "submit_order"}, f.log.all())
	assert.Equal(t, second.ID, f.orders.intents[0].AddressID)
}

func TestPay_RetryAfterOrderFailureReusesCreatedAddress(t *testing.T) {
	f := newFixture(t)
	f.orders.failures = 1
	f.orders.err = errBackendDown
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	var cerr *CollaboratorError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Equal(t, UseSaved("addr-1"), s.AddressMode)
	require.Len(t, s.SavedAddresses, 1)
	assert.Equal(t, "Av. Providencia 1234", s.SavedAddresses[0].Street)
	assert.NotEmpty(t, s.LastError)
	assert.False(t, f.cart.IsEmpty(), "cart must survive a failed submission")

	s, err = w.Pay(ctx, f.cart)

	require.NoError(t, err)
	assert.Equal(t, StepDone, s.Step)
	assert.Equal(t, []string{"list_addresses", "create_address", "submit_order", "submit_order"}, f.log.all())
	assert.Len(t, f.addresses.created, 1)
	require.Len(t, f.orders.intents, 2)
	assert.Equal(t, f.orders.intents[0].IdempotencyKey, f.orders.intents[1].IdempotencyKey)
	assert.Equal(t, "addr-1", f.orders.intents[1].AddressID)
	assert.True(t, f.cart.IsEmpty())
}

func TestPay_AddressCreationFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.addresses.createErr = &backendMessageError{msg: "región inválida"}
	w := f.start(t)
	ctx := context.Background()

	_, err := w.Next(ctx)
	require.NoError(t, err)
	draft := validDraft()
	_, err = w.UseNewAddress(&draft)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	var cerr *CollaboratorError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "create address", cerr.Op)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Equal(t, CreateNew(), s.AddressMode)
	assert.Equal(t, draft, s.Draft)
	assert.Equal(t, "región inválida", s.LastError)
	assert.Equal(t, []string{"list_addresses", "create_address"}, f.log.all())
	assert.False(t, f.cart.IsEmpty())
}

func TestPay_RevalidatesStockKnownToCart(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	w := f.start(t)
	ctx := context.Background()

	_, err := f.cart.RefreshStock(ctx, map[string]int{"necklace-1": 1})
	require.NoError(t, err)

	_, err = w.Next(ctx)
	require.NoError(t, err)
	s, err := w.Pay(ctx, f.cart)

	var serr *StockError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Problems, 1)
	assert.Equal(t, "necklace-1", serr.Problems[0].ProductID)
	assert.Equal(t, 3, serr.Problems[0].Requested)
	assert.Equal(t, 1, serr.Problems[0].Available)
	assert.Equal(t, StepAddressSelection, s.Step)
	assert.Contains(t, s.LastError, "Collar de cuarzo")
	assert.Equal(t, []string{"list_addresses"}, f.log.all())
}

func TestPay_LiveCatalogCheck(t *testing.T) {
	t.Run("inactive product blocks the order", func(t *testing.T) {
		f := newFixture(t)
		f.savedAddress("addr-10")
		f.catalog = &mockCatalog{products: map[string]domain.Product{
			"ring-1":     {ID: "ring-1", Stock: 5, Active: false},
			"necklace-1": {ID: "necklace-1", Stock: 3, Active: true},
		}}
		w := f.start(t)
		ctx := context.Background()
		_, err := w.Next(ctx)
		require.NoError(t, err)

		_, err = w.Pay(ctx, f.cart)

		var serr *StockError
		require.ErrorAs(t, err, &serr)
		require.Len(t, serr.Problems, 1)
		assert.Equal(t, "ring-1", serr.Problems[0].ProductID)
		assert.Equal(t, "product is no longer available", serr.Problems[0].Reason)
	})

	t.Run("live stock refreshes the cart and blocks", func(t *testing.T) {
		f := newFixture(t)
		f.savedAddress("addr-10")
		f.catalog = &mockCatalog{products: map[string]domain.Product{
			"ring-1":     {ID: "ring-1", Stock: 1, Active: true},
			"necklace-1": {ID: "necklace-1", Stock: 10, Active: true},
		}}
		w := f.start(t)
		ctx := context.Background()
		_, err := w.Next(ctx)
		require.NoError(t, err)

		_, err = w.Pay(ctx, f.cart)

		var serr *StockError
		require.ErrorAs(t, err, &serr)
		require.Len(t, serr.Problems, 1)
		assert.Equal(t, 1, serr.Problems[0].Available)
		line, ok := f.cart.Line("ring-1")
		require.True(t, ok)
		assert.Equal(t, 1, line.Quantity)
		assert.Equal(t, 1, line.StockSnapshot)
	})

	t.Run("unverifiable product blocks the order", func(t *testing.T) {
		f := newFixture(t)
		f.savedAddress("addr-10")
		f.catalog = &mockCatalog{err: errBackendDown}
		w := f.start(t)
		ctx := context.Background()
		_, err := w.Next(ctx)
		require.NoError(t, err)

		s, err := w.Pay(ctx, f.cart)

		var serr *StockError
		require.ErrorAs(t, err, &serr)
		require.Len(t, serr.Problems, 2)
		assert.Equal(t, "could not verify product", serr.Problems[0].Reason)
		assert.Equal(t, StepAddressSelection, s.Step)
		assert.Empty(t, f.orders.intents)
	})

	t.Run("healthy catalog lets the order through", func(t *testing.T) {
		f := newFixture(t)
		f.savedAddress("addr-10")
		f.catalog = &mockCatalog{products: map[string]domain.Product{
			"ring-1":     {ID: "ring-1", Stock: 5, Active: true},
			"necklace-1": {ID: "necklace-1", Stock: 3, Active: true},
		}}
		w := f.start(t)
		ctx := context.Background()
		_, err := w.Next(ctx)
		require.NoError(t, err)

		s, err := w.Pay(ctx, f.cart)

		require.NoError(t, err)
		assert.Equal(t, StepDone, s.Step)
	})
}

func TestPay_SecondCallWhileSubmittingIsRejected(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	f.orders.block = make(chan struct{})
	w := f.start(t)
	ctx := context.Background()
	_, err := w.Next(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = w.Pay(ctx, f.cart)
	}()

	require.Eventually(t, func() bool { return w.Step() == StepSubmitting }, time.Second, time.Millisecond)

	_, err = w.Pay(ctx, f.cart)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(f.orders.block)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, StepDone, w.Step())
	assert.Len(t, f.orders.intents, 1)
}

func TestPay_CallerCancellationDoesNotAbortSubmission(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	w := f.start(t)
	_, err := w.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := w.Pay(ctx, f.cart)

	require.NoError(t, err)
	assert.Equal(t, StepDone, s.Step)
}

func TestPay_PublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	f.events.err = errors.New("broker down")
	w := f.start(t)
	ctx := context.Background()
	_, err := w.Next(ctx)
	require.NoError(t, err)

	s, err := w.Pay(ctx, f.cart)

	require.NoError(t, err)
	assert.Equal(t, StepDone, s.Step)
	assert.Len(t, f.events.events, 1)
}

func TestDone_RejectsFurtherEvents(t *testing.T) {
	f := newFixture(t)
	f.savedAddress("addr-10")
	w := f.start(t)
	ctx := context.Background()
	_, err := w.Next(ctx)
	require.NoError(t, err)
	_, err = w.Pay(ctx, f.cart)
	require.NoError(t, err)

	_, err = w.Pay(ctx, f.cart)
	assert.ErrorIs(t, err, ErrSessionDone)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrSessionDone)
	assert.Len(t, f.orders.intents, 1)
}
