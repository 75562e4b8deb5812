package checkout

import "github.com/fjod/go_cart/storefront/internal/domain"

// Event is an input to the session state machine.
type Event interface {
	eventName() string
}

type CustomerEdited struct{ Customer domain.Customer }

type NextRequested struct{}

type BackRequested struct{}

type AddressesLoaded struct{ Addresses []domain.Address }

// AddressesUnavailable records a failed address listing; the shopper can still enter a new address.
type AddressesUnavailable struct{ Message string }

type SavedAddressSelected struct{ AddressID string }

type NewAddressChosen struct{}

type DraftEdited struct{ Draft domain.AddressDraft }

type PayRequested struct{}

type AddressCreated struct{ Address domain.Address }

type SubmissionFailed struct {
	Message string
	Fields  FieldErrors
}

type SubmissionSucceeded struct{ Confirmation domain.OrderConfirmation }

func (CustomerEdited) eventName() string       { return "customer_edited" }
func (NextRequested) eventName() string        { return "next_requested" }
func (BackRequested) eventName() string        { return "back_requested" }
func (AddressesLoaded) eventName() string      { return "addresses_loaded" }
func (AddressesUnavailable) eventName() string { return "addresses_unavailable" }
func (SavedAddressSelected) eventName() string { return "saved_address_selected" }
func (NewAddressChosen) eventName() string     { return "new_address_chosen" }
func (DraftEdited) eventName() string          { return "draft_edited" }
func (PayRequested) eventName() string         { return "pay_requested" }
func (AddressCreated) eventName() string       { return "address_created" }
func (SubmissionFailed) eventName() string     { return "submission_failed" }
func (SubmissionSucceeded) eventName() string  { return "submission_succeeded" }
