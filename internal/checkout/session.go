package checkout

import (
	"slices"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Step string

const (
	StepCustomerInfo     Step = "customer_info"
	StepAddressSelection Step = "address_selection"
	StepSubmitting       Step = "submitting"
	StepDone             Step = "done"
)

func (s Step) IsTerminal() bool {
	return s == StepDone
}

func (s Step) String() string {
	return string(s)
}

// CanTransitionTo reports whether the step graph has an edge from s to next.
func (s Step) CanTransitionTo(next Step) bool {
	switch s {
	case StepCustomerInfo:
		return next == StepAddressSelection
	case StepAddressSelection:
		return next == StepCustomerInfo || next == StepSubmitting
	case StepSubmitting:
		return next == StepDone || next == StepAddressSelection
	}
	return false
}

type AddressModeKind string

const (
	AddressModeSaved AddressModeKind = "saved"
	AddressModeNew   AddressModeKind = "new"
)

// AddressMode selects between a saved address and the session's draft.
type AddressMode struct {
	Kind      AddressModeKind `json:"kind"`
	AddressID string          `json:"address_id,omitempty"`
}

func UseSaved(addressID string) AddressMode {
	return AddressMode{Kind: AddressModeSaved, AddressID: addressID}
}

func CreateNew() AddressMode {
	return AddressMode{Kind: AddressModeNew}
}

// Session is the transient state of one shopper's checkout. It is only
// changed through Apply.
type Session struct {
	ID              string                    `json:"id"`
	UserID          string                    `json:"user_id"`
	IdempotencyKey  string                    `json:"-"`
	Step            Step                      `json:"step"`
	Customer        domain.Customer           `json:"customer"`
	AddressMode     AddressMode               `json:"address_mode"`
	Draft           domain.AddressDraft       `json:"draft"`
	SavedAddresses  []domain.Address          `json:"saved_addresses"`
	AddressesLoaded bool                      `json:"addresses_loaded"`
	Snapshot        domain.CartSnapshot       `json:"cart_snapshot"`
	FieldErrors     FieldErrors               `json:"field_errors,omitempty"`
	LastError       string                    `json:"last_error,omitempty"`
	Confirmation    *domain.OrderConfirmation `json:"confirmation,omitempty"`
}

// NewSession builds the initial CustomerInfo state, prefilled from the user profile.
func NewSession(id, idempotencyKey string, user domain.User, snapshot domain.CartSnapshot) Session {
	return Session{
		ID:             id,
		UserID:         user.ID,
		IdempotencyKey: idempotencyKey,
		Step:           StepCustomerInfo,
		Customer: domain.Customer{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
		AddressMode:    CreateNew(),
		SavedAddresses: []domain.Address{},
		Snapshot:       cloneSnapshot(snapshot),
	}
}

// Clone returns a deep copy safe to hand outside the workflow lock.
func (s Session) Clone() Session {
	out := s
	out.SavedAddresses = slices.Clone(s.SavedAddresses)
	if out.SavedAddresses == nil {
		out.SavedAddresses = []domain.Address{}
	}
	out.Snapshot = cloneSnapshot(s.Snapshot)
	if s.FieldErrors != nil {
		out.FieldErrors = make(FieldErrors, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	if s.Confirmation != nil {
		c := *s.Confirmation
		out.Confirmation = &c
	}
	return out
}

func (s Session) savedAddress(id string) (domain.Address, bool) {
	for _, a := range s.SavedAddresses {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Address{}, false
}

func cloneSnapshot(s domain.CartSnapshot) domain.CartSnapshot {
	lines := slices.Clone(s.Lines)
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return domain.CartSnapshot{Lines: lines, Totals: s.Totals}
}
