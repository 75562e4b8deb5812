package checkout

import (
	"fmt"
	"slices"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Apply is the session transition function. It never mutates s; on error the
// returned session is s unchanged, except for validation failures which carry
// the field errors to display.
func Apply(s Session, ev Event) (Session, error) {
	next := s.Clone()

	switch e := ev.(type) {
	case CustomerEdited:
		if err := requireStep(s, ev, StepCustomerInfo); err != nil {
			return s, err
		}
		next.Customer = e.Customer
		next.FieldErrors = nil

	case NextRequested:
		if err := requireStep(s, ev, StepCustomerInfo); err != nil {
			return s, err
		}
		customer := normalizeCustomer(next.Customer)
		if errs := ValidateCustomer(customer); len(errs) > 0 {
			next.FieldErrors = errs
			return next, &ValidationError{Fields: errs}
		}
		next.Customer = customer
		next.Step = StepAddressSelection
		next.FieldErrors = nil
		next.LastError = ""
		next.AddressesLoaded = false

	case BackRequested:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		next.Step = StepCustomerInfo
		next.FieldErrors = nil
		next.LastError = ""

	case AddressesLoaded:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		next.SavedAddresses = slices.Clone(e.Addresses)
		if next.SavedAddresses == nil {
			next.SavedAddresses = []domain.Address{}
		}
		next.AddressesLoaded = true
		next.AddressMode = defaultAddressMode(next)

	case AddressesUnavailable:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		next.SavedAddresses = []domain.Address{}
		next.AddressesLoaded = true
		next.AddressMode = CreateNew()
		next.LastError = e.Message

	case SavedAddressSelected:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		if _, ok := next.savedAddress(e.AddressID); !ok {
			return s, fmt.Errorf("%w: %s", ErrAddressNotAvailable, e.AddressID)
		}
		next.AddressMode = UseSaved(e.AddressID)
		next.FieldErrors = nil

	case NewAddressChosen:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		next.AddressMode = CreateNew()
		next.FieldErrors = nil

	case DraftEdited:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		next.Draft = e.Draft
		next.FieldErrors = nil

	case PayRequested:
		if err := requireStep(s, ev, StepAddressSelection); err != nil {
			return s, err
		}
		if next.AddressMode.Kind == AddressModeNew {
			next.Draft = normalizeDraft(next.Draft)
		}
		if errs := ValidateAddressChoice(next); len(errs) > 0 {
			next.FieldErrors = errs
			return next, &ValidationError{Fields: errs}
		}
		next.Step = StepSubmitting
		next.FieldErrors = nil
		next.LastError = ""

	case AddressCreated:
		if err := requireStep(s, ev, StepSubmitting); err != nil {
			return s, err
		}
		if _, ok := next.savedAddress(e.Address.ID); !ok {
			next.SavedAddresses = append(next.SavedAddresses, e.Address)
		}
		next.AddressMode = UseSaved(e.Address.ID)
		next.Draft = domain.AddressDraft{}

	case SubmissionFailed:
		if err := requireStep(s, ev, StepSubmitting); err != nil {
			return s, err
		}
		next.Step = StepAddressSelection
		next.LastError = e.Message
		next.FieldErrors = e.Fields

	case SubmissionSucceeded:
		if err := requireStep(s, ev, StepSubmitting); err != nil {
			return s, err
		}
		confirmation := e.Confirmation
		next.Step = StepDone
		next.Confirmation = &confirmation
		next.LastError = ""

	default:
		return s, fmt.Errorf("%w: unknown event %T", ErrIllegalTransition, ev)
	}

	return next, nil
}

func requireStep(s Session, ev Event, want Step) error {
	if s.Step == want {
		return nil
	}
	if s.Step == StepSubmitting {
		return ErrSubmissionInFlight
	}
	if s.Step.IsTerminal() {
		return ErrSessionDone
	}
	return fmt.Errorf("%w: %s while in %s", ErrIllegalTransition, ev.eventName(), s.Step)
}

// defaultAddressMode keeps a still-valid saved selection and otherwise picks the
// first saved address, falling back to a new one when the user has none.
func defaultAddressMode(s Session) AddressMode {
	if s.AddressMode.Kind == AddressModeSaved {
		if _, ok := s.savedAddress(s.AddressMode.AddressID); ok {
			return s.AddressMode
		}
	}
	if len(s.SavedAddresses) > 0 {
		return UseSaved(s.SavedAddresses[0].ID)
	}
	return CreateNew()
}
