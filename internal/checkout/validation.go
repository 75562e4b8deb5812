package checkout

import (
	"regexp"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldStreet    = "street"
	FieldRegion    = "region"
	FieldCommune   = "commune"
	FieldAddressID = "address_id"
)

func ValidateCustomer(c domain.Customer) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(c.FirstName) == "" {
		errs[FieldFirstName] = "first name is required"
	}
	if strings.TrimSpace(c.LastName) == "" {
		errs[FieldLastName] = "last name is required"
	}
	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		errs[FieldEmail] = "email is required"
	case !emailPattern.MatchString(email):
		errs[FieldEmail] = "email is not valid"
	}
	return errs
}

func ValidateDraft(d domain.AddressDraft) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(d.Street) == "" {
		errs[FieldStreet] = "street is required"
	}
	region := strings.TrimSpace(d.Region)
	if region == "" {
		errs[FieldRegion] = "region is required"
	}
	commune := strings.TrimSpace(d.Commune)
	switch {
	case commune == "":
		errs[FieldCommune] = "commune is required"
	case region != "" && !CommuneInRegion(region, commune):
		errs[FieldCommune] = "commune does not belong to the selected region"
	}
	return errs
}

// ValidateAddressChoice checks the address step before submission.
func ValidateAddressChoice(s Session) FieldErrors {
	if s.AddressMode.Kind == AddressModeNew {
		return ValidateDraft(s.Draft)
	}
	errs := FieldErrors{}
	if s.AddressMode.AddressID == "" {
		errs[FieldAddressID] = "select a shipping address"
	} else if _, ok := s.savedAddress(s.AddressMode.AddressID); !ok {
		errs[FieldAddressID] = "selected address is no longer available"
	}
	return errs
}

func normalizeCustomer(c domain.Customer) domain.Customer {
	return domain.Customer{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.TrimSpace(c.Email),
	}
}

func normalizeDraft(d domain.AddressDraft) domain.AddressDraft {
	return domain.AddressDraft{
		Street:        strings.TrimSpace(d.Street),
		Unit:          strings.TrimSpace(d.Unit),
		Region:        strings.TrimSpace(d.Region),
		Commune:       strings.TrimSpace(d.Commune),
		DeliveryNotes: strings.TrimSpace(d.DeliveryNotes),
	}
}
