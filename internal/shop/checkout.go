package shop

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyCart signals an order placement against an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// ErrCheckoutInvalid signals that the draft failed field validation; the
// per-field messages travel alongside it.
var ErrCheckoutInvalid = errors.New("checkout draft is invalid")

// Address is the delivery-address half of the checkout draft.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// Payment is the payment half of the checkout draft. Card fields only
// apply when Method is "card"; no gateway is ever contacted.
type Payment struct {
	Method     string `json:"method"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	CardName   string `json:"cardName"`
}

// CheckoutDraft is the in-progress checkout form. Created empty at
// session start, merged field-by-field while the shopper types, and
// cleared on order placement or cancellation. Never persisted.
type CheckoutDraft struct {
	Address Address `json:"address"`
	Payment Payment `json:"payment"`
}

func emptyCheckoutDraft() CheckoutDraft {
	return CheckoutDraft{}
}

// FieldErrors maps field name to validation message.
type FieldErrors map[string]string

var (
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	cardPattern   = regexp.MustCompile(`^\d{16}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// UpdateCheckoutData merges the incoming partial draft into the current
// one: non-empty incoming fields overwrite, empty fields keep their prior
// value. Callers no longer pre-merge.
func (s *Store) UpdateCheckoutData(partial CheckoutDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mergeString(&s.checkout.Address.FirstName, partial.Address.FirstName)
	mergeString(&s.checkout.Address.LastName, partial.Address.LastName)
	mergeString(&s.checkout.Address.Email, partial.Address.Email)
	mergeString(&s.checkout.Address.Phone, partial.Address.Phone)
	mergeString(&s.checkout.Address.Street, partial.Address.Street)
	mergeString(&s.checkout.Address.City, partial.Address.City)
	mergeString(&s.checkout.Address.State, partial.Address.State)
	mergeString(&s.checkout.Address.ZipCode, partial.Address.ZipCode)
	mergeString(&s.checkout.Address.Country, partial.Address.Country)

	mergeString(&s.checkout.Payment.Method, partial.Payment.Method)
	mergeString(&s.checkout.Payment.CardNumber, partial.Payment.CardNumber)
	mergeString(&s.checkout.Payment.ExpiryDate, partial.Payment.ExpiryDate)
	mergeString(&s.checkout.Payment.CVV, partial.Payment.CVV)
	mergeString(&s.checkout.Payment.CardName, partial.Payment.CardName)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// ClearCheckoutData resets the draft to its empty initial shape.
func (s *Store) ClearCheckoutData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout = emptyCheckoutDraft()
}

// CheckoutData returns the current draft.
func (s *Store) CheckoutData() CheckoutDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout
}

// ValidateAddress checks the address step of the current draft. An empty
// map means the step passes.
func (s *Store) ValidateAddress() FieldErrors {
	return validateAddress(s.CheckoutData().Address)
}

// ValidatePayment checks the payment step of the current draft.
func (s *Store) ValidatePayment() FieldErrors {
	return validatePayment(s.CheckoutData().Payment)
}

func validateAddress(a Address) FieldErrors {
	errs := FieldErrors{}

	required := []struct {
		field, value, message string
	}{
		{"firstName", a.FirstName, "First name is required"},
		{"lastName", a.LastName, "Last name is required"},
		{"email", a.Email, "Email is required"},
		{"phone", a.Phone, "Phone is required"},
		{"street", a.Street, "Street address is required"},
		{"city", a.City, "City is required"},
		{"state", a.State, "State is required"},
		{"zipCode", a.ZipCode, "ZIP code is required"},
		{"country", a.Country, "Country is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.message
		}
	}

	if a.Email != "" && !emailPattern.MatchString(a.Email) {
		errs["email"] = "Invalid email format"
	}

	return errs
}

func validatePayment(p Payment) FieldErrors {
	errs := FieldErrors{}

	if p.Method == "" {
		errs["method"] = "Payment method is required"
		return errs
	}

	if p.Method != "card" {
		return errs
	}

	if strings.TrimSpace(p.CardNumber) == "" {
		errs["cardNumber"] = "Card number is required"
	} else if !cardPattern.MatchString(strings.ReplaceAll(p.CardNumber, " ", "")) {
		errs["cardNumber"] = "Invalid card number"
	}

	if strings.TrimSpace(p.ExpiryDate) == "" {
		errs["expiryDate"] = "Expiry date is required"
	} else if !expiryPattern.MatchString(p.ExpiryDate) {
		errs["expiryDate"] = "Invalid expiry date (MM/YY)"
	}

	if strings.TrimSpace(p.CVV) == "" {
		errs["cvv"] = "CVV is required"
	} else if !cvvPattern.MatchString(p.CVV) {
		errs["cvv"] = "Invalid CVV"
	}

	if strings.TrimSpace(p.CardName) == "" {
		errs["cardName"] = "Cardholder name is required"
	}

	return errs
}

// PlaceOrder validates the full draft against the current cart and, on
// success, issues an order id, clears the cart and resets the draft.
// Validation failures leave cart and draft untouched.
func (s *Store) PlaceOrder() (string, FieldErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return "", nil, ErrEmptyCart
	}

	errs := validateAddress(s.checkout.Address)
	for field, message := range validatePayment(s.checkout.Payment) {
		errs[field] = message
	}
	if len(errs) > 0 {
		return "", errs, ErrCheckoutInvalid
	}

	orderID := uuid.New().String()
	s.cart = nil
	s.checkout = emptyCheckoutDraft()
	s.persist()
	return orderID, nil, nil
}
