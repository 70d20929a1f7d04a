package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSlotUnavailable      = errors.New("slot unavailable for requested window")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductNotReservable = errors.New("product is not approved for reservation")
	ErrPricelistNotFound    = errors.New("pricelist not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingNotPayable    = errors.New("booking no longer accepts payments")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
	ErrNoApplicablePrice    = errors.New("no applicable price for product")
)

// InvalidTransitionError marks a disallowed booking state change. It is an
// ordering fault on the caller's side, never absorbed silently.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition %s -> %s", e.From, e.To)
}

func IsInvalidTransition(err error) *InvalidTransitionError {
	var te *InvalidTransitionError
	if errors.As(err, &te) {
		return te
	}
	return nil
}

// OverpaymentError rejects a confirmation that would push the completed total
// past the booking's price. The attempt is left pending; refunds belong to
// the gateway.
type OverpaymentError struct {
	BookingID  string
	TotalPrice int64
	TotalPaid  int64
	Attempted  int64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("overpayment on booking %s: paid %d + attempted %d exceeds total %d",
		e.BookingID, e.TotalPaid, e.Attempted, e.TotalPrice)
}

func IsOverpayment(err error) *OverpaymentError {
	var oe *OverpaymentError
	if errors.As(err, &oe) {
		return oe
	}
	return nil
}

// ValidationError collects field-keyed input problems so callers can report
// all of them at once.
type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.fields[field] = append(e.fields[field], msg)
}

func (e *ValidationError) Empty() bool { return len(e.fields) == 0 }

func (e *ValidationError) Fields() map[string][]string { return e.fields }

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%+v", e.fields)
}

func IsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
