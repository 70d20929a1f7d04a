package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// PaymentState is the booking-level derived payment status. It is a pure
// function of the booking's completed payments versus its total price and is
// only ever written by the payment ledger.
type PaymentState string

const (
	PaymentStateUnpaid   PaymentState = "unpaid"
	PaymentStatePartial  PaymentState = "partial"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

type Booking struct {
	ID            string    `gorm:"primaryKey"`
	CustomerID    string    `gorm:"index"`
	ProductID     string    `gorm:"index:idx_bookings_window"`
	StartDate     time.Time `gorm:"index:idx_bookings_window"`
	EndDate       time.Time `gorm:"index:idx_bookings_window"`
	Quantity      int
	DurationType  DurationType
	UnitPrice     int64
	TotalPrice    int64
	Status        BookingStatus `gorm:"index"`
	PaymentStatus PaymentState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Overlaps uses the half-open predicate: a booking ending exactly when another
// starts does not conflict with it.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartDate.Before(end) && start.Before(b.EndDate)
}

// Active reports whether the booking still occupies capacity. Cancelled and
// completed bookings release their slot purely by being excluded here.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

func (b *Booking) Terminal() bool {
	return b.Status == BookingCancelled || b.Status == BookingCompleted
}

// CanTransition is the booking state machine:
//
//	pending   -> confirmed | cancelled
//	confirmed -> completed | cancelled
//
// cancelled and completed are terminal.
func CanTransition(from, to BookingStatus) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCompleted || to == BookingCancelled
	default:
		return false
	}
}

// DerivePaymentState maps the completed-payment total onto the booking-level
// payment status.
func DerivePaymentState(totalPaid, totalPrice int64) PaymentState {
	switch {
	case totalPaid <= 0:
		return PaymentStateUnpaid
	case totalPaid >= totalPrice:
		return PaymentStatePaid
	default:
		return PaymentStatePartial
	}
}
