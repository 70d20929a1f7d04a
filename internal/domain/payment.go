package domain

import "time"

// PaymentStatus is the per-attempt status. A payment leaves pending exactly
// once; completed and failed are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID            string `gorm:"primaryKey"`
	BookingID     string `gorm:"index"`
	Amount        int64
	Method        string
	TransactionID string        `gorm:"uniqueIndex"` // gateway-assigned, the idempotency key
	Status        PaymentStatus `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Payment) Terminal() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentFailed
}

// PaymentRef is the booking-facing view of one payment attempt.
type PaymentRef struct {
	PaymentID string        `json:"payment_id"`
	Amount    int64         `json:"amount"`
	Status    PaymentStatus `json:"status"`
}

// BookingPaymentState is what applying a gateway confirmation yields.
// Duplicate marks a redelivery that was absorbed without any state change;
// TransitionedTo is set when the confirmation moved the booking itself
// (auto-confirm on full payment, auto-cancel on a stranded sole attempt).
type BookingPaymentState struct {
	BookingID        string        `json:"booking_id"`
	BookingStatus    BookingStatus `json:"booking_status"`
	PaymentStatus    PaymentState  `json:"payment_status"`
	TotalPaid        int64         `json:"total_paid"`
	RemainingBalance int64         `json:"remaining_balance"`
	Duplicate        bool          `json:"-"`
	TransitionedTo   BookingStatus `json:"-"`
}
