package domain

import (
	"encoding/json"
	"fmt"
)

// Routing keys published to the booking exchange.
const (
	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingCompleted = "booking.completed"
	RKBookingReminder  = "booking.reminder"
	RKPaymentApplied   = "payment.applied"
	RKPaymentRejected  = "payment.rejected"
)

// Routing keys consumed from the gateway exchange. The gateway collaborator
// publishes one terminal confirmation per transaction, delivered at least once.
const (
	RKGatewayConfirmed = "payment.confirmed"
	RKGatewayFailed    = "payment.failed"
)

type BookingCreated struct {
	BookingID  string `json:"booking_id"`
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	Start      int64  `json:"start"` // unix seconds
	End        int64  `json:"end"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
}

type BookingSimple struct {
	BookingID string `json:"booking_id"`
}

type BookingReminder struct {
	BookingID  string `json:"booking_id"`
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	Start      int64  `json:"start"`
}

type PaymentApplied struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	TotalPaid     int64  `json:"total_paid"`
	PaymentStatus string `json:"payment_status"`
}

type PaymentRejected struct {
	BookingID     string `json:"booking_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// GatewayConfirmation is the envelope the payment gateway collaborator
// delivers on its exchange.
type GatewayConfirmation struct {
	Event      string `json:"event"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		TransactionID string `json:"transaction_id"`
		BookingID     string `json:"booking_id"`
		Amount        int64  `json:"amount"`
		Outcome       string `json:"outcome"` // completed | failed
	} `json:"data"`
}

func DecodeEvent[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
