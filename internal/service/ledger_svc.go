package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/store"
)

// LedgerSvc records payment attempts and applies gateway confirmations
// against a booking's balance. Confirmations are idempotent on transaction id:
// redelivery of a terminal confirmation is absorbed, not an error.
type LedgerSvc struct {
	store  store.Store
	pub    Publisher
	tracer trace.Tracer
}

func NewLedgerSvc(st store.Store, pub Publisher) *LedgerSvc {
	return &LedgerSvc{
		store:  st,
		pub:    pub,
		tracer: otel.Tracer("rental-booking/ledger"),
	}
}

type AttemptInput struct {
	BookingID     string
	Amount        int64
	Method        string
	TransactionID string
}

func (in *AttemptInput) validate() error {
	ve := domain.NewValidationError()
	if in.BookingID == "" {
		ve.Add("bookingId", "provide bookingId")
	}
	if in.Amount <= 0 {
		ve.Add("amount", "amount must be positive")
	}
	if in.TransactionID == "" {
		ve.Add("transactionId", "provide transactionId")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// RecordAttempt registers a pending payment for a booking that still accepts
// payments.
func (s *LedgerSvc) RecordAttempt(ctx context.Context, in AttemptInput) (*domain.Payment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b, err := s.store.BookingByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if !b.Active() {
		return nil, domain.ErrBookingNotPayable
	}
	p := &domain.Payment{
		ID:            uuid.NewString(),
		BookingID:     in.BookingID,
		Amount:        in.Amount,
		Method:        in.Method,
		TransactionID: in.TransactionID,
		Status:        domain.PaymentPending,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyConfirmation settles one gateway confirmation. The amount reported by
// the gateway is informational: the recorded attempt's amount is authoritative
// and a redelivered confirmation changes nothing.
func (s *LedgerSvc) ApplyConfirmation(ctx context.Context, transactionID string, amount int64, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.apply_confirmation")
	defer span.End()

	if outcome != domain.PaymentCompleted && outcome != domain.PaymentFailed {
		ve := domain.NewValidationError()
		ve.Add("outcome", "outcome must be completed or failed")
		return nil, ve
	}

	st, err := s.store.ApplyConfirmation(ctx, transactionID, outcome)
	if err != nil {
		if oe := domain.IsOverpayment(err); oe != nil {
			s.publish(ctx, domain.RKPaymentRejected, domain.PaymentRejected{
				BookingID:     oe.BookingID,
				TransactionID: transactionID,
				Reason:        oe.Error(),
			})
		}
		return nil, err
	}

	if st.Duplicate {
		log.Printf("[ledger] duplicate confirmation for tx %s absorbed", transactionID)
		return st, nil
	}

	s.publish(ctx, domain.RKPaymentApplied, domain.PaymentApplied{
		BookingID:     st.BookingID,
		TransactionID: transactionID,
		Amount:        amount,
		TotalPaid:     st.TotalPaid,
		PaymentStatus: string(st.PaymentStatus),
	})
	switch st.TransitionedTo {
	case domain.BookingConfirmed:
		s.publish(ctx, domain.RKBookingConfirmed, domain.BookingSimple{BookingID: st.BookingID})
	case domain.BookingCancelled:
		s.publish(ctx, domain.RKBookingCancelled, domain.BookingSimple{BookingID: st.BookingID})
	}
	return st, nil
}

// Payments lists the booking's payment attempts in creation order.
func (s *LedgerSvc) Payments(ctx context.Context, bookingID string) ([]domain.PaymentRef, error) {
	payments, err := s.store.PaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	refs := make([]domain.PaymentRef, 0, len(payments))
	for i := range payments {
		refs = append(refs, domain.PaymentRef{
			PaymentID: payments[i].ID,
			Amount:    payments[i].Amount,
			Status:    payments[i].Status,
		})
	}
	return refs, nil
}

func (s *LedgerSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		log.Printf("[ledger] publish %s failed: %v", key, err)
	}
}
