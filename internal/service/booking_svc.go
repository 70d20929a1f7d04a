package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/pricing"
	"github.com/you/rental-booking/internal/store"
)

// Publisher is the outgoing event boundary. Failures to publish never affect
// booking or payment state.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type BookingSvc struct {
	store  store.Store
	pub    Publisher
	now    func() time.Time
	tracer trace.Tracer
}

func NewBookingSvc(st store.Store, pub Publisher) *BookingSvc {
	return &BookingSvc{
		store:  st,
		pub:    pub,
		now:    time.Now,
		tracer: otel.Tracer("rental-booking/booking"),
	}
}

type ReserveInput struct {
	CustomerID   string
	ProductID    string
	StartDate    time.Time
	EndDate      time.Time
	Quantity     int
	DurationType domain.DurationType
}

func (in *ReserveInput) validate(now time.Time) error {
	ve := domain.NewValidationError()
	if in.CustomerID == "" {
		ve.Add("customerId", "provide customerId")
	}
	if in.ProductID == "" {
		ve.Add("productId", "provide productId")
	}
	if !in.StartDate.Before(in.EndDate) {
		ve.Add("startDate", "startDate must be before endDate")
	}
	if in.StartDate.Before(now) {
		ve.Add("startDate", "startDate must not be in the past")
	}
	if in.Quantity < 0 {
		ve.Add("quantity", "quantity must be positive")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// Reserve resolves the price, checks the window and creates the booking in
// pending as one atomic unit against the store.
func (s *BookingSvc) Reserve(ctx context.Context, in ReserveInput) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.reserve")
	defer span.End()

	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.DurationType == "" {
		in.DurationType = domain.DurationDay
	}
	if err := in.validate(s.now().UTC()); err != nil {
		return nil, err
	}

	product, err := s.store.ProductByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Reservable() {
		return nil, domain.ErrProductNotReservable
	}

	pricelists, err := s.store.PricelistsAt(ctx, in.StartDate)
	if err != nil {
		return nil, err
	}
	units := domain.DurationUnits(in.StartDate, in.EndDate, in.DurationType)
	quote, err := pricing.Resolve(pricing.QuoteInput{
		Product:      product,
		Pricelists:   pricelists,
		CustomerID:   in.CustomerID,
		DurationType: in.DurationType,
		At:           in.StartDate,
		Units:        units,
	})
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ID:            uuid.NewString(),
		CustomerID:    in.CustomerID,
		ProductID:     in.ProductID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Quantity:      in.Quantity,
		DurationType:  in.DurationType,
		UnitPrice:     quote.UnitPrice,
		TotalPrice:    quote.UnitPrice * int64(units) * int64(in.Quantity),
		Status:        domain.BookingPending,
		PaymentStatus: domain.PaymentStateUnpaid,
	}
	if err := s.store.CreateReserved(ctx, b); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.RKBookingCreated, domain.BookingCreated{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProductID:  b.ProductID,
		Start:      b.StartDate.Unix(),
		End:        b.EndDate.Unix(),
		Quantity:   b.Quantity,
		TotalPrice: b.TotalPrice,
	})
	return b, nil
}

func (s *BookingSvc) Confirm(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.store.UpdateBookingStatus(ctx, id, domain.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.RKBookingConfirmed, domain.BookingSimple{BookingID: b.ID})
	return b, nil
}

// Cancel never deletes the row; the slot frees up because availability checks
// exclude cancelled bookings.
func (s *BookingSvc) Cancel(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.store.UpdateBookingStatus(ctx, id, domain.BookingCancelled)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.RKBookingCancelled, domain.BookingSimple{BookingID: b.ID})
	return b, nil
}

func (s *BookingSvc) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.store.UpdateBookingStatus(ctx, id, domain.BookingCompleted)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.RKBookingCompleted, domain.BookingSimple{BookingID: b.ID})
	return b, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.store.BookingByID(ctx, id)
}

func (s *BookingSvc) ListByCustomer(ctx context.Context, customerID string) ([]domain.Booking, error) {
	return s.store.BookingsByCustomer(ctx, customerID)
}

func (s *BookingSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		log.Printf("[booking] publish %s failed: %v", key, err)
	}
}
