// Package store persists the reservation core's state. The postgres
// implementation is the production store; the memory implementation backs
// tests and local runs with the same serialization guarantees.
package store

import (
	"context"
	"time"

	"github.com/you/rental-booking/internal/domain"
)

type CatalogStore interface {
	SaveProduct(ctx context.Context, p *domain.Product) error
	ProductByID(ctx context.Context, id string) (*domain.Product, error)
	SetProductStatus(ctx context.Context, id string, status domain.ProductStatus) error
	AddUnavailability(ctx context.Context, period *domain.UnavailabilityPeriod) error
	SavePricelist(ctx context.Context, pl *domain.Pricelist) error
	PricelistsAt(ctx context.Context, at time.Time) ([]*domain.Pricelist, error)
}

type BookingStore interface {
	// CreateReserved is the single atomic check-then-insert: capacity and
	// unavailability are evaluated and the row written while the product's
	// bookings are serialized, so two overlapping attempts cannot both pass.
	CreateReserved(ctx context.Context, b *domain.Booking) error

	BookingByID(ctx context.Context, id string) (*domain.Booking, error)

	// UpdateBookingStatus revalidates the transition under a row lock and
	// returns *domain.InvalidTransitionError for disallowed moves.
	UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error)

	BookingsByCustomer(ctx context.Context, customerID string) ([]domain.Booking, error)

	// UpcomingBookings lists confirmed bookings starting within [from, to).
	UpcomingBookings(ctx context.Context, from, to time.Time) ([]domain.Booking, error)

	// ExpireHolds cancels pending, unpaid bookings created before the cutoff
	// and returns the ones it cancelled.
	ExpireHolds(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

type PaymentStore interface {
	// CreatePayment records a pending attempt; a reused transaction id yields
	// domain.ErrDuplicateTransaction.
	CreatePayment(ctx context.Context, p *domain.Payment) error

	PaymentsByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error)

	// ApplyConfirmation settles one gateway confirmation in one transaction:
	// terminal attempts are absorbed as duplicates, completions recompute the
	// booking's payment status (rejecting overpayment), failures cancel the
	// booking when they strand its only attempt.
	ApplyConfirmation(ctx context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error)
}

type Store interface {
	CatalogStore
	BookingStore
	PaymentStore
}
