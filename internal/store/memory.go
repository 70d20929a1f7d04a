package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/you/rental-booking/internal/domain"
)

// Memory keeps everything behind one mutex, which trivially gives the same
// serialization the postgres store gets from row locks. Tests race goroutines
// against it to exercise the no-double-booking property.
type Memory struct {
	mu          sync.Mutex
	products    map[string]*domain.Product
	pricelists  map[string]*domain.Pricelist
	bookings    map[string]*domain.Booking
	payments    map[string]*domain.Payment
	paymentByTx map[string]string // transaction id -> payment id
}

func NewMemory() *Memory {
	return &Memory{
		products:    make(map[string]*domain.Product),
		pricelists:  make(map[string]*domain.Pricelist),
		bookings:    make(map[string]*domain.Booking),
		payments:    make(map[string]*domain.Payment),
		paymentByTx: make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

// ----- catalog -----

func (m *Memory) SaveProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = cloneProduct(p)
	return nil
}

func (m *Memory) ProductByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (m *Memory) SetProductStatus(_ context.Context, id string, status domain.ProductStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) AddUnavailability(_ context.Context, period *domain.UnavailabilityPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[period.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Unavailability = append(p.Unavailability, *period)
	return nil
}

func (m *Memory) SavePricelist(_ context.Context, pl *domain.Pricelist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricelists[pl.ID] = clonePricelist(pl)
	return nil
}

func (m *Memory) PricelistsAt(_ context.Context, at time.Time) ([]*domain.Pricelist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Pricelist
	for _, pl := range m.pricelists {
		if pl.ValidAt(at) {
			out = append(out, clonePricelist(pl))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- bookings -----

func (m *Memory) CreateReserved(_ context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[b.ProductID]
	if !ok {
		return domain.ErrProductNotFound
	}

	for i := range p.Unavailability {
		if p.Unavailability[i].Overlaps(b.StartDate, b.EndDate) {
			return domain.ErrSlotUnavailable
		}
	}

	reserved := 0
	for _, other := range m.bookings {
		if other.ProductID == b.ProductID && other.Active() && other.Overlaps(b.StartDate, b.EndDate) {
			reserved += other.Quantity
		}
	}
	if reserved+b.Quantity > p.Quantity {
		return domain.ErrSlotUnavailable
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *Memory) BookingByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (m *Memory) UpdateBookingStatus(_ context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if !domain.CanTransition(b.Status, to) {
		return nil, &domain.InvalidTransitionError{From: b.Status, To: to}
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

func (m *Memory) BookingsByCustomer(_ context.Context, customerID string) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpcomingBookings(_ context.Context, from, to time.Time) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingConfirmed && !b.StartDate.Before(from) && b.StartDate.Before(to) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *Memory) ExpireHolds(_ context.Context, cutoff time.Time) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingPending && b.PaymentStatus == domain.PaymentStateUnpaid && b.CreatedAt.Before(cutoff) {
			b.Status = domain.BookingCancelled
			b.UpdatedAt = time.Now().UTC()
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- payments -----

func (m *Memory) CreatePayment(_ context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.paymentByTx[p.TransactionID]; exists {
		return domain.ErrDuplicateTransaction
	}
	if _, ok := m.bookings[p.BookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.payments[p.ID] = clonePayment(p)
	m.paymentByTx[p.TransactionID] = p.ID
	return nil
}

func (m *Memory) PaymentsByBooking(_ context.Context, bookingID string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ApplyConfirmation(_ context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pid, ok := m.paymentByTx[transactionID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	p := m.payments[pid]
	b, ok := m.bookings[p.BookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}

	if p.Terminal() {
		st := m.paymentState(b)
		st.Duplicate = true
		return st, nil
	}

	now := time.Now().UTC()
	var transitioned domain.BookingStatus

	switch outcome {
	case domain.PaymentCompleted:
		paid := m.completedTotal(b.ID)
		if paid+p.Amount > b.TotalPrice {
			return nil, &domain.OverpaymentError{
				BookingID:  b.ID,
				TotalPrice: b.TotalPrice,
				TotalPaid:  paid,
				Attempted:  p.Amount,
			}
		}
		p.Status = domain.PaymentCompleted
		p.UpdatedAt = now
		b.PaymentStatus = domain.DerivePaymentState(paid+p.Amount, b.TotalPrice)
		if b.PaymentStatus == domain.PaymentStatePaid && b.Status == domain.BookingPending {
			b.Status = domain.BookingConfirmed
			transitioned = domain.BookingConfirmed
		}
	case domain.PaymentFailed:
		p.Status = domain.PaymentFailed
		p.UpdatedAt = now
		if m.attemptCount(b.ID) == 1 && !b.Terminal() {
			b.Status = domain.BookingCancelled
			transitioned = domain.BookingCancelled
		}
	default:
		return nil, domain.ErrPaymentNotFound
	}
	b.UpdatedAt = now

	st := m.paymentState(b)
	st.TransitionedTo = transitioned
	return st, nil
}

func (m *Memory) completedTotal(bookingID string) int64 {
	var total int64
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Status == domain.PaymentCompleted {
			total += p.Amount
		}
	}
	return total
}

func (m *Memory) attemptCount(bookingID string) int {
	n := 0
	for _, p := range m.payments {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n
}

func (m *Memory) paymentState(b *domain.Booking) *domain.BookingPaymentState {
	paid := m.completedTotal(b.ID)
	remaining := b.TotalPrice - paid
	if remaining < 0 {
		remaining = 0
	}
	return &domain.BookingPaymentState{
		BookingID:        b.ID,
		BookingStatus:    b.Status,
		PaymentStatus:    b.PaymentStatus,
		TotalPaid:        paid,
		RemainingBalance: remaining,
	}
}

// ----- clone helpers -----

func cloneProduct(p *domain.Product) *domain.Product {
	c := *p
	c.PricingRules = append([]domain.PricingRule(nil), p.PricingRules...)
	c.SeasonalRules = append([]domain.SeasonalRule(nil), p.SeasonalRules...)
	c.Discounts = append([]domain.Discount(nil), p.Discounts...)
	c.Unavailability = append([]domain.UnavailabilityPeriod(nil), p.Unavailability...)
	return &c
}

func clonePricelist(pl *domain.Pricelist) *domain.Pricelist {
	c := *pl
	c.Rules = append([]domain.PricelistRule(nil), pl.Rules...)
	return &c
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	return &c
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	return &c
}
