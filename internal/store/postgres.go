package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/rental-booking/internal/domain"
)

var activeStatuses = []domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed}

type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres { return &Postgres{db: db} }

var _ Store = (*Postgres)(nil)

func (s *Postgres) Migrate() error {
	return s.db.AutoMigrate(
		&domain.Product{},
		&domain.PricingRule{},
		&domain.SeasonalRule{},
		&domain.Discount{},
		&domain.UnavailabilityPeriod{},
		&domain.Pricelist{},
		&domain.PricelistRule{},
		&domain.Booking{},
		&domain.Payment{},
	)
}

// ----- catalog -----

func (s *Postgres) SaveProduct(ctx context.Context, p *domain.Product) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
}

func (s *Postgres) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).
		Preload("PricingRules").
		Preload("SeasonalRules").
		Preload("Discounts").
		Preload("Unavailability").
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) SetProductStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *Postgres) AddUnavailability(ctx context.Context, period *domain.UnavailabilityPeriod) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", period.ProductID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return s.db.WithContext(ctx).Create(period).Error
}

func (s *Postgres) SavePricelist(ctx context.Context, pl *domain.Pricelist) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(pl).Error
}

func (s *Postgres) PricelistsAt(ctx context.Context, at time.Time) ([]*domain.Pricelist, error) {
	var out []*domain.Pricelist
	err := s.db.WithContext(ctx).
		Preload("Rules").
		Where("validity_start <= ? AND (validity_end IS NULL OR validity_end >= ?)", at, at).
		Order("id").
		Find(&out).Error
	return out, err
}

// ----- bookings -----

// CreateReserved locks the product row for the duration of the check and the
// insert, which serializes concurrent reservation attempts per product. Two
// racing attempts for overlapping windows cannot both observe free capacity.
func (s *Postgres) CreateReserved(ctx context.Context, b *domain.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", b.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			return err
		}

		var blocked int64
		if err := tx.Model(&domain.UnavailabilityPeriod{}).
			Where("product_id = ? AND start_date < ? AND end_date > ?", b.ProductID, b.EndDate, b.StartDate).
			Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return domain.ErrSlotUnavailable
		}

		var reserved int64
		if err := tx.Model(&domain.Booking{}).
			Select("COALESCE(SUM(quantity), 0)").
			Where("product_id = ? AND status IN ? AND start_date < ? AND end_date > ?",
				b.ProductID, activeStatuses, b.EndDate, b.StartDate).
			Scan(&reserved).Error; err != nil {
			return err
		}
		if int(reserved)+b.Quantity > p.Quantity {
			return domain.ErrSlotUnavailable
		}

		return tx.Create(b).Error
	})
}

func (s *Postgres) BookingByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Postgres) UpdateBookingStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	var out *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b domain.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookingNotFound
			}
			return err
		}
		if !domain.CanTransition(b.Status, to) {
			return &domain.InvalidTransitionError{From: b.Status, To: to}
		}
		b.Status = to
		if err := tx.Save(&b).Error; err != nil {
			return err
		}
		out = &b
		return nil
	})
	return out, err
}

func (s *Postgres) BookingsByCustomer(ctx context.Context, customerID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *Postgres) UpcomingBookings(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := s.db.WithContext(ctx).
		Where("status = ? AND start_date >= ? AND start_date < ?", domain.BookingConfirmed, from, to).
		Order("start_date").
		Find(&out).Error
	return out, err
}

func (s *Postgres) ExpireHolds(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	var expired []domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND payment_status = ? AND created_at < ?",
				domain.BookingPending, domain.PaymentStateUnpaid, cutoff).
			Find(&expired).Error; err != nil {
			return err
		}
		for i := range expired {
			expired[i].Status = domain.BookingCancelled
			if err := tx.Save(&expired[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// ----- payments -----

func (s *Postgres) CreatePayment(ctx context.Context, p *domain.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Booking{}).Where("id = ?", p.BookingID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrBookingNotFound
		}
		if p.Status == "" {
			p.Status = domain.PaymentPending
		}
		if err := tx.Create(p).Error; err != nil {
			// relies on TranslateError in the gorm config and the unique
			// index on transaction_id
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrDuplicateTransaction
			}
			return err
		}
		return nil
	})
}

func (s *Postgres) PaymentsByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at").
		Find(&out).Error
	return out, err
}

func (s *Postgres) ApplyConfirmation(ctx context.Context, transactionID string, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error) {
	var state *domain.BookingPaymentState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "transaction_id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPaymentNotFound
			}
			return err
		}
		var b domain.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", p.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookingNotFound
			}
			return err
		}

		if p.Terminal() {
			st, err := buildPaymentState(tx, &b)
			if err != nil {
				return err
			}
			st.Duplicate = true
			state = st
			return nil
		}

		var transitioned domain.BookingStatus
		switch outcome {
		case domain.PaymentCompleted:
			paid, err := completedTotal(tx, b.ID)
			if err != nil {
				return err
			}
			if paid+p.Amount > b.TotalPrice {
				return &domain.OverpaymentError{
					BookingID:  b.ID,
					TotalPrice: b.TotalPrice,
					TotalPaid:  paid,
					Attempted:  p.Amount,
				}
			}
			p.Status = domain.PaymentCompleted
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
			b.PaymentStatus = domain.DerivePaymentState(paid+p.Amount, b.TotalPrice)
			if b.PaymentStatus == domain.PaymentStatePaid && b.Status == domain.BookingPending {
				b.Status = domain.BookingConfirmed
				transitioned = domain.BookingConfirmed
			}
		case domain.PaymentFailed:
			p.Status = domain.PaymentFailed
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
			var attempts int64
			if err := tx.Model(&domain.Payment{}).Where("booking_id = ?", b.ID).Count(&attempts).Error; err != nil {
				return err
			}
			if attempts == 1 && !b.Terminal() {
				b.Status = domain.BookingCancelled
				transitioned = domain.BookingCancelled
			}
		default:
			return domain.ErrPaymentNotFound
		}

		if err := tx.Save(&b).Error; err != nil {
			return err
		}
		st, err := buildPaymentState(tx, &b)
		if err != nil {
			return err
		}
		st.TransitionedTo = transitioned
		state = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func completedTotal(tx *gorm.DB, bookingID string) (int64, error) {
	var total int64
	err := tx.Model(&domain.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("booking_id = ? AND status = ?", bookingID, domain.PaymentCompleted).
		Scan(&total).Error
	return total, err
}

func buildPaymentState(tx *gorm.DB, b *domain.Booking) (*domain.BookingPaymentState, error) {
	paid, err := completedTotal(tx, b.ID)
	if err != nil {
		return nil, err
	}
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
	}, nil
}
