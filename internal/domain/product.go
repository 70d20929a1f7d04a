package domain

import "time"

type ProductStatus string

const (
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
)

type DurationType string

const (
	DurationHour  DurationType = "hour"
	DurationDay   DurationType = "day"
	DurationWeek  DurationType = "week"
	DurationMonth DurationType = "month"
)

// Product is the catalog read model. The catalog collaborator owns mutation;
// the reservation core only reads it (and its children) during quoting and
// availability checks.
type Product struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index"`
	Name           string
	Category       string `gorm:"index"`
	BasePrice      int64  // minor units
	Quantity       int    // interchangeable units
	Status         ProductStatus
	PricingRules   []PricingRule          `gorm:"foreignKey:ProductID"`
	SeasonalRules  []SeasonalRule         `gorm:"foreignKey:ProductID"`
	Discounts      []Discount             `gorm:"foreignKey:ProductID"`
	Unavailability []UnavailabilityPeriod `gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Product) Reservable() bool { return p.Status == ProductApproved }

type PricingRule struct {
	ID              uint   `gorm:"primaryKey"`
	ProductID       string `gorm:"index"`
	Position        int
	DurationType    DurationType
	Price           int64
	MinimumDuration int // in units of DurationType; 0 = no minimum
}

type SeasonalRule struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"index"`
	Position  int
	StartDate time.Time
	EndDate   time.Time
	Price     int64
}

func (s *SeasonalRule) Brackets(at time.Time) bool {
	return !at.Before(s.StartDate) && at.Before(s.EndDate)
}

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type Discount struct {
	ID              uint   `gorm:"primaryKey"`
	ProductID       string `gorm:"index"`
	Position        int
	Kind            DiscountKind
	Value           int64 // percent for percentage, minor units for fixed
	StartDate       *time.Time
	EndDate         *time.Time
	MinimumDuration int
}

// Applicable reports whether the discount's optional date window brackets at
// and its minimum duration is satisfied.
func (d *Discount) Applicable(at time.Time, units int) bool {
	if d.StartDate != nil && at.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && !at.Before(*d.EndDate) {
		return false
	}
	return units >= d.MinimumDuration
}

type UnavailabilityPeriod struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID string `gorm:"index"`
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// Overlaps uses the half-open interval predicate: adjacent periods do not
// conflict.
func (u *UnavailabilityPeriod) Overlaps(start, end time.Time) bool {
	return u.StartDate.Before(end) && start.Before(u.EndDate)
}

// DurationUnits converts a half-open window into billable units of the given
// granularity, rounding partial units up.
func DurationUnits(start, end time.Time, dt DurationType) int {
	var unit time.Duration
	switch dt {
	case DurationHour:
		unit = time.Hour
	case DurationWeek:
		unit = 7 * 24 * time.Hour
	case DurationMonth:
		unit = 30 * 24 * time.Hour
	default:
		unit = 24 * time.Hour
	}
	span := end.Sub(start)
	if span <= 0 {
		return 0
	}
	units := int(span / unit)
	if span%unit != 0 {
		units++
	}
	return units
}
