package domain

import "time"

// Pricelist is a customer- and/or category-scoped set of pricing rules with a
// validity window. A nil CustomerID means the list is general; a nil
// ProductCategory means it covers every category.
type Pricelist struct {
	ID              string  `gorm:"primaryKey"`
	Name            string
	CustomerID      *string `gorm:"index"`
	ProductCategory *string `gorm:"index"`
	ValidityStart   time.Time
	ValidityEnd     *time.Time
	Rules           []PricelistRule `gorm:"foreignKey:PricelistID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidAt reports whether the list's validity window covers at.
func (p *Pricelist) ValidAt(at time.Time) bool {
	if at.Before(p.ValidityStart) {
		return false
	}
	return p.ValidityEnd == nil || !at.After(*p.ValidityEnd)
}

// Covers reports whether the list applies to the given customer and category.
func (p *Pricelist) Covers(customerID, category string) bool {
	if p.CustomerID != nil && *p.CustomerID != customerID {
		return false
	}
	if p.ProductCategory != nil && *p.ProductCategory != category {
		return false
	}
	return true
}

// CustomerSpecific and CategorySpecific drive candidate ordering during
// resolution: narrower scope wins.
func (p *Pricelist) CustomerSpecific() bool { return p.CustomerID != nil }
func (p *Pricelist) CategorySpecific() bool { return p.ProductCategory != nil }

// PricelistRule carries exactly one of Price or Discount. Price is an absolute
// unit price; Discount is a percentage off the product's base price.
type PricelistRule struct {
	ID           uint   `gorm:"primaryKey"`
	PricelistID  string `gorm:"index"`
	Position     int
	DurationType DurationType
	Price        *int64
	Discount     *int64
	StartDate    *time.Time
	EndDate      *time.Time
}

// Matches reports whether the rule applies to the duration type at the given
// instant; the rule's own optional window must bracket at.
func (r *PricelistRule) Matches(dt DurationType, at time.Time) bool {
	if r.DurationType != dt {
		return false
	}
	if r.StartDate != nil && at.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && !at.Before(*r.EndDate) {
		return false
	}
	return true
}
