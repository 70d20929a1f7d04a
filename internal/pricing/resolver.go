// Package pricing resolves the unit price applicable to a product, customer
// and duration type from the pricelist catalog. Resolution is pure: it never
// touches storage and identical inputs always produce identical quotes.
package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/you/rental-booking/internal/domain"
)

// Price sources reported on a Quote.
const (
	SourcePricelist    = "pricelist"
	SourceSeasonal     = "seasonal"
	SourceDurationRule = "duration_rule"
	SourceBase         = "base"
)

type QuoteInput struct {
	Product      *domain.Product
	Pricelists   []*domain.Pricelist
	CustomerID   string
	DurationType domain.DurationType
	At           time.Time
	Units        int // requested duration in units of DurationType
}

type Quote struct {
	UnitPrice       int64  `json:"unit_price"`
	AppliedDiscount string `json:"applied_discount,omitempty"`
	Source          string `json:"source"`
	PricelistID     string `json:"pricelist_id,omitempty"`
}

// Resolve picks the winning pricelist rule, or falls back to the product's own
// pricing. Candidate pricelists are ordered customer-specific first, then
// category-specific, then latest validity start, then ID: a total order, so no
// ambiguous pair of lists can ever swap winners between calls.
func Resolve(in QuoteInput) (*Quote, error) {
	p := in.Product

	candidates := make([]*domain.Pricelist, 0, len(in.Pricelists))
	for _, pl := range in.Pricelists {
		if pl.ValidAt(in.At) && pl.Covers(in.CustomerID, p.Category) {
			candidates = append(candidates, pl)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CustomerSpecific() != b.CustomerSpecific() {
			return a.CustomerSpecific()
		}
		if a.CategorySpecific() != b.CategorySpecific() {
			return a.CategorySpecific()
		}
		if !a.ValidityStart.Equal(b.ValidityStart) {
			return a.ValidityStart.After(b.ValidityStart)
		}
		return a.ID < b.ID
	})

	if len(candidates) > 0 {
		winner := candidates[0]
		if q := resolveFromPricelist(winner, p, in); q != nil {
			return q, nil
		}
		// The winning list has no rule for this duration type; the other
		// candidates do not get a second chance, the product pricing does.
	}

	return resolveFromProduct(p, in)
}

func resolveFromPricelist(pl *domain.Pricelist, p *domain.Product, in QuoteInput) *Quote {
	rules := orderedPricelistRules(pl)
	for i := range rules {
		r := &rules[i]
		if !r.Matches(in.DurationType, in.At) {
			continue
		}
		if r.Price != nil {
			return &Quote{UnitPrice: *r.Price, Source: SourcePricelist, PricelistID: pl.ID}
		}
		if r.Discount != nil {
			price := p.BasePrice * (100 - *r.Discount) / 100
			if price < 0 {
				price = 0
			}
			return &Quote{
				UnitPrice:       price,
				AppliedDiscount: fmt.Sprintf("%d%% off base price", *r.Discount),
				Source:          SourcePricelist,
				PricelistID:     pl.ID,
			}
		}
		// A rule with neither price nor discount is catalog noise; skip it.
	}
	return nil
}

func resolveFromProduct(p *domain.Product, in QuoteInput) (*Quote, error) {
	q, ok := productPrice(p, in)
	if !ok {
		return nil, domain.ErrNoApplicablePrice
	}
	applyProductDiscount(p, in, q)
	return q, nil
}

func productPrice(p *domain.Product, in QuoteInput) (*Quote, bool) {
	seasonal := append([]domain.SeasonalRule(nil), p.SeasonalRules...)
	sort.SliceStable(seasonal, func(i, j int) bool { return seasonal[i].Position < seasonal[j].Position })
	for i := range seasonal {
		if seasonal[i].Brackets(in.At) {
			return &Quote{UnitPrice: seasonal[i].Price, Source: SourceSeasonal}, true
		}
	}

	rules := append([]domain.PricingRule(nil), p.PricingRules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })
	for i := range rules {
		r := &rules[i]
		if r.DurationType == in.DurationType && in.Units >= r.MinimumDuration {
			return &Quote{UnitPrice: r.Price, Source: SourceDurationRule}, true
		}
	}

	if p.BasePrice > 0 {
		return &Quote{UnitPrice: p.BasePrice, Source: SourceBase}, true
	}
	return nil, false
}

// applyProductDiscount applies the first applicable product-level discount.
// Pricelist-resolved prices never reach here: an explicit list price already
// is the negotiated price.
func applyProductDiscount(p *domain.Product, in QuoteInput, q *Quote) {
	discounts := append([]domain.Discount(nil), p.Discounts...)
	sort.SliceStable(discounts, func(i, j int) bool { return discounts[i].Position < discounts[j].Position })
	for i := range discounts {
		d := &discounts[i]
		if !d.Applicable(in.At, in.Units) {
			continue
		}
		switch d.Kind {
		case domain.DiscountPercentage:
			q.UnitPrice = q.UnitPrice * (100 - d.Value) / 100
			q.AppliedDiscount = fmt.Sprintf("%d%% off", d.Value)
		case domain.DiscountFixed:
			q.UnitPrice -= d.Value
			q.AppliedDiscount = fmt.Sprintf("%d off", d.Value)
		default:
			continue
		}
		if q.UnitPrice < 0 {
			q.UnitPrice = 0
		}
		return
	}
}

func orderedPricelistRules(pl *domain.Pricelist) []domain.PricelistRule {
	rules := append([]domain.PricelistRule(nil), pl.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })
	return rules
}
