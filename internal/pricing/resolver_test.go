package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/rental-booking/internal/domain"
)

func strptr(s string) *string  { return &s }
func i64ptr(v int64) *int64    { return &v }
func timeptr(t time.Time) *time.Time { return &t }

func baseProduct() *domain.Product {
	return &domain.Product{
		ID:        "prod-1",
		Category:  "bikes",
		BasePrice: 60,
		Quantity:  2,
		Status:    domain.ProductApproved,
	}
}

func TestResolve_CustomerSpecificBeatsGeneral(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{
			ID:            "pl-general",
			ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{
				{DurationType: domain.DurationDay, Discount: i64ptr(10)},
			},
		},
		{
			ID:            "pl-vip",
			CustomerID:    strptr("cust-vip"),
			ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{
				{DurationType: domain.DurationDay, Price: i64ptr(50)},
			},
		},
	}

	vip, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-vip", DurationType: domain.DurationDay, At: at, Units: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), vip.UnitPrice)
	assert.Equal(t, "pl-vip", vip.PricelistID)

	other, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-other", DurationType: domain.DurationDay, At: at, Units: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(54), other.UnitPrice)
	assert.Equal(t, "10% off base price", other.AppliedDiscount)
}

func TestResolve_Deterministic(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{ID: "pl-b", ValidityStart: at.AddDate(0, -2, 0), Rules: []domain.PricelistRule{
			{DurationType: domain.DurationDay, Price: i64ptr(40)},
		}},
		{ID: "pl-a", ValidityStart: at.AddDate(0, -2, 0), Rules: []domain.PricelistRule{
			{DurationType: domain.DurationDay, Price: i64ptr(45)},
		}},
	}
	in := QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-1", DurationType: domain.DurationDay, At: at, Units: 1,
	}

	first, err := Resolve(in)
	require.NoError(t, err)

	// Same candidates in reverse input order must pick the same winner.
	in.Pricelists = []*domain.Pricelist{lists[1], lists[0]}
	second, err := Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "pl-a", first.PricelistID) // ID breaks the tie
}

func TestResolve_LatestValidityStartWins(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{ID: "pl-old", ValidityStart: at.AddDate(0, -6, 0), Rules: []domain.PricelistRule{
			{DurationType: domain.DurationDay, Price: i64ptr(30)},
		}},
		{ID: "pl-new", ValidityStart: at.AddDate(0, -1, 0), Rules: []domain.PricelistRule{
			{DurationType: domain.DurationDay, Price: i64ptr(35)},
		}},
	}
	q, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-1", DurationType: domain.DurationDay, At: at, Units: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(35), q.UnitPrice)
}

func TestResolve_CategoryScope(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{ID: "pl-other-cat", ProductCategory: strptr("cars"), ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationDay, Price: i64ptr(10)}}},
		{ID: "pl-bikes", ProductCategory: strptr("bikes"), ValidityStart: at.AddDate(0, -3, 0),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationDay, Price: i64ptr(20)}}},
		{ID: "pl-general", ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationDay, Price: i64ptr(25)}}},
	}
	q, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-1", DurationType: domain.DurationDay, At: at, Units: 1,
	})
	require.NoError(t, err)
	// Category-specific beats general even with an older validity start;
	// the cars list is not a candidate at all.
	assert.Equal(t, int64(20), q.UnitPrice)
}

func TestResolve_ExpiredPricelistIgnored(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{ID: "pl-expired", ValidityStart: at.AddDate(-1, 0, 0), ValidityEnd: timeptr(at.AddDate(0, -1, 0)),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationDay, Price: i64ptr(10)}}},
	}
	q, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-1", DurationType: domain.DurationDay, At: at, Units: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceBase, q.Source)
	assert.Equal(t, int64(60), q.UnitPrice)
}

func TestResolve_WinnerWithoutMatchingRuleFallsBackToProduct(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	lists := []*domain.Pricelist{
		{ID: "pl-vip", CustomerID: strptr("cust-1"), ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationHour, Price: i64ptr(5)}}},
		{ID: "pl-general", ValidityStart: at.AddDate(0, -1, 0),
			Rules: []domain.PricelistRule{{DurationType: domain.DurationDay, Price: i64ptr(20)}}},
	}
	q, err := Resolve(QuoteInput{
		Product: baseProduct(), Pricelists: lists,
		CustomerID: "cust-1", DurationType: domain.DurationDay, At: at, Units: 1,
	})
	require.NoError(t, err)
	// The customer list wins the candidacy but has no day rule; the general
	// list does not get a second chance.
	assert.Equal(t, SourceBase, q.Source)
	assert.Equal(t, int64(60), q.UnitPrice)
}

func TestResolve_ProductFallbacks(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	p := baseProduct()
	p.SeasonalRules = []domain.SeasonalRule{
		{Position: 0, StartDate: at.AddDate(0, 0, -5), EndDate: at.AddDate(0, 0, 5), Price: 80},
	}
	q, err := Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 1})
	require.NoError(t, err)
	assert.Equal(t, SourceSeasonal, q.Source)
	assert.Equal(t, int64(80), q.UnitPrice)

	p = baseProduct()
	p.PricingRules = []domain.PricingRule{
		{Position: 0, DurationType: domain.DurationDay, Price: 45, MinimumDuration: 3},
		{Position: 1, DurationType: domain.DurationDay, Price: 55},
	}
	q, err = Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 2})
	require.NoError(t, err)
	// Two units do not satisfy the 3-unit minimum of the cheaper rule.
	assert.Equal(t, int64(55), q.UnitPrice)

	q, err = Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(45), q.UnitPrice)
}

func TestResolve_ProductDiscounts(t *testing.T) {
	at := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	p := baseProduct()
	p.Discounts = []domain.Discount{
		{Position: 0, Kind: domain.DiscountFixed, Value: 100},
	}
	q, err := Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.UnitPrice, "fixed discount floors at zero")

	p = baseProduct()
	p.Discounts = []domain.Discount{
		{Position: 0, Kind: domain.DiscountPercentage, Value: 25, MinimumDuration: 7},
	}
	q, err = Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(60), q.UnitPrice, "minimum duration not met")

	q, err = Resolve(QuoteInput{Product: p, CustomerID: "c", DurationType: domain.DurationDay, At: at, Units: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(45), q.UnitPrice)
	assert.Equal(t, "25% off", q.AppliedDiscount)
}

func TestResolve_NoApplicablePrice(t *testing.T) {
	p := &domain.Product{ID: "prod-free", Category: "misc", Status: domain.ProductApproved, Quantity: 1}
	_, err := Resolve(QuoteInput{
		Product: p, CustomerID: "c", DurationType: domain.DurationDay,
		At: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), Units: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNoApplicablePrice)
}
