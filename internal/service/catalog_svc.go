package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/pricing"
	"github.com/you/rental-booking/internal/store"
)

// CatalogSvc maintains the product/pricelist read model the catalog
// collaborator feeds, and serves price quotes off it.
type CatalogSvc struct {
	store store.Store
	now   func() time.Time
}

func NewCatalogSvc(st store.Store) *CatalogSvc {
	return &CatalogSvc{store: st, now: time.Now}
}

func (s *CatalogSvc) SaveProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.ProductPending
	}
	ve := domain.NewValidationError()
	if p.Quantity <= 0 {
		ve.Add("quantity", "quantity must be positive")
	}
	if !ve.Empty() {
		return nil, ve
	}
	if err := s.store.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogSvc) ApproveProduct(ctx context.Context, id string) error {
	return s.store.SetProductStatus(ctx, id, domain.ProductApproved)
}

func (s *CatalogSvc) RejectProduct(ctx context.Context, id string) error {
	return s.store.SetProductStatus(ctx, id, domain.ProductRejected)
}

func (s *CatalogSvc) AddUnavailability(ctx context.Context, productID string, start, end time.Time, reason string) error {
	ve := domain.NewValidationError()
	if productID == "" {
		ve.Add("productId", "provide productId")
	}
	if !start.Before(end) {
		ve.Add("startDate", "startDate must be before endDate")
	}
	if !ve.Empty() {
		return ve
	}
	return s.store.AddUnavailability(ctx, &domain.UnavailabilityPeriod{
		ProductID: productID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	})
}

func (s *CatalogSvc) SavePricelist(ctx context.Context, pl *domain.Pricelist) (*domain.Pricelist, error) {
	if pl.ID == "" {
		pl.ID = uuid.NewString()
	}
	if err := s.store.SavePricelist(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *CatalogSvc) Product(ctx context.Context, id string) (*domain.Product, error) {
	return s.store.ProductByID(ctx, id)
}

type QuoteRequest struct {
	ProductID    string
	CustomerID   string
	DurationType domain.DurationType
	At           time.Time
	Units        int
}

// Quote is read-only and lock-free: it loads the catalog state valid at the
// requested instant and delegates to the pure resolver.
func (s *CatalogSvc) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	if req.At.IsZero() {
		req.At = s.now().UTC()
	}
	if req.DurationType == "" {
		req.DurationType = domain.DurationDay
	}
	if req.Units < 1 {
		req.Units = 1
	}
	product, err := s.store.ProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	pricelists, err := s.store.PricelistsAt(ctx, req.At)
	if err != nil {
		return nil, err
	}
	return pricing.Resolve(pricing.QuoteInput{
		Product:      product,
		Pricelists:   pricelists,
		CustomerID:   req.CustomerID,
		DurationType: req.DurationType,
		At:           req.At,
		Units:        req.Units,
	})
}
