// Package reservation is the narrow surface the transport layer embeds: one
// call to reserve, one to apply a gateway confirmation, one to quote a price.
// Everything else (routing, auth, rendering) lives with the caller.
package reservation

import (
	"context"
	"time"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/pricing"
	"github.com/you/rental-booking/internal/service"
	"github.com/you/rental-booking/internal/store"
)

type Core struct {
	Bookings *service.BookingSvc
	Ledger   *service.LedgerSvc
	Catalog  *service.CatalogSvc
}

func New(st store.Store, pub service.Publisher) *Core {
	return &Core{
		Bookings: service.NewBookingSvc(st, pub),
		Ledger:   service.NewLedgerSvc(st, pub),
		Catalog:  service.NewCatalogSvc(st),
	}
}

type ReservationRequest struct {
	CustomerID   string              `json:"customer_id"`
	ProductID    string              `json:"product_id"`
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	Quantity     int                 `json:"quantity,omitempty"`
	DurationType domain.DurationType `json:"duration_type,omitempty"`
}

type ReservationResponse struct {
	BookingID  string               `json:"booking_id"`
	Status     domain.BookingStatus `json:"status"`
	UnitPrice  int64                `json:"unit_price"`
	TotalPrice int64                `json:"total_price"`
}

func (c *Core) Reserve(ctx context.Context, req ReservationRequest) (*ReservationResponse, error) {
	b, err := c.Bookings.Reserve(ctx, service.ReserveInput{
		CustomerID:   req.CustomerID,
		ProductID:    req.ProductID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Quantity:     req.Quantity,
		DurationType: req.DurationType,
	})
	if err != nil {
		return nil, err
	}
	return &ReservationResponse{
		BookingID:  b.ID,
		Status:     b.Status,
		UnitPrice:  b.UnitPrice,
		TotalPrice: b.TotalPrice,
	}, nil
}

type ConfirmationRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Outcome       string `json:"outcome"` // completed | failed
}

func (c *Core) ApplyConfirmation(ctx context.Context, req ConfirmationRequest) (*domain.BookingPaymentState, error) {
	return c.Ledger.ApplyConfirmation(ctx, req.TransactionID, req.Amount, domain.PaymentStatus(req.Outcome))
}

type QuoteRequest struct {
	ProductID    string              `json:"product_id"`
	CustomerID   string              `json:"customer_id,omitempty"`
	DurationType domain.DurationType `json:"duration_type"`
	At           time.Time           `json:"at,omitempty"`
	Units        int                 `json:"units,omitempty"`
}

func (c *Core) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	return c.Catalog.Quote(ctx, service.QuoteRequest{
		ProductID:    req.ProductID,
		CustomerID:   req.CustomerID,
		DurationType: req.DurationType,
		At:           req.At,
		Units:        req.Units,
	})
}
