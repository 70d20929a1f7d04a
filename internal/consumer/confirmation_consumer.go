// Package consumer is the message boundary through which the payment gateway
// collaborator reaches the core: one queue of confirmation events, applied
// idempotently. The core owns no polling or webhook listening beyond this.
package consumer

import (
	"context"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/you/rental-booking/internal/domain"
)

// Ledger is the single entry point confirmations are applied through.
type Ledger interface {
	ApplyConfirmation(ctx context.Context, transactionID string, amount int64, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error)
}

type DeliverySource interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type ConfirmationConsumer struct {
	ledger Ledger
	src    DeliverySource
}

func NewConfirmationConsumer(ledger Ledger, src DeliverySource) *ConfirmationConsumer {
	return &ConfirmationConsumer{ledger: ledger, src: src}
}

// Run blocks until the context is cancelled or the delivery channel closes.
func (c *ConfirmationConsumer) Run(ctx context.Context) error {
	msgs, err := c.src.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			requeue, err := c.handleDelivery(ctx, d)
			if err != nil {
				log.Printf("[confirmation] handle key=%s err=%v requeue=%v", d.RoutingKey, err, requeue)
				_ = d.Nack(false, requeue)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleDelivery reports whether a failed delivery is worth redelivering.
// Malformed payloads and permanent rejections are dropped after logging so
// they cannot wedge the queue.
func (c *ConfirmationConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) (bool, error) {
	switch d.RoutingKey {
	case domain.RKGatewayConfirmed, domain.RKGatewayFailed:
	default:
		return false, nil
	}

	evt, err := domain.DecodeEvent[domain.GatewayConfirmation](d.Body)
	if err != nil {
		log.Printf("[confirmation] dropping malformed payload: %v", err)
		return false, nil
	}
	if evt.Data.TransactionID == "" {
		log.Printf("[confirmation] dropping event without transaction id")
		return false, nil
	}

	outcome := domain.PaymentCompleted
	if d.RoutingKey == domain.RKGatewayFailed || evt.Data.Outcome == string(domain.PaymentFailed) {
		outcome = domain.PaymentFailed
	}

	st, err := c.ledger.ApplyConfirmation(ctx, evt.Data.TransactionID, evt.Data.Amount, outcome)
	if err != nil {
		// An unknown transaction usually means the confirmation outran the
		// attempt record; redeliver. Overpayment and bad input are final.
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return true, err
		}
		if domain.IsOverpayment(err) != nil || domain.IsValidationError(err) != nil {
			log.Printf("[confirmation] rejected tx %s: %v", evt.Data.TransactionID, err)
			return false, nil
		}
		return true, err
	}
	if st.Duplicate {
		log.Printf("[confirmation] duplicate tx %s absorbed", evt.Data.TransactionID)
	}
	return false, nil
}
