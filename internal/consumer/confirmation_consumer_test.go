package consumer

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/rental-booking/internal/domain"
)

type fakeLedger struct {
	calls []ledgerCall
	state *domain.BookingPaymentState
	err   error
}

type ledgerCall struct {
	TransactionID string
	Amount        int64
	Outcome       domain.PaymentStatus
}

func (f *fakeLedger) ApplyConfirmation(_ context.Context, transactionID string, amount int64, outcome domain.PaymentStatus) (*domain.BookingPaymentState, error) {
	f.calls = append(f.calls, ledgerCall{transactionID, amount, outcome})
	if f.err != nil {
		return nil, f.err
	}
	if f.state != nil {
		return f.state, nil
	}
	return &domain.BookingPaymentState{BookingID: "b1"}, nil
}

func confirmation(tx, outcome string, amount int64) []byte {
	evt := domain.GatewayConfirmation{Event: "payment." + outcome, Version: 1}
	evt.Data.TransactionID = tx
	evt.Data.BookingID = "b1"
	evt.Data.Amount = amount
	evt.Data.Outcome = outcome
	b, _ := json.Marshal(evt)
	return b
}

func TestHandleDelivery_Completed(t *testing.T) {
	ledger := &fakeLedger{}
	c := NewConfirmationConsumer(ledger, nil)

	requeue, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       confirmation("tx-1", "completed", 100),
	})
	require.NoError(t, err)
	assert.False(t, requeue)
	require.Len(t, ledger.calls, 1)
	assert.Equal(t, ledgerCall{"tx-1", 100, domain.PaymentCompleted}, ledger.calls[0])
}

func TestHandleDelivery_FailedOutcome(t *testing.T) {
	ledger := &fakeLedger{}
	c := NewConfirmationConsumer(ledger, nil)

	// The failed routing key forces the failed outcome.
	_, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayFailed,
		Body:       confirmation("tx-1", "completed", 100),
	})
	require.NoError(t, err)

	// So does the payload's own outcome under the confirmed key.
	_, err = c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       confirmation("tx-2", "failed", 100),
	})
	require.NoError(t, err)

	require.Len(t, ledger.calls, 2)
	assert.Equal(t, domain.PaymentFailed, ledger.calls[0].Outcome)
	assert.Equal(t, domain.PaymentFailed, ledger.calls[1].Outcome)
}

func TestHandleDelivery_IgnoresForeignKeys(t *testing.T) {
	ledger := &fakeLedger{}
	c := NewConfirmationConsumer(ledger, nil)

	requeue, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: "payment.refund.requested",
		Body:       confirmation("tx-1", "completed", 100),
	})
	require.NoError(t, err)
	assert.False(t, requeue)
	assert.Empty(t, ledger.calls)
}

func TestHandleDelivery_MalformedDropped(t *testing.T) {
	ledger := &fakeLedger{}
	c := NewConfirmationConsumer(ledger, nil)

	requeue, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       []byte("{not json"),
	})
	require.NoError(t, err)
	assert.False(t, requeue, "poison messages never requeue")

	requeue, err = c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       confirmation("", "completed", 100),
	})
	require.NoError(t, err)
	assert.False(t, requeue, "missing transaction id is unactionable")
	assert.Empty(t, ledger.calls)
}

func TestHandleDelivery_UnknownTransactionRequeues(t *testing.T) {
	ledger := &fakeLedger{err: domain.ErrPaymentNotFound}
	c := NewConfirmationConsumer(ledger, nil)

	requeue, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       confirmation("tx-early", "completed", 100),
	})
	require.Error(t, err)
	assert.True(t, requeue, "confirmation may have outrun the attempt record")
}

func TestHandleDelivery_OverpaymentDropped(t *testing.T) {
	ledger := &fakeLedger{err: &domain.OverpaymentError{BookingID: "b1", TotalPrice: 100, TotalPaid: 100, Attempted: 20}}
	c := NewConfirmationConsumer(ledger, nil)

	requeue, err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: domain.RKGatewayConfirmed,
		Body:       confirmation("tx-over", "completed", 20),
	})
	require.NoError(t, err)
	assert.False(t, requeue, "overpayment is final, redelivery cannot fix it")
}
