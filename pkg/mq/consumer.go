package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerOptions tune the queue a Consumer reads from. Zero values give a
// durable queue with a small prefetch and no dead-lettering.
type ConsumerOptions struct {
	Prefetch int
	UseDLX   bool
	DLXName  string
	DLXQueue string
}

// Consumer binds one durable queue to a topic exchange for a set of routing
// keys and hands the deliveries to the caller; ack/nack stays with the caller.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewConsumer(url, exchange, queue string, keys []string, opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	args := amqp.Table{}
	if opts.UseDLX {
		args["x-dead-letter-exchange"] = opts.DLXName
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, args)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			cleanup()
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.UseDLX {
		if err := ch.ExchangeDeclare(opts.DLXName, "topic", true, false, false, false, nil); err != nil {
			cleanup()
			return nil, fmt.Errorf("declare dlx: %w", err)
		}
		if _, err := ch.QueueDeclare(opts.DLXQueue, true, false, false, false, nil); err != nil {
			cleanup()
			return nil, fmt.Errorf("declare dlq: %w", err)
		}
		if err := ch.QueueBind(opts.DLXQueue, "#", opts.DLXName, false, nil); err != nil {
			cleanup()
			return nil, fmt.Errorf("bind dlq: %w", err)
		}
	}

	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 8
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		cleanup()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
