package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGDSN string `envconfig:"PG_DSN" required:"true"`

	// RabbitMQ
	RabbitURL         string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange   string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	GatewayExchange   string `envconfig:"GATEWAY_EXCHANGE" default:"payment.exchange"`
	ConfirmationQueue string `envconfig:"CONFIRMATION_QUEUE" default:"reservation.confirmation.q"`

	// Workers
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"1h"`
	ReminderHorizon  time.Duration `envconfig:"REMINDER_HORIZON" default:"24h"`
	ExpiryInterval   time.Duration `envconfig:"EXPIRY_INTERVAL" default:"10m"`
	HoldTTL          time.Duration `envconfig:"HOLD_TTL" default:"24h"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
