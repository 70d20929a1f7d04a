package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/you/rental-booking/internal/consumer"
	"github.com/you/rental-booking/internal/service"
	"github.com/you/rental-booking/internal/store"
	"github.com/you/rental-booking/internal/worker"
	"github.com/you/rental-booking/pkg/config"
	"github.com/you/rental-booking/pkg/db"
	"github.com/you/rental-booking/pkg/mq"
	"github.com/you/rental-booking/pkg/obs"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	_ = godotenv.Load()
	cfg := must(config.Load())

	shutdownTracer := obs.InitTracer("rental-reservation")

	// DB
	gdb := db.Open(cfg.PGDSN)
	st := store.NewPostgres(gdb)
	must(0, st.Migrate())

	// Publisher for booking/payment events
	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange))
	defer pub.Close()

	// The transport layer embeds reservation.Core for the synchronous calls;
	// this daemon runs the asynchronous side: confirmations and workers.
	ledgerSvc := service.NewLedgerSvc(st, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consumer for gateway payment confirmations
	gatewayCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.GatewayExchange, cfg.ConfirmationQueue,
		[]string{"payment.confirmed", "payment.failed"},
		mq.ConsumerOptions{Prefetch: 8},
	))
	defer gatewayCons.Close()
	cc := consumer.NewConfirmationConsumer(ledgerSvc, gatewayCons)
	go func() {
		if err := cc.Run(ctx); err != nil {
			log.Printf("[reservationd] confirmation consumer stopped: %v", err)
		}
	}()
	log.Println("[reservationd] confirmation consumer started")

	// Workers
	go worker.NewReminderWorker(st, pub, cfg.ReminderInterval, cfg.ReminderHorizon).Run(ctx)
	go worker.NewExpiryWorker(st, pub, cfg.ExpiryInterval, cfg.HoldTTL).Run(ctx)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	if err := shutdownTracer(context.Background()); err != nil {
		log.Printf("[reservationd] tracer shutdown: %v", err)
	}
	log.Println("[reservationd] stopped")
}
