package worker

import (
	"context"
	"log"
	"time"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/store"
)

// ExpiryWorker cancels pending bookings whose payment never arrived within
// the hold TTL, releasing their capacity.
type ExpiryWorker struct {
	store    store.BookingStore
	pub      Publisher
	interval time.Duration
	holdTTL  time.Duration
	now      func() time.Time
}

func NewExpiryWorker(st store.BookingStore, pub Publisher, interval, holdTTL time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		store:    st,
		pub:      pub,
		interval: interval,
		holdTTL:  holdTTL,
		now:      time.Now,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.Tick(ctx); err != nil {
				log.Printf("[expiry] tick failed: %v", err)
			}
		}
	}
}

func (w *ExpiryWorker) Tick(ctx context.Context) error {
	cutoff := w.now().UTC().Add(-w.holdTTL)
	expired, err := w.store.ExpireHolds(ctx, cutoff)
	if err != nil {
		return err
	}
	for i := range expired {
		if err := w.pub.PublishJSON(ctx, domain.RKBookingCancelled, domain.BookingSimple{BookingID: expired[i].ID}); err != nil {
			log.Printf("[expiry] publish for booking %s failed: %v", expired[i].ID, err)
		}
	}
	if len(expired) > 0 {
		log.Printf("[expiry] cancelled %d expired holds", len(expired))
	}
	return nil
}
