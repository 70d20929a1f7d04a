// Package worker holds the scheduled tasks around the reservation core. They
// are orchestration, not core logic: read-only queries plus the lifecycle's
// own transitions, driven by tickers.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/you/rental-booking/internal/domain"
	"github.com/you/rental-booking/internal/store"
)

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ReminderWorker periodically publishes booking.reminder for confirmed
// bookings starting within the horizon. Each booking is reminded once.
type ReminderWorker struct {
	store    store.BookingStore
	pub      Publisher
	interval time.Duration
	horizon  time.Duration
	now      func() time.Time
	sent     map[string]time.Time // booking id -> start date
}

func NewReminderWorker(st store.BookingStore, pub Publisher, interval, horizon time.Duration) *ReminderWorker {
	return &ReminderWorker{
		store:    st,
		pub:      pub,
		interval: interval,
		horizon:  horizon,
		now:      time.Now,
		sent:     make(map[string]time.Time),
	}
}

func (w *ReminderWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.Tick(ctx); err != nil {
				log.Printf("[reminder] tick failed: %v", err)
			}
		}
	}
}

func (w *ReminderWorker) Tick(ctx context.Context) error {
	now := w.now().UTC()
	upcoming, err := w.store.UpcomingBookings(ctx, now, now.Add(w.horizon))
	if err != nil {
		return err
	}
	for i := range upcoming {
		b := &upcoming[i]
		if _, done := w.sent[b.ID]; done {
			continue
		}
		if err := w.pub.PublishJSON(ctx, domain.RKBookingReminder, domain.BookingReminder{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			ProductID:  b.ProductID,
			Start:      b.StartDate.Unix(),
		}); err != nil {
			log.Printf("[reminder] publish for booking %s failed: %v", b.ID, err)
			continue
		}
		w.sent[b.ID] = b.StartDate
	}
	for id, start := range w.sent {
		if start.Before(now) {
			delete(w.sent, id)
		}
	}
	return nil
}
