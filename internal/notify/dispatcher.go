package notify

import (
	"context"
	"sync"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

// Listener reacts to a stored booking event. Errors are logged by the
// dispatcher and never reach the caller of the booking operation.
type Listener interface {
	Name() string
	Handle(ctx context.Context, event booking.Event, b *booking.Booking) error
}

type Dispatcher struct {
	l         *logger.Logger
	mu        sync.RWMutex
	listeners []Listener
	wg        sync.WaitGroup
}

func NewDispatcher(l *logger.Logger) *Dispatcher {
	//nolint:exhaustruct
	return &Dispatcher{l: l}
}

func (d *Dispatcher) Subscribe(listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = append(d.listeners, listener)
}

// Publish hands the event to every listener on its own goroutine and returns
// immediately.
func (d *Dispatcher) Publish(ctx context.Context, event booking.Event, b *booking.Booking) {
	d.mu.RLock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)

	for _, listener := range listeners {
		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			defer func() {
				if p := recover(); p != nil {
					d.l.LogErrorf("Listener %v panicked on event %v: %v", listener.Name(), event.ID, p)
				}
			}()

			if err := listener.Handle(ctx, event, b.Clone()); err != nil {
				d.l.LogErrorf("Listener %v failed on event %v of booking %v: %v", listener.Name(), event.ID, event.BookingID, err.Error())
			}
		}()
	}
}

// Wait blocks until every listener started so far has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
