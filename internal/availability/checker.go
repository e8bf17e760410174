package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const DefaultSoftHoldGrace = 15 * time.Minute

type storage interface {
	QueryBookingsForRoom(ctx context.Context, q booking.BookingQuery) ([]*booking.Booking, error)
}

type Config struct {
	L             *logger.Logger
	SoftHoldGrace time.Duration
	FailOpen      bool
	Now           func() time.Time
}

type Checker struct {
	l        *logger.Logger
	storage  storage
	grace    time.Duration
	failOpen bool
	now      func() time.Time
}

func New(conf Config, storage storage) *Checker {
	grace := conf.SoftHoldGrace
	if grace <= 0 {
		grace = DefaultSoftHoldGrace
	}

	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Checker{
		l:        conf.L,
		storage:  storage,
		grace:    grace,
		failOpen: conf.FailOpen,
		now:      now,
	}
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}

// Blocks reports whether b holds its room at now. Unpaid holds only count
// while they are younger than grace.
func Blocks(b *booking.Booking, now time.Time, grace time.Duration) bool {
	switch b.Status {
	case booking.StatusConfirmed, booking.StatusCheckedIn:
		return true
	case booking.StatusPendingPayment:
		return now.Sub(b.CreatedAt) < grace
	case booking.StatusModified:
		if b.PaidAt != nil {
			return true
		}

		return now.Sub(b.UpdatedAt) < grace
	case booking.StatusCancelled, booking.StatusCheckedOut, booking.StatusCompleted:
		return false
	default:
		return false
	}
}

func (c *Checker) IsAvailable(ctx context.Context, q booking.BookingQuery) (bool, error) {
	from := booking.Day(q.From)
	to := booking.Day(q.To)

	candidates, err := c.storage.QueryBookingsForRoom(ctx, q)
	if err != nil {
		if c.failOpen {
			c.l.LogErrorf("Availability lookup for room %v failed, reporting available: %v", q.RoomID, err.Error())

			return true, nil
		}

		return false, fmt.Errorf("query bookings for room %v: %w", q.RoomID, err)
	}

	now := c.now()

	for _, b := range candidates {
		if b.RoomID != q.RoomID || (q.ExcludeID != "" && b.ID == q.ExcludeID) {
			continue
		}

		if !Blocks(b, now, c.grace) {
			continue
		}

		checkIn, err := booking.ParseDate(b.CheckIn)
		if err != nil {
			c.l.LogErrorf("Skipping booking %v with unreadable check_in: %v", b.ID, err.Error())

			continue
		}

		checkOut, err := booking.ParseDate(b.CheckOut)
		if err != nil {
			c.l.LogErrorf("Skipping booking %v with unreadable check_out: %v", b.ID, err.Error())

			continue
		}

		if Overlaps(from, to, checkIn, checkOut) {
			return false, nil
		}
	}

	return true, nil
}
