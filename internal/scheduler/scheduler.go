package scheduler

import (
	"context"
	"time"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const defaultInterval = time.Hour

type completer interface {
	CompleteFinishedStays(ctx context.Context) (int, error)
}

type Config struct {
	L        *logger.Logger
	Interval time.Duration
}

// Completer periodically moves confirmed bookings past their checkout to
// completed.
type Completer struct {
	l        *logger.Logger
	target   completer
	interval time.Duration
}

func New(conf Config, target completer) *Completer {
	interval := conf.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Completer{l: conf.L, target: target, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (c *Completer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			c.l.LogInfo("Completion scheduler stopped")

			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Completer) sweep(ctx context.Context) {
	n, err := c.target.CompleteFinishedStays(ctx)
	if err != nil {
		c.l.LogErrorf("Could not complete finished stays: %v", err.Error())

		return
	}

	if n > 0 {
		c.l.LogInfo("%d booking(s) marked completed", n)
	}
}
