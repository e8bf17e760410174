package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const (
	standardLabel            = "Standard rate"
	holidayLabel             = "Holiday rate"
	defaultHolidayMultiplier = 1.35
	hourlyShare              = 0.25

	// Stored rule prices outside [minMultiplier, maxMultiplier] are fixed nightly amounts.
	minMultiplier = 0.5
	maxMultiplier = 10
)

type storage interface {
	GetRateRules(ctx context.Context) ([]booking.RateRule, error)
	GetHolidays(ctx context.Context) ([]booking.Holiday, error)
}

type Pricer struct {
	l        *logger.Logger
	storage  storage
	mu       sync.RWMutex
	resolver *Resolver
}

func New(l *logger.Logger, storage storage) *Pricer {
	//nolint:exhaustruct
	return &Pricer{
		l:        l,
		storage:  storage,
		resolver: NewResolver(nil, nil),
	}
}

// Load fetches rate rules and the holiday calendar and swaps them in.
func (p *Pricer) Load(ctx context.Context) error {
	rules, err := p.storage.GetRateRules(ctx)
	if err != nil {
		return fmt.Errorf("get rate rules from storage: %w", err)
	}

	holidays, err := p.storage.GetHolidays(ctx)
	if err != nil {
		return fmt.Errorf("get holidays from storage: %w", err)
	}

	resolver := NewResolver(rules, holidays)

	p.mu.Lock()
	p.resolver = resolver
	p.mu.Unlock()

	p.l.LogInfo("Pricing loaded %d rate rules and %d holidays", len(rules), len(holidays))

	return nil
}

func (p *Pricer) Resolver() *Resolver {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.resolver
}

// Mode reports how a rule's price is applied. Rules without an explicit mode
// keep the legacy magnitude heuristic.
func Mode(rule *booking.RateRule) booking.PriceMode {
	if rule.PriceMode != "" {
		return rule.PriceMode
	}

	if rule.Price < minMultiplier || rule.Price > maxMultiplier {
		return booking.PriceModeFixed
	}

	return booking.PriceModeMultiplier
}

func round(d decimal.Decimal) float64 {
	return d.Round(0).InexactFloat64()
}

func ruleRate(rule *booking.RateRule, base float64) float64 {
	price := decimal.NewFromFloat(rule.Price)

	if Mode(rule) == booking.PriceModeFixed {
		return round(price)
	}

	return round(decimal.NewFromFloat(base).Mul(price))
}

func ruleLabel(rule *booking.RateRule) string {
	if rule.Description != "" {
		return rule.Description
	}

	return fmt.Sprintf("%s rate", rule.Kind)
}

func hourlyRate(room *booking.Room) float64 {
	if room.HourlyRate > 0 {
		return room.HourlyRate
	}

	return round(decimal.NewFromFloat(room.BasePrice()).Mul(decimal.NewFromFloat(hourlyShare)))
}

func (p *Pricer) night(resolver *Resolver, room *booking.Room, day time.Time) booking.NightlyRate {
	base := room.BasePrice()
	night := booking.NightlyRate{
		Date:  booking.FormatDate(day),
		Label: standardLabel,
		Rate:  base,
	}

	res := resolver.Resolve(room.RoomTypeID, day)

	switch {
	case res.Rule != nil:
		night.Rate = ruleRate(res.Rule, base)
		night.Label = ruleLabel(res.Rule)
	case res.IsHoliday:
		multiplier := res.Holiday.Multiplier
		if multiplier <= 0 {
			multiplier = defaultHolidayMultiplier
		}

		night.Rate = round(decimal.NewFromFloat(base).Mul(decimal.NewFromFloat(multiplier)))

		night.Label = holidayLabel
		if res.Holiday.Name != "" {
			night.Label = res.Holiday.Name
		}
	}

	return night
}

// Price quotes every night of the half-open stay [checkIn, checkOut).
func (p *Pricer) Price(room *booking.Room, checkIn, checkOut time.Time) booking.Quote {
	quote := booking.Quote{
		Total:      room.BasePrice(),
		Breakdown:  []booking.NightlyRate{},
		HourlyRate: hourlyRate(room),
	}

	if checkIn.IsZero() || checkOut.IsZero() {
		return quote
	}

	from := booking.Day(checkIn)
	to := booking.Day(checkOut)

	if from.Equal(to) {
		return quote
	}

	resolver := p.Resolver()
	total := decimal.Zero

	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		night := p.night(resolver, room, d)
		quote.Breakdown = append(quote.Breakdown, night)
		total = total.Add(decimal.NewFromFloat(night.Rate))
	}

	quote.Total = total.InexactFloat64()

	return quote
}
