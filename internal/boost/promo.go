package boost

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type storage interface {
	GetPromotions(ctx context.Context) ([]booking.Promotion, error)
}

type Manager struct {
	l          *logger.Logger
	storage    storage
	mu         sync.RWMutex
	promotions []booking.Promotion
}

func New(l *logger.Logger, storage storage) *Manager {
	//nolint:exhaustruct
	return &Manager{l: l, storage: storage}
}

func (m *Manager) Load(ctx context.Context) error {
	promotions, err := m.storage.GetPromotions(ctx)
	if err != nil {
		return fmt.Errorf("get promotions from storage: %w", err)
	}

	promotions = slices.Clone(promotions)
	slices.SortStableFunc(promotions, func(a, b booking.Promotion) int {
		return cmp.Compare(a.ID, b.ID)
	})

	m.mu.Lock()
	m.promotions = promotions
	m.mu.Unlock()

	m.l.LogInfo("Loaded %d promotions", len(promotions))

	return nil
}

// Find looks up an active promotion by code, ignoring case.
func (m *Manager) Find(code string) (*booking.Promotion, bool) {
	code = strings.TrimSpace(code)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.promotions {
		p := m.promotions[i]
		if p.Active && strings.EqualFold(p.Code, code) {
			return &p, true
		}
	}

	return nil, false
}

func validAt(p *booking.Promotion, now time.Time) error {
	today := booking.Day(now)

	if today.Before(booking.Day(p.StartDate)) {
		return fmt.Errorf("promo code %s starts on %s: %w", p.Code, booking.FormatDate(p.StartDate), booking.ErrPromoCodeNotStarted)
	}

	if today.After(booking.Day(p.EndDate)) {
		return fmt.Errorf("promo code %s ended on %s: %w", p.Code, booking.FormatDate(p.EndDate), booking.ErrPromoCodeExpired)
	}

	return nil
}

// Discount is the amount p takes off total. It never exceeds total.
func Discount(p *booking.Promotion, total float64) float64 {
	t := decimal.NewFromFloat(total)
	value := decimal.NewFromFloat(p.DiscountValue)

	var discount decimal.Decimal

	switch p.DiscountKind {
	case booking.DiscountPercent:
		discount = t.Mul(value).Div(decimal.NewFromInt(100)).Round(0) //nolint:gomnd
	case booking.DiscountFixed:
		discount = decimal.Min(value, t)
	default:
		return 0
	}

	discount = decimal.Max(decimal.Min(discount, t), decimal.Zero)

	return discount.InexactFloat64()
}

// Apply never fails the booking: an unusable code leaves the total untouched
// and is reported through PromoResult.Err.
func (m *Manager) Apply(total float64, code string, now time.Time) booking.PromoResult {
	result := booking.PromoResult{FinalTotal: total} //nolint:exhaustruct

	if strings.TrimSpace(code) == "" {
		return result
	}

	promo, ok := m.Find(code)
	if !ok {
		result.Err = fmt.Errorf("promo code %s: %w", code, booking.ErrPromoCodeUnknown)

		return result
	}

	if err := validAt(promo, now); err != nil {
		result.Err = err

		return result
	}

	discount := Discount(promo, total)
	final := decimal.Max(decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(discount)), decimal.Zero)

	result.Discount = discount
	result.FinalTotal = final.InexactFloat64()
	result.AppliedPromo = promo

	return result
}
