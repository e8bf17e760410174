package pricing

import (
	"cmp"
	"slices"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
)

type Resolution struct {
	Rule      *booking.RateRule
	IsHoliday bool
	Holiday   *booking.Holiday
}

// Resolver picks the rate rule in effect for a room type on a given day.
// Rules are kept ordered by ID so equal priorities resolve to the lowest ID.
type Resolver struct {
	rules    []booking.RateRule
	holidays map[string]booking.Holiday
}

func NewResolver(rules []booking.RateRule, holidays []booking.Holiday) *Resolver {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b booking.RateRule) int {
		return cmp.Compare(a.ID, b.ID)
	})

	byDate := make(map[string]booking.Holiday, len(holidays))

	for _, h := range holidays {
		if !h.Active {
			continue
		}

		key := booking.FormatDate(h.Date)
		if existing, ok := byDate[key]; ok && existing.ID < h.ID {
			continue
		}

		byDate[key] = h
	}

	return &Resolver{
		rules:    sorted,
		holidays: byDate,
	}
}

func (r *Resolver) holiday(date time.Time) (*booking.Holiday, bool) {
	h, ok := r.holidays[booking.FormatDate(date)]
	if !ok {
		return nil, false
	}

	return &h, true
}

func inRange(rule *booking.RateRule, date time.Time) bool {
	if rule.StartDate == nil || rule.EndDate == nil {
		return false
	}

	start := booking.Day(*rule.StartDate)
	end := booking.Day(*rule.EndDate)

	return !date.Before(start) && date.Before(end)
}

func onWeekendFlag(rule *booking.RateRule, date time.Time) bool {
	switch date.Weekday() {
	case time.Friday:
		return rule.ApplyFriday
	case time.Saturday:
		return rule.ApplySaturday
	case time.Sunday:
		return rule.ApplySunday
	default:
		return false
	}
}

func applicable(rule *booking.RateRule, date time.Time, isHoliday bool) bool {
	if rule.Kind == booking.RuleKindHoliday && isHoliday {
		return true
	}

	if inRange(rule, date) {
		return true
	}

	return rule.Kind == booking.RuleKindWeekend && !isHoliday && onWeekendFlag(rule, date)
}

func (r *Resolver) Resolve(roomTypeID uint, date time.Time) Resolution {
	date = booking.Day(date)
	h, isHoliday := r.holiday(date)

	var best *booking.RateRule

	for i := range r.rules {
		rule := &r.rules[i]

		if !rule.Active {
			continue
		}

		if rule.RoomTypeID != nil && *rule.RoomTypeID != roomTypeID {
			continue
		}

		if !applicable(rule, date, isHoliday) {
			continue
		}

		if best == nil || rule.Priority < best.Priority {
			best = rule
		}
	}

	res := Resolution{IsHoliday: isHoliday, Holiday: h} //nolint:exhaustruct

	if best != nil {
		picked := *best
		res.Rule = &picked
	}

	return res
}
