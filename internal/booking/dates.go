package booking

import (
	"fmt"
	"strings"
	"time"
)

// Day truncates t to the UTC midnight of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}

	return Day(t), nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

type stay struct {
	from time.Time
	to   time.Time
}

func (s stay) checkIn() string {
	return FormatDate(s.from)
}

func (s stay) checkOut() string {
	return FormatDate(s.to)
}

func parseStay(checkIn, checkOut string) (stay, error) {
	inputErr := newInputError()

	var (
		from, to time.Time
		err      error
	)

	if strings.TrimSpace(checkIn) == "" {
		inputErr.addError("check_in", "provide check_in")
	} else if from, err = ParseDate(checkIn); err != nil {
		inputErr.addError("check_in", "check_in must be a YYYY-MM-DD date")
	}

	if strings.TrimSpace(checkOut) == "" {
		inputErr.addError("check_out", "provide check_out")
	} else if to, err = ParseDate(checkOut); err != nil {
		inputErr.addError("check_out", "check_out must be a YYYY-MM-DD date")
	}

	if inputErr.fieldsCount() > 0 {
		return stay{}, inputErr
	}

	if !to.After(from) {
		inputErr.addError("check_out", "check_out must be after check_in")

		return stay{}, inputErr
	}

	return stay{from: from, to: to}, nil
}
