package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusConfirmed, StatusCancelled, StatusModified},
	StatusModified:       {StatusConfirmed, StatusCancelled, StatusModified, StatusCompleted},
	StatusConfirmed:      {StatusCancelled, StatusModified, StatusCompleted, StatusCheckedIn},
	StatusCheckedIn:      {StatusCheckedOut},
}

func canTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

func (m *Manager) loadForTransition(ctx context.Context, id string, to Status) (*Booking, error) {
	b, err := m.storage.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %v: %w", id, err)
	}

	if _, err := m.completeIfFinished(ctx, b, m.now()); err != nil {
		return nil, err
	}

	if !canTransition(b.Status, to) {
		return nil, fmt.Errorf("booking %v from %v to %v: %w", id, b.Status, to, ErrInvalidTransition)
	}

	return b, nil
}

func (m *Manager) update(ctx context.Context, b *Booking, event *Event) error {
	err := m.withTransaction(ctx, func(ctx context.Context) error {
		if err := m.storage.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		if err := m.storage.SaveEvent(ctx, event); err != nil {
			return fmt.Errorf("save event: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("save booking %v: %w", b.ID, err)
	}

	m.publish(ctx, event, b)

	return nil
}

func (m *Manager) GetBooking(ctx context.Context, id string) (*Booking, error) {
	b, err := m.storage.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %v: %w", id, err)
	}

	if _, err := m.completeIfFinished(ctx, b, m.now()); err != nil {
		m.l.LogErrorf("Could not complete booking %v on read: %v", id, err.Error())
	}

	return b.Clone(), nil
}

func (m *Manager) ConfirmBookingPayment(ctx context.Context, id string, payment *PaymentInfo) (*Booking, error) {
	if err := m.validateStruct(payment); err != nil {
		return nil, err
	}

	b, err := m.loadForTransition(ctx, id, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	now := m.now()
	b.PaidAt = &now
	b.PaymentMethod = payment.Method
	b.PaymentReference = payment.Reference

	note := "payment confirmed"
	if payment.Method != "" {
		note = fmt.Sprintf("payment confirmed via %s", payment.Method)
	}

	event := m.record(b, StatusConfirmed, note, now)

	if err := m.update(ctx, b, event); err != nil {
		return nil, err
	}

	m.l.LogInfo("[%v] Booking %v confirmed", requestTag(ctx), b.ID)

	return b.Clone(), nil
}

func (m *Manager) CancelBooking(ctx context.Context, id, reason string) (*Booking, error) {
	b, err := m.loadForTransition(ctx, id, StatusCancelled)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	b.CancelReason = reason

	note := "booking cancelled"
	if reason != "" {
		note = fmt.Sprintf("booking cancelled: %s", reason)
	}

	event := m.record(b, StatusCancelled, note, m.now())

	if err := m.update(ctx, b, event); err != nil {
		return nil, err
	}

	m.l.LogInfo("[%v] Booking %v cancelled", requestTag(ctx), b.ID)

	return b.Clone(), nil
}

//nolint:funlen // it's linear simple code
func (m *Manager) ModifyBookingDates(ctx context.Context, id string, change *DateChange) (*Booking, error) {
	if err := m.validateStruct(change); err != nil {
		return nil, err
	}

	current, err := m.loadForTransition(ctx, id, StatusModified)
	if err != nil {
		return nil, err
	}

	s, err := parseStay(change.CheckIn, change.CheckOut)
	if err != nil {
		return nil, err
	}

	room, err := m.getRoom(ctx, current.RoomID)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, roomLockKey(room.ID))
	if err != nil {
		return nil, fmt.Errorf("lock room %v: %w", room.ID, err)
	}
	defer unlock()

	if err := m.ensureAvailable(ctx, room.ID, s, current.ID); err != nil {
		return nil, err
	}

	now := m.now()
	quote := m.pricer.Price(room, s.from, s.to)
	promo := m.promo.Apply(quote.Total, current.PromoCode, now)

	if promo.Err != nil {
		m.l.LogInfo("Promo code %v dropped from booking %v: %v", current.PromoCode, current.ID, promo.Err.Error())
	}

	b := current.Clone()
	note := fmt.Sprintf("dates changed from %s/%s to %s/%s", current.CheckIn, current.CheckOut, s.checkIn(), s.checkOut())

	b.CheckIn = s.checkIn()
	b.CheckOut = s.checkOut()
	b.Subtotal = quote.Total
	b.Discount = promo.Discount
	b.TotalAmount = promo.FinalTotal
	b.TotalNights = len(quote.Breakdown)
	b.Breakdown = quote.Breakdown
	b.PromoCode = ""

	if promo.AppliedPromo != nil {
		b.PromoCode = promo.AppliedPromo.Code
	}

	event := m.record(b, StatusModified, note, now)

	if err := m.update(ctx, b, event); err != nil {
		return nil, err
	}

	m.l.LogInfo("[%v] Booking %v modified: %v", requestTag(ctx), b.ID, note)

	return b.Clone(), nil
}

// completable reports whether b is a paid stay: confirmed, or modified after
// payment.
func completable(b *Booking) bool {
	return b.Status == StatusConfirmed || (b.Status == StatusModified && b.PaidAt != nil)
}

// completeIfFinished moves a paid booking to completed once now is past its
// checkout date. It reports whether the booking changed.
func (m *Manager) completeIfFinished(ctx context.Context, b *Booking, now time.Time) (bool, error) {
	if !completable(b) {
		return false, nil
	}

	checkOut, err := ParseDate(b.CheckOut)
	if err != nil {
		return false, fmt.Errorf("parse check_out of booking %v: %w", b.ID, err)
	}

	if !now.After(checkOut) {
		return false, nil
	}

	next := b.Clone()
	event := m.record(next, StatusCompleted, "stay completed", now)

	if err := m.update(ctx, next, event); err != nil {
		return false, err
	}

	*b = *next

	return true, nil
}

func (m *Manager) CompleteFinishedStays(ctx context.Context) (int, error) {
	var bookings []*Booking

	for _, status := range []Status{StatusConfirmed, StatusModified} {
		found, err := m.storage.ListBookingsByStatus(ctx, status)
		if err != nil {
			return 0, fmt.Errorf("list %v bookings: %w", status, err)
		}

		bookings = append(bookings, found...)
	}

	now := m.now()
	completed := 0

	var errs []error

	for _, b := range bookings {
		done, err := m.completeIfFinished(ctx, b, now)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if done {
			completed++
		}
	}

	return completed, errors.Join(errs...)
}

func (m *Manager) PriceRoom(ctx context.Context, roomID uint, checkIn, checkOut string) (*Quote, error) {
	room, err := m.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %v: %w", roomID, err)
	}

	var from, to time.Time

	inputErr := newInputError()

	if strings.TrimSpace(checkIn) != "" {
		if from, err = ParseDate(checkIn); err != nil {
			inputErr.addError("check_in", "check_in must be a YYYY-MM-DD date")
		}
	}

	if strings.TrimSpace(checkOut) != "" {
		if to, err = ParseDate(checkOut); err != nil {
			inputErr.addError("check_out", "check_out must be a YYYY-MM-DD date")
		}
	}

	if inputErr.fieldsCount() > 0 {
		return nil, inputErr
	}

	quote := m.pricer.Price(room, from, to)

	return &quote, nil
}

func (m *Manager) IsRoomAvailable(ctx context.Context, roomID uint, checkIn, checkOut string) (bool, error) {
	s, err := parseStay(checkIn, checkOut)
	if err != nil {
		return false, err
	}

	ok, err := m.availability.IsAvailable(ctx, BookingQuery{RoomID: roomID, From: s.from, To: s.to}) //nolint:exhaustruct
	if err != nil {
		return false, fmt.Errorf("check availability of room %v: %w", roomID, err)
	}

	return ok, nil
}
