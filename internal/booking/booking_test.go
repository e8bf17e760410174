package booking_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avstrong/hotelbooking/internal/availability"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/boost"
	"github.com/avstrong/hotelbooking/internal/idgen/simple"
	memorylock "github.com/avstrong/hotelbooking/internal/lock/memory"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/migration"
	"github.com/avstrong/hotelbooking/internal/pricing"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = t
}

func (c *clock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

type recorder struct {
	mu     sync.Mutex
	events []booking.Event
}

func (r *recorder) Publish(_ context.Context, event booking.Event, _ *booking.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) statuses() []booking.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]booking.Status, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Status)
	}

	return out
}

// sequenceIDs hands out confirmation codes from a fixed list before falling
// back to random ones.
type sequenceIDs struct {
	*simple.Generator
	mu    sync.Mutex
	codes []string
}

func (s *sequenceIDs) NewConfirmationCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.codes) == 0 {
		return s.Generator.NewConfirmationCode()
	}

	code := s.codes[0]
	s.codes = s.codes[1:]

	return code, nil
}

// idempotencyView can hide stored idempotency keys from lookups, the way a
// concurrent request on another room sees them before it commits.
type idempotencyView struct {
	*memory.DB
	hidden atomic.Int32
}

func (v *idempotencyView) GetBookingByIdempotencyKey(ctx context.Context) (*booking.Booking, error) {
	if v.hidden.Add(-1) >= 0 {
		return nil, booking.ErrRecordNotFound
	}

	v.hidden.Store(0)

	return v.DB.GetBookingByIdempotencyKey(ctx)
}

type harness struct {
	manager *booking.Manager
	db      *memory.DB
	view    *idempotencyView
	clock   *clock
	events  *recorder
}

type idGenerator interface {
	NewBookingID() string
	NewEventID() string
	NewConfirmationCode() (string, error)
}

func newHarnessWithIDs(t *testing.T, ids idGenerator) *harness {
	t.Helper()

	ctx := context.Background()
	l := logger.Discard()
	clk := &clock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)} //nolint:exhaustruct

	db := memory.New(memory.Config{L: l})
	if err := migration.Up(ctx, l, db, migration.Defaults(2025)); err != nil {
		t.Fatalf("seed reference data: %v", err)
	}

	pricer := pricing.New(l, db)
	if err := pricer.Load(ctx); err != nil {
		t.Fatalf("load pricer: %v", err)
	}

	promotions := boost.New(l, db)
	if err := promotions.Load(ctx); err != nil {
		t.Fatalf("load promotions: %v", err)
	}

	events := &recorder{} //nolint:exhaustruct

	view := &idempotencyView{DB: db} //nolint:exhaustruct

	manager := booking.New(booking.Config{
		L:       l,
		Storage: view,
		IDGen:   ids,
		Pricer:  pricer,
		Promo:   promotions,
		Availability: availability.New(availability.Config{
			L:             l,
			SoftHoldGrace: availability.DefaultSoftHoldGrace,
			FailOpen:      true,
			Now:           clk.Now,
		}, db),
		Locker:    memorylock.New(),
		Publisher: events,
		Now:       clk.Now,
	})

	return &harness{manager: manager, db: db, view: view, clock: clk, events: events}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	return newHarnessWithIDs(t, simple.New())
}

func input(checkIn, checkOut string) *booking.BookInput {
	//nolint:exhaustruct
	return &booking.BookInput{
		RoomID:     101,
		GuestName:  "Mira Kovac",
		GuestPhone: "+385911234567",
		GuestEmail: "mira@example.com",
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     2,
	}
}

func (h *harness) book(t *testing.T, checkIn, checkOut string) *booking.Booking {
	t.Helper()

	res, err := h.manager.BookRoom(context.Background(), input(checkIn, checkOut))
	if err != nil {
		t.Fatalf("book %s..%s: %v", checkIn, checkOut, err)
	}

	return res.Booking
}

func (h *harness) confirm(t *testing.T, id string) *booking.Booking {
	t.Helper()

	//nolint:exhaustruct
	b, err := h.manager.ConfirmBookingPayment(context.Background(), id, &booking.PaymentInfo{Method: "card"})
	if err != nil {
		t.Fatalf("confirm %s: %v", id, err)
	}

	return b
}

func assertTotals(t *testing.T, b *booking.Booking) {
	t.Helper()

	var sum float64
	for _, n := range b.Breakdown {
		sum += n.Rate
	}

	if b.TotalNights != len(b.Breakdown) {
		t.Fatalf("total nights %d != breakdown %d", b.TotalNights, len(b.Breakdown))
	}

	if b.Subtotal != sum || b.TotalAmount != sum-b.Discount {
		t.Fatalf("totals out of line: subtotal %v total %v discount %v sum %v", b.Subtotal, b.TotalAmount, b.Discount, sum)
	}
}

func TestBookRoom(t *testing.T) {
	h := newHarness(t)

	// Monday and Tuesday nights of a standard room at 120.
	b := h.book(t, "2025-03-10", "2025-03-12")

	if b.Status != booking.StatusPendingPayment {
		t.Fatalf("expected pending_payment, got %v", b.Status)
	}

	if !strings.HasPrefix(b.ConfirmationCode, simple.ConfirmationPrefix) || len(b.ConfirmationCode) != 8 {
		t.Fatalf("unexpected confirmation code %q", b.ConfirmationCode)
	}

	if b.TotalAmount != 240 || b.TotalNights != 2 {
		t.Fatalf("expected 2 nights for 240, got %v nights for %v", b.TotalNights, b.TotalAmount)
	}

	assertTotals(t, b)

	stored, err := h.manager.GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}

	if stored.ConfirmationCode != b.ConfirmationCode || len(stored.History) != 1 {
		t.Fatalf("stored booking differs: %+v", stored)
	}

	if got := h.db.Events(b.ID); len(got) != 1 || got[0].Status != booking.StatusPendingPayment {
		t.Fatalf("expected one stored pending event, got %+v", got)
	}

	if got := h.events.statuses(); len(got) != 1 || got[0] != booking.StatusPendingPayment {
		t.Fatalf("expected one published event, got %v", got)
	}
}

func TestBookRoomWeekendPricing(t *testing.T) {
	h := newHarness(t)

	// Friday and Saturday nights carry the 1.15 weekend multiplier.
	b := h.book(t, "2025-03-14", "2025-03-16")

	if b.Breakdown[0].Rate != 138 || b.Breakdown[1].Rate != 138 {
		t.Fatalf("expected weekend nights at 138, got %+v", b.Breakdown)
	}

	assertTotals(t, b)
}

func TestBookRoomAvailabilityAndSoftHold(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ok, err := h.manager.IsRoomAvailable(ctx, 101, "2025-03-10", "2025-03-12")
	if err != nil || !ok {
		t.Fatalf("expected room free before booking, got %v, %v", ok, err)
	}

	h.book(t, "2025-03-10", "2025-03-12")

	ok, err = h.manager.IsRoomAvailable(ctx, 101, "2025-03-11", "2025-03-13")
	if err != nil || ok {
		t.Fatalf("expected fresh hold to block, got %v, %v", ok, err)
	}

	_, err = h.manager.BookRoom(ctx, input("2025-03-11", "2025-03-13"))
	if booking.IsAvailabilityError(err) == nil {
		t.Fatalf("expected availability error, got %v", err)
	}

	h.clock.Advance(16 * time.Minute)

	ok, err = h.manager.IsRoomAvailable(ctx, 101, "2025-03-11", "2025-03-13")
	if err != nil || !ok {
		t.Fatalf("expected stale hold to release the room, got %v, %v", ok, err)
	}
}

func TestBookRoomPromotions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := input("2025-03-10", "2025-03-12")
	in.PromoCode = "welcome10"

	res, err := h.manager.BookRoom(ctx, in)
	if err != nil {
		t.Fatalf("book with promo: %v", err)
	}

	if res.PromoError != nil || res.Booking.Discount != 24 || res.Booking.TotalAmount != 216 {
		t.Fatalf("expected 24 off 240, got %+v (promo error %v)", res.Booking, res.PromoError)
	}

	if res.Booking.PromoCode != "WELCOME10" {
		t.Fatalf("expected stored promo code WELCOME10, got %q", res.Booking.PromoCode)
	}

	assertTotals(t, res.Booking)

	in = input("2025-03-20", "2025-03-21")
	in.PromoCode = "BOGUS"

	res, err = h.manager.BookRoom(ctx, in)
	if err != nil {
		t.Fatalf("invalid promo must not fail the booking: %v", err)
	}

	if !errors.Is(res.PromoError, booking.ErrPromoCodeUnknown) {
		t.Fatalf("expected unknown promo error, got %v", res.PromoError)
	}

	if res.Booking.Discount != 0 || res.Booking.PromoCode != "" || res.Booking.TotalAmount != 120 {
		t.Fatalf("expected undiscounted booking, got %+v", res.Booking)
	}
}

func TestBookRoomValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		input func() *booking.BookInput
		field string
	}{
		{"missing dates", func() *booking.BookInput { return input("", "") }, "check_in"},
		{"bad date", func() *booking.BookInput { return input("10/03/2025", "2025-03-12") }, "check_in"},
		{"reversed dates", func() *booking.BookInput { return input("2025-03-12", "2025-03-10") }, "check_out"},
		{"same day", func() *booking.BookInput { return input("2025-03-12", "2025-03-12") }, "check_out"},
		{"unknown room", func() *booking.BookInput {
			in := input("2025-03-10", "2025-03-12")
			in.RoomID = 999

			return in
		}, "room_id"},
		{"too many guests", func() *booking.BookInput {
			in := input("2025-03-10", "2025-03-12")
			in.Kids = 2

			return in
		}, "adults"},
		{"bad email", func() *booking.BookInput {
			in := input("2025-03-10", "2025-03-12")
			in.GuestEmail = "not-an-email"

			return in
		}, "guest_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.manager.BookRoom(context.Background(), tt.input())

			inputErr := booking.IsInputError(err)
			if inputErr == nil {
				t.Fatalf("expected input error, got %v", err)
			}

			if _, ok := inputErr.Fields()[tt.field]; !ok {
				t.Fatalf("expected field %s in %v", tt.field, inputErr.Fields())
			}
		})
	}
}

func TestBookRoomIdempotency(t *testing.T) {
	h := newHarness(t)
	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "req-1")

	first, err := h.manager.BookRoom(ctx, input("2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	second, err := h.manager.BookRoom(ctx, input("2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("replayed booking: %v", err)
	}

	if first.Booking.ID != second.Booking.ID {
		t.Fatalf("expected the same booking, got %s and %s", first.Booking.ID, second.Booking.ID)
	}
}

func TestBookRoomRetriesConfirmationCodeCollision(t *testing.T) {
	ids := &sequenceIDs{Generator: simple.New(), codes: []string{"AD-AAAAA", "AD-AAAAA", "AD-BBBBB"}} //nolint:exhaustruct
	h := newHarnessWithIDs(t, ids)

	first := h.book(t, "2025-03-10", "2025-03-11")
	second := h.book(t, "2025-03-20", "2025-03-21")

	if first.ConfirmationCode != "AD-AAAAA" || second.ConfirmationCode != "AD-BBBBB" {
		t.Fatalf("expected retry onto a fresh code, got %s and %s", first.ConfirmationCode, second.ConfirmationCode)
	}
}

func TestBookRoomConcurrentRequests(t *testing.T) {
	h := newHarness(t)

	const workers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := h.manager.BookRoom(context.Background(), input("2025-04-01", "2025-04-03"))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case booking.IsAvailabilityError(err) != nil:
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if succeeded != 1 || rejected != workers-1 {
		t.Fatalf("expected exactly one booking, got %d succeeded and %d rejected", succeeded, rejected)
	}
}

func TestConfirmBookingPayment(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "2025-03-10", "2025-03-12")

	confirmed := h.confirm(t, b.ID)

	if confirmed.Status != booking.StatusConfirmed || confirmed.PaidAt == nil || confirmed.PaymentMethod != "card" {
		t.Fatalf("unexpected confirmed booking %+v", confirmed)
	}

	if len(confirmed.History) != 2 {
		t.Fatalf("expected two history entries, got %d", len(confirmed.History))
	}

	//nolint:exhaustruct
	_, err := h.manager.ConfirmBookingPayment(context.Background(), b.ID, &booking.PaymentInfo{})
	if !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	statuses := h.events.statuses()
	if len(statuses) != 2 || statuses[1] != booking.StatusConfirmed {
		t.Fatalf("expected confirmed event to be published, got %v", statuses)
	}

	// A paid booking keeps blocking after the grace window.
	h.clock.Advance(time.Hour)

	ok, err := h.manager.IsRoomAvailable(context.Background(), 101, "2025-03-10", "2025-03-11")
	if err != nil || ok {
		t.Fatalf("expected confirmed booking to block, got %v, %v", ok, err)
	}
}

func TestCancelBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.confirm(t, h.book(t, "2025-03-10", "2025-03-12").ID)

	cancelled, err := h.manager.CancelBooking(ctx, b.ID, "  plans changed ")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if cancelled.Status != booking.StatusCancelled || cancelled.CancelReason != "plans changed" {
		t.Fatalf("unexpected cancelled booking %+v", cancelled)
	}

	ok, err := h.manager.IsRoomAvailable(ctx, 101, "2025-03-10", "2025-03-12")
	if err != nil || !ok {
		t.Fatalf("expected room free after cancel, got %v, %v", ok, err)
	}

	if _, err := h.manager.CancelBooking(ctx, b.ID, ""); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if _, err := h.manager.CancelBooking(ctx, "missing", ""); !errors.Is(err, booking.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestModifyBookingDates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.confirm(t, h.book(t, "2025-03-10", "2025-03-12").ID)
	other := h.confirm(t, h.book(t, "2025-03-14", "2025-03-16").ID)

	//nolint:exhaustruct
	_, err := h.manager.ModifyBookingDates(ctx, other.ID, &booking.DateChange{CheckIn: "2025-03-11", CheckOut: "2025-03-15"})
	if booking.IsAvailabilityError(err) == nil {
		t.Fatalf("expected availability error, got %v", err)
	}

	unchanged, err := h.manager.GetBooking(ctx, other.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}

	if unchanged.CheckIn != other.CheckIn || unchanged.CheckOut != other.CheckOut ||
		unchanged.Status != booking.StatusConfirmed || unchanged.TotalAmount != other.TotalAmount ||
		len(unchanged.History) != len(other.History) {
		t.Fatalf("failed modify changed the booking: %+v", unchanged)
	}

	// Overlapping only its own stay is fine; Sunday and Monday are standard nights.
	//nolint:exhaustruct
	modified, err := h.manager.ModifyBookingDates(ctx, other.ID, &booking.DateChange{CheckIn: "2025-03-15", CheckOut: "2025-03-18"})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	if modified.Status != booking.StatusModified || modified.CheckIn != "2025-03-15" || modified.TotalNights != 3 {
		t.Fatalf("unexpected modified booking %+v", modified)
	}

	if modified.TotalAmount != 138+120+120 {
		t.Fatalf("expected re-priced total 378, got %v", modified.TotalAmount)
	}

	assertTotals(t, modified)

	last := modified.History[len(modified.History)-1]
	if last.Status != booking.StatusModified || !strings.Contains(last.Note, "2025-03-14/2025-03-16") {
		t.Fatalf("unexpected history entry %+v", last)
	}

	// A paid booking stays paid through a modification and keeps blocking.
	h.clock.Advance(time.Hour)

	ok, err := h.manager.IsRoomAvailable(ctx, 101, "2025-03-16", "2025-03-17")
	if err != nil || ok {
		t.Fatalf("expected paid modified booking to block, got %v, %v", ok, err)
	}
}

func TestModifyReappliesPromotion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := input("2025-03-10", "2025-03-11")
	in.PromoCode = "FLAT50"

	res, err := h.manager.BookRoom(ctx, in)
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	//nolint:exhaustruct
	modified, err := h.manager.ModifyBookingDates(ctx, res.Booking.ID, &booking.DateChange{CheckIn: "2025-03-10", CheckOut: "2025-03-13"})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	if modified.Discount != 50 || modified.TotalAmount != 310 || modified.PromoCode != "FLAT50" {
		t.Fatalf("expected promotion re-applied, got %+v", modified)
	}
}

func TestPassiveCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.confirm(t, h.book(t, "2025-03-10", "2025-03-12").ID)
	second := h.confirm(t, h.book(t, "2025-03-20", "2025-03-22").ID)
	pending := h.book(t, "2025-03-05", "2025-03-06")

	h.clock.Set(time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC))

	got, err := h.manager.GetBooking(ctx, first.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}

	if got.Status != booking.StatusCompleted {
		t.Fatalf("expected completed on read, got %v", got.Status)
	}

	h.clock.Set(time.Date(2025, 3, 23, 9, 0, 0, 0, time.UTC))

	n, err := h.manager.CompleteFinishedStays(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one completion, got %d, %v", n, err)
	}

	got, _ = h.manager.GetBooking(ctx, second.ID)
	if got.Status != booking.StatusCompleted {
		t.Fatalf("expected second booking completed, got %v", got.Status)
	}

	got, _ = h.manager.GetBooking(ctx, pending.ID)
	if got.Status != booking.StatusPendingPayment {
		t.Fatalf("expected unpaid booking untouched, got %v", got.Status)
	}

	//nolint:exhaustruct
	if _, err := h.manager.ModifyBookingDates(ctx, first.ID, &booking.DateChange{CheckIn: "2025-04-01", CheckOut: "2025-04-02"}); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected completed booking to be final, got %v", err)
	}
}

func TestPriceRoom(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	quote, err := h.manager.PriceRoom(ctx, 101, "", "")
	if err != nil || quote.Total != 120 || len(quote.Breakdown) != 0 {
		t.Fatalf("expected base price for no dates, got %+v, %v", quote, err)
	}

	// New Year's Day uses the holiday rule over the seeded holiday calendar.
	quote, err = h.manager.PriceRoom(ctx, 101, "2025-01-01", "2025-01-02")
	if err != nil || quote.Total != 180 {
		t.Fatalf("expected holiday night at 180, got %+v, %v", quote, err)
	}

	if _, err := h.manager.PriceRoom(ctx, 999, "2025-01-01", "2025-01-02"); !errors.Is(err, booking.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := h.manager.PriceRoom(ctx, 101, "soon", ""); booking.IsInputError(err) == nil {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	if _, ok := booking.IdempotencyKeyFromContext(booking.NewContextWithIdempotencyKey(ctx, "")); ok {
		t.Fatalf("expected empty idempotency key to be ignored")
	}

	ctx = booking.NewContextWithRequestID(ctx, "req-1")

	if id, ok := booking.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("expected request id, got %q", id)
	}

	if _, ok := booking.IdempotencyKeyFromContext(ctx); ok {
		t.Fatalf("request id must not leak into the idempotency key")
	}
}

func TestBookRoomConcurrentReplays(t *testing.T) {
	h := newHarness(t)
	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "checkout-9")

	const workers = 8

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]int)
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := h.manager.BookRoom(ctx, input("2025-04-01", "2025-04-03"))
			if err != nil {
				t.Errorf("replayed request failed: %v", err)

				return
			}

			mu.Lock()
			defer mu.Unlock()

			ids[res.Booking.ID]++
		}()
	}

	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("expected every request to get the same booking, got %v", ids)
	}
}

func TestBookRoomReplaysOnIdempotencyKeyConflict(t *testing.T) {
	h := newHarness(t)
	ctx := booking.NewContextWithIdempotencyKey(context.Background(), "checkout-10")

	first, err := h.manager.BookRoom(ctx, input("2025-03-10", "2025-03-12"))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Both lookups before the insert miss the stored key.
	h.view.hidden.Store(2)

	other := input("2025-03-10", "2025-03-12")
	other.RoomID = 102

	second, err := h.manager.BookRoom(ctx, other)
	if err != nil {
		t.Fatalf("conflicting booking: %v", err)
	}

	if second.Booking.ID != first.Booking.ID {
		t.Fatalf("expected the stored booking back, got %s", second.Booking.ID)
	}

	ok, err := h.manager.IsRoomAvailable(context.Background(), 102, "2025-03-10", "2025-03-12")
	if err != nil || !ok {
		t.Fatalf("expected no booking on room 102, got %v, %v", ok, err)
	}
}

func TestFinishedStayCannotBeCancelledOrModified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b := h.confirm(t, h.book(t, "2025-03-10", "2025-03-12").ID)

	h.clock.Set(time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC))

	if _, err := h.manager.CancelBooking(ctx, b.ID, "too late"); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected finished stay to refuse cancel, got %v", err)
	}

	//nolint:exhaustruct
	if _, err := h.manager.ModifyBookingDates(ctx, b.ID, &booking.DateChange{CheckIn: "2025-03-25", CheckOut: "2025-03-26"}); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected finished stay to refuse modify, got %v", err)
	}

	got, err := h.manager.GetBooking(ctx, b.ID)
	if err != nil || got.Status != booking.StatusCompleted || got.CancelReason != "" {
		t.Fatalf("expected completed booking, got %+v, %v", got, err)
	}
}

func TestPaidModifiedStayCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paid := h.confirm(t, h.book(t, "2025-03-10", "2025-03-12").ID)
	unpaid := h.book(t, "2025-03-20", "2025-03-22")

	for id, change := range map[string]*booking.DateChange{
		paid.ID:   {CheckIn: "2025-03-11", CheckOut: "2025-03-13"},
		unpaid.ID: {CheckIn: "2025-03-21", CheckOut: "2025-03-23"},
	} {
		if _, err := h.manager.ModifyBookingDates(ctx, id, change); err != nil {
			t.Fatalf("modify %s: %v", id, err)
		}
	}

	h.clock.Set(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	n, err := h.manager.CompleteFinishedStays(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected the paid modified stay to complete, got %d, %v", n, err)
	}

	got, _ := h.manager.GetBooking(ctx, paid.ID)
	if got.Status != booking.StatusCompleted || got.PaidAt == nil {
		t.Fatalf("expected paid booking completed, got %+v", got)
	}

	got, _ = h.manager.GetBooking(ctx, unpaid.ID)
	if got.Status != booking.StatusModified {
		t.Fatalf("expected unpaid modified booking untouched, got %v", got.Status)
	}

	ok, err := h.manager.IsRoomAvailable(ctx, 101, "2025-03-11", "2025-03-13")
	if err != nil || !ok {
		t.Fatalf("expected completed stay to stop blocking, got %v, %v", ok, err)
	}
}
