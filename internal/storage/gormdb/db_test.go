package gormdb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN is not set")
	}

	db, err := Open(Config{L: logger.Discard(), Driver: "mysql", DSN: dsn}) //nolint:exhaustruct
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func inTransaction(t *testing.T, db *DB, fn func(ctx context.Context) error) error {
	t.Helper()

	ctx, err := db.BeginTransaction(context.Background(), "READ COMMITTED")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := fn(ctx); err != nil {
		_ = db.RollbackTransaction(ctx)

		return err
	}

	return db.CommitTransaction(ctx)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{L: logger.Discard(), Driver: "sqlite", DSN: "x"}) //nolint:exhaustruct
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestIsolation(t *testing.T) {
	if got := isolation("read committed"); got.String() != "Read Committed" {
		t.Fatalf("unexpected isolation %v", got)
	}

	if got := isolation(""); got.String() != "Default" {
		t.Fatalf("unexpected default isolation %v", got)
	}
}

func TestBookingModelRoundTrip(t *testing.T) {
	paidAt := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	//nolint:exhaustruct
	b := &booking.Booking{
		ID:               "b1",
		ConfirmationCode: "AD-12345",
		RoomID:           101,
		CheckIn:          "2025-03-10",
		CheckOut:         "2025-03-11",
		Status:           booking.StatusConfirmed,
		Breakdown:        []booking.NightlyRate{{Date: "2025-03-10", Label: "Standard rate", Rate: 120}},
		History:          []booking.HistoryEntry{{At: paidAt, Status: booking.StatusConfirmed, Note: "payment confirmed"}},
		PaidAt:           &paidAt,
		IdempotencyKey:   "req-1",
	}

	m, err := bookingToModel(b)
	if err != nil {
		t.Fatalf("to model: %v", err)
	}

	if m.IdempotencyKey == nil || *m.IdempotencyKey != "req-1" {
		t.Fatalf("expected idempotency key column to be set")
	}

	got, err := m.toDomain()
	if err != nil {
		t.Fatalf("to domain: %v", err)
	}

	if got.Breakdown[0] != b.Breakdown[0] || got.History[0].Note != "payment confirmed" || got.IdempotencyKey != "req-1" {
		t.Fatalf("round trip lost data: %+v", got)
	}

	b.IdempotencyKey = ""

	m, _ = bookingToModel(b)
	if m.IdempotencyKey != nil {
		t.Fatalf("expected NULL idempotency key for bookings without one")
	}
}

func TestStoreBookingLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rtID := uint(time.Now().UnixNano() % 1_000_000) //nolint:gosec
	roomID := rtID

	err := inTransaction(t, db, func(ctx context.Context) error {
		if err := db.SaveRoomTypes(ctx, []booking.RoomType{{ID: rtID, Code: uuid.NewString()[:8], Name: "Test", BaseRate: 90, MaxOccupancy: 2}}); err != nil {
			return err
		}

		return db.SaveRooms(ctx, []booking.Room{{ID: roomID, RoomTypeID: rtID, Name: "Test room"}}) //nolint:exhaustruct
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	room, err := db.GetRoom(ctx, roomID)
	if err != nil || room.Type.BaseRate != 90 {
		t.Fatalf("get room: %+v, %v", room, err)
	}

	code := "AD-" + uuid.NewString()[:5]

	//nolint:exhaustruct
	b := &booking.Booking{
		ID:               uuid.NewString(),
		ConfirmationCode: code,
		RoomID:           roomID,
		CheckIn:          "2025-03-10",
		CheckOut:         "2025-03-12",
		Status:           booking.StatusPendingPayment,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
		UpdatedAt:        time.Now().UTC().Truncate(time.Second),
		IdempotencyKey:   "req-" + uuid.NewString(),
	}

	err = inTransaction(t, db, func(ctx context.Context) error {
		if err := db.InsertBooking(ctx, b); err != nil {
			return err
		}

		//nolint:exhaustruct
		return db.SaveEvent(ctx, &booking.Event{ID: uuid.NewString(), BookingID: b.ID, Status: b.Status, CreatedAt: b.CreatedAt})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := *b
	dup.ID = uuid.NewString()
	dup.IdempotencyKey = ""

	err = inTransaction(t, db, func(ctx context.Context) error { return db.InsertBooking(ctx, &dup) })
	if !errors.Is(err, booking.ErrDuplicateConfirmationCode) || errors.Is(err, booking.ErrDuplicateIdempotencyKey) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}

	sameKey := *b
	sameKey.ID = uuid.NewString()
	sameKey.ConfirmationCode = "AD-" + uuid.NewString()[:5]

	err = inTransaction(t, db, func(ctx context.Context) error { return db.InsertBooking(ctx, &sameKey) })
	if !errors.Is(err, booking.ErrDuplicateIdempotencyKey) || errors.Is(err, booking.ErrDuplicateConfirmationCode) {
		t.Fatalf("expected duplicate idempotency key error, got %v", err)
	}

	from, _ := booking.ParseDate("2025-03-11")
	to, _ := booking.ParseDate("2025-03-13")

	found, err := db.QueryBookingsForRoom(ctx, booking.BookingQuery{RoomID: roomID, From: from, To: to}) //nolint:exhaustruct
	if err != nil || len(found) != 1 || found[0].ID != b.ID {
		t.Fatalf("expected overlapping booking, got %d, %v", len(found), err)
	}

	b.Status = booking.StatusCancelled

	if err := inTransaction(t, db, func(ctx context.Context) error { return db.UpdateBooking(ctx, b) }); err != nil {
		t.Fatalf("update: %v", err)
	}

	found, _ = db.QueryBookingsForRoom(ctx, booking.BookingQuery{RoomID: roomID, From: from, To: to}) //nolint:exhaustruct
	if len(found) != 0 {
		t.Fatalf("expected cancelled booking to drop out, got %d", len(found))
	}

	if _, err := db.GetBooking(ctx, uuid.NewString()); !errors.Is(err, booking.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
