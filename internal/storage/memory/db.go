package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type Config struct {
	L *logger.Logger
}

type DB struct {
	mu              sync.Mutex
	l               *logger.Logger
	roomTypes       map[uint]booking.RoomType
	rooms           map[uint]booking.Room
	rateRules       map[uint]booking.RateRule
	holidays        map[uint]booking.Holiday
	promotions      map[uint]booking.Promotion
	bookings        map[string]*booking.Booking
	codes           map[string]string
	idempotencyKeys map[string]string
	events          map[string]*booking.Event
	transactions    map[string]*transaction
	nextTrxID       int64
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:               conf.L,
		roomTypes:       make(map[uint]booking.RoomType),
		rooms:           make(map[uint]booking.Room),
		rateRules:       make(map[uint]booking.RateRule),
		holidays:        make(map[uint]booking.Holiday),
		promotions:      make(map[uint]booking.Promotion),
		bookings:        make(map[string]*booking.Booking),
		codes:           make(map[string]string),
		idempotencyKeys: make(map[string]string),
		events:          make(map[string]*booking.Event),
		transactions:    make(map[string]*transaction),
	}
}

func (db *DB) BeginTransaction(ctx context.Context, _ string) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	//nolint:exhaustruct
	db.transactions[trxID] = &transaction{
		id:                trxID,
		bookingWrites:     make(map[string]bookingWrite),
		pendingCodes:      make(map[string]string),
		pendingIdempotent: make(map[string]string),
	}

	return withTransactionID(ctx, trxID), nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	for code, id := range trx.pendingCodes {
		if owner, taken := db.codes[code]; taken && owner != id {
			return fmt.Errorf("commit %s: code %s: %w", trx.id, code, booking.ErrDuplicateConfirmationCode)
		}
	}

	for key, id := range trx.pendingIdempotent {
		if owner, taken := db.idempotencyKeys[key]; taken && owner != id {
			return fmt.Errorf("commit %s: idempotency key %s: %w", trx.id, key, booking.ErrDuplicateIdempotencyKey)
		}
	}

	for _, id := range trx.bookingOrder {
		write := trx.bookingWrites[id]
		if !write.insert {
			if _, ok := db.bookings[id]; !ok {
				return fmt.Errorf("commit %s: booking %s: %w", trx.id, id, booking.ErrRecordNotFound)
			}
		}
	}

	for _, id := range trx.bookingOrder {
		b := trx.bookingWrites[id].booking
		db.bookings[id] = b
		db.codes[b.ConfirmationCode] = id
	}

	for key, id := range trx.pendingIdempotent {
		db.idempotencyKeys[key] = id
	}

	for _, event := range trx.eventWrites {
		db.events[event.ID] = event
	}

	for _, write := range trx.referenceWrites {
		write()
	}

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	return nil
}

func (db *DB) stageBooking(trx *transaction, b *booking.Booking, insert bool) {
	if _, staged := trx.bookingWrites[b.ID]; !staged {
		trx.bookingOrder = append(trx.bookingOrder, b.ID)
	}

	trx.bookingWrites[b.ID] = bookingWrite{booking: b.Clone(), insert: insert}
	trx.pendingCodes[b.ConfirmationCode] = b.ID
}

func (db *DB) InsertBooking(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	if _, exists := db.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists: %w", b.ID, booking.ErrLogic)
	}

	if _, taken := db.codes[b.ConfirmationCode]; taken {
		return fmt.Errorf("code %s: %w", b.ConfirmationCode, booking.ErrDuplicateConfirmationCode)
	}

	if owner, taken := trx.pendingCodes[b.ConfirmationCode]; taken && owner != b.ID {
		return fmt.Errorf("code %s: %w", b.ConfirmationCode, booking.ErrDuplicateConfirmationCode)
	}

	if _, taken := db.idempotencyKeys[b.IdempotencyKey]; taken && b.IdempotencyKey != "" {
		return fmt.Errorf("idempotency key %s: %w", b.IdempotencyKey, booking.ErrDuplicateIdempotencyKey)
	}

	db.stageBooking(trx, b, true)

	if b.IdempotencyKey != "" {
		trx.pendingIdempotent[b.IdempotencyKey] = b.ID
	}

	return nil
}

func (db *DB) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	staged, inTrx := trx.bookingWrites[b.ID]
	if _, exists := db.bookings[b.ID]; !exists && !inTrx {
		return fmt.Errorf("booking %s: %w", b.ID, booking.ErrRecordNotFound)
	}

	db.stageBooking(trx, b, inTrx && staged.insert)

	return nil
}

func (db *DB) SaveEvent(ctx context.Context, event *booking.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	e := *event
	trx.eventWrites = append(trx.eventWrites, &e)

	return nil
}

func (db *DB) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, booking.ErrRecordNotFound)
	}

	return b.Clone(), nil
}

func (db *DB) GetBookingByIdempotencyKey(ctx context.Context) (*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, booking.ErrIdempotencyKey
	}

	id, exists := db.idempotencyKeys[key]
	if !exists {
		return nil, booking.ErrRecordNotFound
	}

	return db.bookings[id].Clone(), nil
}

// QueryBookingsForRoom returns the room's bookings overlapping [From, To),
// leaving out cancelled and checked-out ones.
func (db *DB) QueryBookingsForRoom(_ context.Context, q booking.BookingQuery) ([]*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	from := booking.FormatDate(q.From)
	to := booking.FormatDate(q.To)

	var result []*booking.Booking

	for _, b := range db.bookings {
		if b.RoomID != q.RoomID || b.ID == q.ExcludeID {
			continue
		}

		if b.Status == booking.StatusCancelled || b.Status == booking.StatusCheckedOut {
			continue
		}

		if b.CheckIn < to && from < b.CheckOut {
			result = append(result, b.Clone())
		}
	}

	sortByCreation(result)

	return result, nil
}

func (db *DB) ListBookingsByStatus(_ context.Context, status booking.Status) ([]*booking.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []*booking.Booking

	for _, b := range db.bookings {
		if b.Status == status {
			result = append(result, b.Clone())
		}
	}

	sortByCreation(result)

	return result, nil
}

func (db *DB) Events(bookingID string) []booking.Event {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []booking.Event

	for _, e := range db.events {
		if e.BookingID == bookingID {
			result = append(result, *e)
		}
	}

	slices.SortStableFunc(result, func(a, b booking.Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return result
}

func sortByCreation(bookings []*booking.Booking) {
	slices.SortStableFunc(bookings, func(a, b *booking.Booking) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}
