package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/hotelbooking/internal/logger"
)

const maxConfirmationCodeAttempts = 5

type idGenerator interface {
	NewBookingID() string
	NewEventID() string
	NewConfirmationCode() (string, error)
}

type storageReader interface {
	GetRoom(ctx context.Context, id uint) (*Room, error)
	GetBooking(ctx context.Context, id string) (*Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context) (*Booking, error)
	ListBookingsByStatus(ctx context.Context, status Status) ([]*Booking, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	InsertBooking(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
	SaveEvent(ctx context.Context, event *Event) error
}

type storage interface {
	storageReader
	storageWriter
}

type pricer interface {
	Price(room *Room, checkIn, checkOut time.Time) Quote
}

type promoApplier interface {
	Apply(total float64, code string, now time.Time) PromoResult
}

type availabilityChecker interface {
	IsAvailable(ctx context.Context, q BookingQuery) (bool, error)
}

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type publisher interface {
	Publish(ctx context.Context, event Event, b *Booking)
}

type Config struct {
	L            *logger.Logger
	Storage      storage
	IDGen        idGenerator
	Pricer       pricer
	Promo        promoApplier
	Availability availabilityChecker
	Locker       locker
	Publisher    publisher
	Now          func() time.Time
}

type Manager struct {
	l            *logger.Logger
	storage      storage
	idGenerator  idGenerator
	pricer       pricer
	promo        promoApplier
	availability availabilityChecker
	locker       locker
	publisher    publisher
	now          func() time.Time
	validate     *validator.Validate
}

func New(conf Config) *Manager {
	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0] //nolint:gomnd
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	return &Manager{
		l:            conf.L,
		storage:      conf.Storage,
		idGenerator:  conf.IDGen,
		pricer:       conf.Pricer,
		promo:        conf.Promo,
		availability: conf.Availability,
		locker:       conf.Locker,
		publisher:    conf.Publisher,
		now:          now,
		validate:     v,
	}
}

func (m *Manager) validateStruct(s any) error {
	err := m.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	inputErr := newInputError()
	for _, fe := range validationErrs {
		inputErr.addError(fe.Field(), fmt.Sprintf("failed on the '%s' rule", fe.Tag()))
	}

	return inputErr
}

func roomLockKey(roomID uint) string {
	return fmt.Sprintf("room:%d", roomID)
}

// withTransaction runs fn in a storage transaction, committing on success and
// rolling back on error or panic.
func (m *Manager) withTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = m.storage.BeginTransaction(ctx, "READ COMMITTED")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after panic %v", p)
			}

			m.l.LogInfo("Transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback booking transaction after error %v", rbErr.Error())
			}

			return
		}

		if err = m.storage.CommitTransaction(ctx); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
		}
	}()

	return fn(ctx)
}

func (m *Manager) newEvent(b *Booking, status Status, note string, at time.Time) *Event {
	return &Event{
		ID:        m.idGenerator.NewEventID(),
		BookingID: b.ID,
		Status:    status,
		Note:      note,
		CreatedAt: at,
	}
}

// record moves b into status, appending the history entry that goes with the event.
func (m *Manager) record(b *Booking, status Status, note string, at time.Time) *Event {
	b.Status = status
	b.UpdatedAt = at
	b.History = append(b.History, HistoryEntry{At: at, Status: status, Note: note})

	return m.newEvent(b, status, note, at)
}

func (m *Manager) publish(ctx context.Context, event *Event, b *Booking) {
	if m.publisher == nil {
		return
	}

	m.publisher.Publish(ctx, *event, b.Clone())
}

func (m *Manager) ensureAvailable(ctx context.Context, roomID uint, s stay, excludeID string) error {
	ok, err := m.availability.IsAvailable(ctx, BookingQuery{
		RoomID:    roomID,
		From:      s.from,
		To:        s.to,
		ExcludeID: excludeID,
	})
	if err != nil {
		return fmt.Errorf("check availability of room %v: %w", roomID, err)
	}

	if !ok {
		availabilityErr := NewAvailabilityError()
		availabilityErr.AddUnavailableRoom(roomID, s.checkIn(), s.checkOut())

		return availabilityErr
	}

	return nil
}

func (m *Manager) getRoom(ctx context.Context, roomID uint) (*Room, error) {
	room, err := m.storage.GetRoom(ctx, roomID)
	if errors.Is(err, ErrRecordNotFound) {
		inputErr := newInputError()
		inputErr.addError("room_id", "room not found")

		return nil, inputErr
	}

	if err != nil {
		return nil, fmt.Errorf("get room %v: %w", roomID, err)
	}

	return room, nil
}

func (m *Manager) findIdempotent(ctx context.Context) (*Booking, string, error) {
	key, ok := IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, "", nil
	}

	b, err := m.storage.GetBookingByIdempotencyKey(ctx)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, key, nil
	}

	if err != nil {
		return nil, "", fmt.Errorf("get booking by idempotency key: %w", err)
	}

	return b, key, nil
}

func checkOccupancy(room *Room, input *BookInput) error {
	if room.Type.MaxOccupancy <= 0 || input.Adults+input.Kids <= room.Type.MaxOccupancy {
		return nil
	}

	inputErr := newInputError()
	inputErr.addError("adults", fmt.Sprintf("room takes at most %d guests", room.Type.MaxOccupancy))

	return inputErr
}

//nolint:funlen,cyclop // it's linear simple code
func (m *Manager) BookRoom(ctx context.Context, input *BookInput) (*BookResult, error) {
	existing, idempotencyKey, err := m.findIdempotent(ctx)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return &BookResult{Booking: existing}, nil //nolint:exhaustruct
	}

	if err := m.validateStruct(input); err != nil {
		return nil, err
	}

	room, err := m.getRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	s, err := parseStay(input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}

	if err := checkOccupancy(room, input); err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, roomLockKey(room.ID))
	if err != nil {
		return nil, fmt.Errorf("lock room %v: %w", room.ID, err)
	}
	defer unlock()

	// A request with the same key may have finished while this one waited.
	replay, _, err := m.findIdempotent(ctx)
	if err != nil {
		return nil, err
	}

	if replay != nil {
		return &BookResult{Booking: replay}, nil //nolint:exhaustruct
	}

	if err := m.ensureAvailable(ctx, room.ID, s, ""); err != nil {
		return nil, err
	}

	now := m.now()
	quote := m.pricer.Price(room, s.from, s.to)
	promo := m.promo.Apply(quote.Total, input.PromoCode, now)

	//nolint:exhaustruct
	b := &Booking{
		ID:             m.idGenerator.NewBookingID(),
		RoomID:         room.ID,
		UserID:         input.UserID,
		GuestName:      input.GuestName,
		GuestPhone:     input.GuestPhone,
		GuestEmail:     input.GuestEmail,
		CheckIn:        s.checkIn(),
		CheckOut:       s.checkOut(),
		Adults:         input.Adults,
		Kids:           input.Kids,
		Subtotal:       quote.Total,
		Discount:       promo.Discount,
		TotalAmount:    promo.FinalTotal,
		TotalNights:    len(quote.Breakdown),
		Breakdown:      quote.Breakdown,
		Note:           input.Note,
		CreatedAt:      now,
		IdempotencyKey: idempotencyKey,
	}

	if promo.AppliedPromo != nil {
		b.PromoCode = promo.AppliedPromo.Code
	}

	event := m.record(b, StatusPendingPayment, "booking created", now)

	if err := m.insert(ctx, b, event); err != nil {
		if !errors.Is(err, ErrDuplicateIdempotencyKey) {
			return nil, err
		}

		existing, _, findErr := m.findIdempotent(ctx)
		if findErr != nil || existing == nil {
			return nil, errors.Join(err, findErr)
		}

		return &BookResult{Booking: existing}, nil //nolint:exhaustruct
	}

	m.l.LogInfo("[%v] Booking %v (%v) created for room %v from %v to %v", requestTag(ctx), b.ID, b.ConfirmationCode, b.RoomID, b.CheckIn, b.CheckOut)

	m.publish(ctx, event, b)

	return &BookResult{Booking: b.Clone(), PromoError: promo.Err}, nil
}

func (m *Manager) insert(ctx context.Context, b *Booking, event *Event) error {
	for attempt := 1; attempt <= maxConfirmationCodeAttempts; attempt++ {
		code, err := m.idGenerator.NewConfirmationCode()
		if err != nil {
			return fmt.Errorf("generate confirmation code: %w", errors.Join(ErrNextID, err))
		}

		b.ConfirmationCode = code

		err = m.withTransaction(ctx, func(ctx context.Context) error {
			if err := m.storage.InsertBooking(ctx, b); err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}

			if err := m.storage.SaveEvent(ctx, event); err != nil {
				return fmt.Errorf("save event: %w", err)
			}

			return nil
		})
		if errors.Is(err, ErrDuplicateConfirmationCode) {
			m.l.LogInfo("[%v] Confirmation code %v collided (attempt %d), retrying", requestTag(ctx), code, attempt)

			continue
		}

		if err != nil {
			return fmt.Errorf("save booking %v: %w", b.ID, err)
		}

		return nil
	}

	return fmt.Errorf("save booking %v after %d attempts: %w", b.ID, maxConfirmationCodeAttempts, ErrDuplicateConfirmationCode)
}
