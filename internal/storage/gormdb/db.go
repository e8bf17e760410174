package gormdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrNoTransaction = errors.New("no transaction in context")
)

type trxKey struct{}

type Config struct {
	L      *logger.Logger
	Driver string
	DSN    string
	Debug  bool
}

type DB struct {
	l  *logger.Logger
	db *gorm.DB
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func Open(conf Config) (*DB, error) {
	d, err := dialector(conf.Driver, conf.DSN)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if conf.Debug {
		level = gormlogger.Info
	}

	gl := gormlogger.New(log.New(conf.L.Writer(), "[Gorm]: ", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	//nolint:exhaustruct
	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gl,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", conf.Driver, err)
	}

	return New(conf.L, db), nil
}

func New(l *logger.Logger, db *gorm.DB) *DB {
	return &DB{l: l, db: db}
}

func (d *DB) Migrate(ctx context.Context) error {
	err := d.db.WithContext(ctx).AutoMigrate(
		&roomTypeModel{},
		&roomModel{},
		&rateRuleModel{},
		&holidayModel{},
		&promotionModel{},
		&bookingModel{},
		&eventModel{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close sql db: %w", err)
	}

	return nil
}

func isolation(level string) sql.IsolationLevel {
	switch strings.ToUpper(level) {
	case "READ UNCOMMITTED":
		return sql.LevelReadUncommitted
	case "READ COMMITTED":
		return sql.LevelReadCommitted
	case "REPEATABLE READ":
		return sql.LevelRepeatableRead
	case "SERIALIZABLE":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

func (d *DB) BeginTransaction(ctx context.Context, level string) (context.Context, error) {
	//nolint:exhaustruct
	tx := d.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: isolation(level)})
	if tx.Error != nil {
		return ctx, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	return context.WithValue(ctx, trxKey{}, tx), nil
}

func (d *DB) tx(ctx context.Context) (*gorm.DB, error) {
	tx, ok := ctx.Value(trxKey{}).(*gorm.DB)
	if !ok {
		return nil, ErrNoTransaction
	}

	return tx, nil
}

// conn returns the transaction carried by ctx, or a plain session otherwise.
func (d *DB) conn(ctx context.Context) *gorm.DB {
	if tx, err := d.tx(ctx); err == nil {
		return tx
	}

	return d.db.WithContext(ctx)
}

func (d *DB) CommitTransaction(ctx context.Context) error {
	tx, err := d.tx(ctx)
	if err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", translate(err))
	}

	return nil
}

func (d *DB) RollbackTransaction(ctx context.Context) error {
	tx, err := d.tx(ctx)
	if err != nil {
		return err
	}

	if err := tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(booking.ErrRecordNotFound, err)
	default:
		return err
	}
}

func (d *DB) InsertBooking(ctx context.Context, b *booking.Booking) error {
	m, err := bookingToModel(b)
	if err != nil {
		return err
	}

	if err := d.conn(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert booking %s: %w", b.ID, errors.Join(d.duplicateCause(ctx, m), err))
		}

		return fmt.Errorf("insert booking %s: %w", b.ID, translate(err))
	}

	return nil
}

// duplicateCause finds which unique index rejected m. The lookups run outside
// the caller's transaction, which postgres aborts on the failed insert.
func (d *DB) duplicateCause(ctx context.Context, m *bookingModel) error {
	s := d.db.WithContext(ctx)

	taken := func(column string, value any) bool {
		var n int64

		err := s.Model(&bookingModel{}).Where(column+" = ?", value).Count(&n).Error //nolint:exhaustruct

		return err == nil && n > 0
	}

	switch {
	case m.IdempotencyKey != nil && taken("idempotency_key", *m.IdempotencyKey):
		return booking.ErrDuplicateIdempotencyKey
	case taken("confirmation_code", m.ConfirmationCode):
		return booking.ErrDuplicateConfirmationCode
	default:
		return fmt.Errorf("booking %s already exists: %w", m.ID, booking.ErrLogic)
	}
}

func (d *DB) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	m, err := bookingToModel(b)
	if err != nil {
		return err
	}

	res := d.conn(ctx).
		Model(&bookingModel{}). //nolint:exhaustruct
		Where("id = ?", b.ID).
		Select("*").
		Omit("id", "created_at", "idempotency_key").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, translate(res.Error))
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("update booking %s: %w", b.ID, booking.ErrRecordNotFound)
	}

	return nil
}

func (d *DB) SaveEvent(ctx context.Context, event *booking.Event) error {
	m := eventToModel(event)

	if err := d.conn(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, translate(err))
	}

	return nil
}

func (d *DB) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	var m bookingModel

	if err := d.conn(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, fmt.Errorf("booking %s: %w", id, translate(err))
	}

	return m.toDomain()
}

func (d *DB) GetBookingByIdempotencyKey(ctx context.Context) (*booking.Booking, error) {
	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, booking.ErrIdempotencyKey
	}

	var m bookingModel

	if err := d.conn(ctx).Where("idempotency_key = ?", key).First(&m).Error; err != nil {
		return nil, fmt.Errorf("booking by idempotency key: %w", translate(err))
	}

	return m.toDomain()
}

func (d *DB) findBookings(q *gorm.DB) ([]*booking.Booking, error) {
	var models []bookingModel

	if err := q.Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}

	result := make([]*booking.Booking, 0, len(models))

	for i := range models {
		b, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}

		result = append(result, b)
	}

	return result, nil
}

// QueryBookingsForRoom returns the room's bookings overlapping [From, To),
// leaving out cancelled and checked-out ones.
func (d *DB) QueryBookingsForRoom(ctx context.Context, q booking.BookingQuery) ([]*booking.Booking, error) {
	query := d.conn(ctx).
		Where("room_id = ?", q.RoomID).
		Where("check_in < ? AND check_out > ?", booking.FormatDate(q.To), booking.FormatDate(q.From)).
		Where("status NOT IN ?", []string{string(booking.StatusCancelled), string(booking.StatusCheckedOut)})

	if q.ExcludeID != "" {
		query = query.Where("id <> ?", q.ExcludeID)
	}

	return d.findBookings(query)
}

func (d *DB) ListBookingsByStatus(ctx context.Context, status booking.Status) ([]*booking.Booking, error) {
	return d.findBookings(d.conn(ctx).Where("status = ?", string(status)))
}

func (d *DB) Events(ctx context.Context, bookingID string) ([]booking.Event, error) {
	var models []eventModel

	err := d.conn(ctx).Where("booking_id = ?", bookingID).Order("created_at").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("events of booking %s: %w", bookingID, err)
	}

	result := make([]booking.Event, 0, len(models))
	for _, m := range models {
		result = append(result, booking.Event{
			ID:        m.ID,
			BookingID: m.BookingID,
			Status:    booking.Status(m.Status),
			Note:      m.Note,
			CreatedAt: m.CreatedAt,
		})
	}

	return result, nil
}
