package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avstrong/hotelbooking/internal/availability"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/boost"
	"github.com/avstrong/hotelbooking/internal/config"
	"github.com/avstrong/hotelbooking/internal/idgen/simple"
	memorylock "github.com/avstrong/hotelbooking/internal/lock/memory"
	"github.com/avstrong/hotelbooking/internal/lock/redislock"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/migration"
	"github.com/avstrong/hotelbooking/internal/notify"
	"github.com/avstrong/hotelbooking/internal/pricing"
	"github.com/avstrong/hotelbooking/internal/scheduler"
	"github.com/avstrong/hotelbooking/internal/storage/gormdb"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
	"github.com/avstrong/hotelbooking/internal/transport/web"
)

const shutdownTimeout = 4 * time.Second

// store is everything the service needs from persistence.
type store interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	InsertBooking(ctx context.Context, b *booking.Booking) error
	UpdateBooking(ctx context.Context, b *booking.Booking) error
	SaveEvent(ctx context.Context, event *booking.Event) error
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context) (*booking.Booking, error)
	ListBookingsByStatus(ctx context.Context, status booking.Status) ([]*booking.Booking, error)
	QueryBookingsForRoom(ctx context.Context, q booking.BookingQuery) ([]*booking.Booking, error)
	GetRoom(ctx context.Context, id uint) (*booking.Room, error)
	GetRateRules(ctx context.Context) ([]booking.RateRule, error)
	GetHolidays(ctx context.Context) ([]booking.Holiday, error)
	GetPromotions(ctx context.Context) ([]booking.Promotion, error)
	SaveRoomTypes(ctx context.Context, roomTypes []booking.RoomType) error
	SaveRooms(ctx context.Context, rooms []booking.Room) error
	SaveRateRules(ctx context.Context, rules []booking.RateRule) error
	SaveHolidays(ctx context.Context, holidays []booking.Holiday) error
	SavePromotions(ctx context.Context, promotions []booking.Promotion) error
}

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func openStorage(ctx context.Context, l *logger.Logger, conf config.Storage) (store, func(), error) {
	if conf.Driver == config.DriverMemory {
		return memory.New(memory.Config{L: l.Named("storage")}), func() {}, nil
	}

	dsn, err := conf.DSN()
	if err != nil {
		return nil, nil, fmt.Errorf("build dsn: %w", err)
	}

	db, err := gormdb.Open(gormdb.Config{L: l.Named("storage"), Driver: conf.Driver, DSN: dsn, Debug: conf.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, nil, fmt.Errorf("migrate schema: %w", err)
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			l.LogErrorf("Failed to close storage: %v", err.Error())
		}
	}

	return db, closeFn, nil
}

func openLocker(ctx context.Context, l *logger.Logger, conf config.Redis) (locker, func(), error) {
	if conf.Addr == "" {
		return memorylock.New(), func() {}, nil
	}

	//nolint:exhaustruct
	client := redis.NewClient(&redis.Options{Addr: conf.Addr, Password: conf.Password})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis %s: %w", conf.Addr, err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			l.LogErrorf("Failed to close redis client: %v", err.Error())
		}
	}

	//nolint:exhaustruct
	return redislock.New(redislock.Config{L: l.Named("lock"), TTL: conf.LockTTL}, client), closeFn, nil
}

func newDispatcher(l *logger.Logger, conf config.SMTP) *notify.Dispatcher {
	var sender notify.Sender = notify.NewLogSender(l)

	if conf.Enabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:      conf.Host,
			Port:      conf.Port,
			User:      conf.User,
			Password:  conf.Password,
			FromName:  conf.FromName,
			FromEmail: conf.FromEmail,
		})
	} else {
		l.LogInfo("SMTP is not configured, confirmation mails will only be logged")
	}

	dispatcher := notify.NewDispatcher(l.Named("notify"))
	dispatcher.Subscribe(notify.NewStatusLogger(l))
	dispatcher.Subscribe(notify.NewConfirmationMailer(sender, conf.FromName))

	return dispatcher
}

//nolint:funlen,cyclop // wiring
func Run(l *logger.Logger, envFiles ...string) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	conf, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	storage, closeStorage, err := openStorage(ctx, l, conf.Storage)
	if err != nil {
		return err
	}
	defer closeStorage()

	l.LogInfo("Storage %v is ready", conf.Storage.Driver)

	if conf.Booking.SeedReferenceData {
		if err := migration.Up(ctx, l, storage, migration.Defaults(time.Now().UTC().Year())); err != nil {
			return fmt.Errorf("seed reference data: %w", err)
		}

		l.LogInfo("Reference data has been seeded")
	}

	pricer := pricing.New(l, storage)
	if err := pricer.Load(ctx); err != nil {
		return fmt.Errorf("load rate rules: %w", err)
	}

	promotions := boost.New(l, storage)
	if err := promotions.Load(ctx); err != nil {
		return fmt.Errorf("load promotions: %w", err)
	}

	roomLocker, closeLocker, err := openLocker(ctx, l, conf.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	dispatcher := newDispatcher(l, conf.SMTP)
	defer dispatcher.Wait()

	checker := availability.New(availability.Config{
		L:             l,
		SoftHoldGrace: conf.Booking.SoftHoldGrace,
		FailOpen:      conf.Booking.AvailabilityFailOpen,
		Now:           nil,
	}, storage)

	//nolint:exhaustruct
	bookManager := booking.New(booking.Config{
		L:            l,
		Storage:      storage,
		IDGen:        simple.New(),
		Pricer:       pricer,
		Promo:        promotions,
		Availability: checker,
		Locker:       roomLocker,
		Publisher:    dispatcher,
	})

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	completer := scheduler.New(scheduler.Config{L: l.Named("scheduler"), Interval: conf.Booking.CompletionInterval}, bookManager)

	wg.Add(1)

	go func() {
		defer wg.Done()

		completer.Run(ctx)
	}()

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.New(l.Writer(), "[Http]: ", log.LstdFlags),
		Host:              conf.HTTP.Host,
		Port:              conf.HTTP.Port,
		ReadHeaderTimeout: conf.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  conf.HTTP.LivenessEndpoint,
	}

	srv, err := web.New(ctx, webConf, bookManager, pricer, promotions)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := serve(ctx, l, srv.Srv()); err != nil {
		cancel()

		return err
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

// serve runs srv until ctx is done and shuts it down. A listen failure is
// returned so the process exits non-zero.
func serve(ctx context.Context, l *logger.Logger, srv *http.Server) error {
	stopped := make(chan struct{})

	//nolint:contextcheck
	go func() {
		defer close(stopped)

		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("run http server on %s: %w", srv.Addr, err)
	}

	<-stopped

	return nil
}
