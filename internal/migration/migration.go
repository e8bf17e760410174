package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type storage interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveRoomTypes(ctx context.Context, roomTypes []booking.RoomType) error
	SaveRooms(ctx context.Context, rooms []booking.Room) error
	SaveRateRules(ctx context.Context, rules []booking.RateRule) error
	SaveHolidays(ctx context.Context, holidays []booking.Holiday) error
	SavePromotions(ctx context.Context, promotions []booking.Promotion) error
}

// ReferenceData is the catalogue a fresh installation starts with.
type ReferenceData struct {
	RoomTypes  []booking.RoomType
	Rooms      []booking.Room
	RateRules  []booking.RateRule
	Holidays   []booking.Holiday
	Promotions []booking.Promotion
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func datePtr(year, month, day int) *time.Time {
	d := date(year, month, day)

	return &d
}

//nolint:funlen,gomnd // seed data
func Defaults(year int) ReferenceData {
	return ReferenceData{
		RoomTypes: []booking.RoomType{
			{ID: 1, Code: "STD", Name: "Standard", BaseRate: 120, MaxOccupancy: 2},
			{ID: 2, Code: "DLX", Name: "Deluxe", BaseRate: 180, MaxOccupancy: 3},
			{ID: 3, Code: "FAM", Name: "Family Suite", BaseRate: 260, MaxOccupancy: 5},
		},
		//nolint:exhaustruct
		Rooms: []booking.Room{
			{ID: 101, RoomTypeID: 1, Name: "Standard 101", Floor: 1, SizeSqm: 18},
			{ID: 102, RoomTypeID: 1, Name: "Standard 102", Floor: 1, SizeSqm: 18},
			{ID: 201, RoomTypeID: 2, Name: "Deluxe 201", Floor: 2, SizeSqm: 26, HourlyRate: 40},
			{ID: 202, RoomTypeID: 2, Name: "Deluxe 202 Sea View", Floor: 2, SizeSqm: 28, Price: 195},
			{ID: 301, RoomTypeID: 3, Name: "Family 301", Floor: 3, SizeSqm: 40},
		},
		//nolint:exhaustruct
		RateRules: []booking.RateRule{
			{
				ID:          1,
				Kind:        booking.RuleKindHoliday,
				Price:       1.5,
				PriceMode:   booking.PriceModeMultiplier,
				Priority:    10,
				Active:      true,
				Description: "Holiday rate",
			},
			{
				ID:          2,
				Kind:        booking.RuleKindSeasonal,
				Price:       200,
				PriceMode:   booking.PriceModeFixed,
				Priority:    20,
				Active:      true,
				StartDate:   datePtr(year, 7, 1),
				EndDate:     datePtr(year, 9, 1),
				Description: "Summer season",
			},
			{
				ID:            3,
				Kind:          booking.RuleKindWeekend,
				Price:         1.15,
				Priority:      30,
				Active:        true,
				ApplyFriday:   true,
				ApplySaturday: true,
				Description:   "Weekend rate",
			},
		},
		Holidays: []booking.Holiday{
			{ID: 1, Date: date(year, 1, 1), Active: true, Name: "New Year's Day"},
			{ID: 2, Date: date(year, 5, 1), Active: true, Name: "Labour Day", Multiplier: 1.2},
			{ID: 3, Date: date(year, 12, 25), Active: true, Name: "Christmas Day"},
		},
		Promotions: []booking.Promotion{
			{
				ID:            1,
				Code:          "WELCOME10",
				Active:        true,
				DiscountKind:  booking.DiscountPercent,
				DiscountValue: 10,
				StartDate:     date(year, 1, 1),
				EndDate:       date(year, 12, 31),
			},
			{
				ID:            2,
				Code:          "FLAT50",
				Active:        true,
				DiscountKind:  booking.DiscountFixed,
				DiscountValue: 50,
				StartDate:     date(year, 1, 1),
				EndDate:       date(year, 12, 31),
			},
		},
	}
}

func Up(ctx context.Context, l *logger.Logger, storage storage, data ReferenceData) (err error) {
	ctx, err = storage.BeginTransaction(ctx, "")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v", p)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v", rbErr.Error())
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		if err = storage.CommitTransaction(ctx); err != nil {
			err = fmt.Errorf("commit migration transaction: %w", err)

			return
		}

		l.LogInfo("Migration transaction has been committed")
	}()

	if err = storage.SaveRoomTypes(ctx, data.RoomTypes); err != nil {
		return fmt.Errorf("save room types to storage: %w", err)
	}

	if err = storage.SaveRooms(ctx, data.Rooms); err != nil {
		return fmt.Errorf("save rooms to storage: %w", err)
	}

	if err = storage.SaveRateRules(ctx, data.RateRules); err != nil {
		return fmt.Errorf("save rate rules to storage: %w", err)
	}

	if err = storage.SaveHolidays(ctx, data.Holidays); err != nil {
		return fmt.Errorf("save holidays to storage: %w", err)
	}

	if err = storage.SavePromotions(ctx, data.Promotions); err != nil {
		return fmt.Errorf("save promotions to storage: %w", err)
	}

	return nil
}
