package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

type failingStorage struct {
	*memory.DB
}

var errBroken = errors.New("broken")

func (failingStorage) SaveHolidays(context.Context, []booking.Holiday) error {
	return errBroken
}

func TestUpSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	db := memory.New(memory.Config{L: logger.Discard()})

	if err := Up(ctx, logger.Discard(), db, Defaults(2025)); err != nil {
		t.Fatalf("up: %v", err)
	}

	room, err := db.GetRoom(ctx, 101)
	if err != nil || room.Type.Code != "STD" {
		t.Fatalf("expected seeded standard room, got %+v, %v", room, err)
	}

	rules, _ := db.GetRateRules(ctx)
	holidays, _ := db.GetHolidays(ctx)
	promotions, _ := db.GetPromotions(ctx)

	if len(rules) != 3 || len(holidays) != 3 || len(promotions) != 2 {
		t.Fatalf("unexpected seed sizes: %d rules, %d holidays, %d promotions", len(rules), len(holidays), len(promotions))
	}

	// Seeding twice overwrites by id.
	if err := Up(ctx, logger.Discard(), db, Defaults(2025)); err != nil {
		t.Fatalf("second up: %v", err)
	}

	rules, _ = db.GetRateRules(ctx)
	if len(rules) != 3 {
		t.Fatalf("expected idempotent seed, got %d rules", len(rules))
	}
}

func TestUpRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := memory.New(memory.Config{L: logger.Discard()})

	err := Up(ctx, logger.Discard(), failingStorage{DB: db}, Defaults(2025))
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected seed error, got %v", err)
	}

	if _, err := db.GetRoom(ctx, 101); !errors.Is(err, booking.ErrRecordNotFound) {
		t.Fatalf("expected rolled back rooms, got %v", err)
	}
}
