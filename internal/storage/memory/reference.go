package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/avstrong/hotelbooking/internal/booking"
)

func sortedValues[T any](m map[uint]T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))

	for _, k := range keys {
		out = append(out, m[k])
	}

	return out
}

func (db *DB) GetRoom(_ context.Context, id uint) (*booking.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	room, ok := db.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", id, booking.ErrRecordNotFound)
	}

	room.Type = db.roomTypes[room.RoomTypeID]

	return &room, nil
}

func (db *DB) GetRooms(_ context.Context) ([]booking.Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rooms := sortedValues(db.rooms)
	for i := range rooms {
		rooms[i].Type = db.roomTypes[rooms[i].RoomTypeID]
	}

	return rooms, nil
}

func (db *DB) GetRateRules(_ context.Context) ([]booking.RateRule, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return sortedValues(db.rateRules), nil
}

func (db *DB) GetHolidays(_ context.Context) ([]booking.Holiday, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return sortedValues(db.holidays), nil
}

func (db *DB) GetPromotions(_ context.Context) ([]booking.Promotion, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return sortedValues(db.promotions), nil
}

func stage[T any](ctx context.Context, db *DB, items []T, apply func(T)) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		trx.referenceWrites = append(trx.referenceWrites, func() { apply(item) })
	}

	return nil
}

func (db *DB) SaveRoomTypes(ctx context.Context, roomTypes []booking.RoomType) error {
	return stage(ctx, db, roomTypes, func(rt booking.RoomType) { db.roomTypes[rt.ID] = rt })
}

func (db *DB) SaveRooms(ctx context.Context, rooms []booking.Room) error {
	return stage(ctx, db, rooms, func(r booking.Room) {
		r.Type = booking.RoomType{} //nolint:exhaustruct
		db.rooms[r.ID] = r
	})
}

func (db *DB) SaveRateRules(ctx context.Context, rules []booking.RateRule) error {
	return stage(ctx, db, rules, func(r booking.RateRule) { db.rateRules[r.ID] = r })
}

func (db *DB) SaveHolidays(ctx context.Context, holidays []booking.Holiday) error {
	return stage(ctx, db, holidays, func(h booking.Holiday) { db.holidays[h.ID] = h })
}

func (db *DB) SavePromotions(ctx context.Context, promotions []booking.Promotion) error {
	return stage(ctx, db, promotions, func(p booking.Promotion) { db.promotions[p.ID] = p })
}
