package gormdb

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/avstrong/hotelbooking/internal/booking"
)

func (d *DB) GetRoom(ctx context.Context, id uint) (*booking.Room, error) {
	var m roomModel

	if err := d.conn(ctx).Preload("RoomType").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, fmt.Errorf("room %d: %w", id, translate(err))
	}

	room := m.toDomain()

	return &room, nil
}

func (d *DB) GetRooms(ctx context.Context) ([]booking.Room, error) {
	var models []roomModel

	if err := d.conn(ctx).Preload("RoomType").Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("rooms: %w", err)
	}

	return mapAll(models, roomModel.toDomain), nil
}

func (d *DB) GetRateRules(ctx context.Context) ([]booking.RateRule, error) {
	var models []rateRuleModel

	if err := d.conn(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("rate rules: %w", err)
	}

	return mapAll(models, rateRuleModel.toDomain), nil
}

func (d *DB) GetHolidays(ctx context.Context) ([]booking.Holiday, error) {
	var models []holidayModel

	if err := d.conn(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("holidays: %w", err)
	}

	return mapAll(models, holidayModel.toDomain), nil
}

func (d *DB) GetPromotions(ctx context.Context) ([]booking.Promotion, error) {
	var models []promotionModel

	if err := d.conn(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("promotions: %w", err)
	}

	return mapAll(models, promotionModel.toDomain), nil
}

func mapAll[M, T any](items []M, fn func(M) T) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		result = append(result, fn(item))
	}

	return result
}

// upsert writes rows by primary key, overwriting existing ones.
func upsert[T any](ctx context.Context, d *DB, what string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	//nolint:exhaustruct
	err := d.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", what, translate(err))
	}

	return nil
}

func (d *DB) SaveRoomTypes(ctx context.Context, items []booking.RoomType) error {
	return upsert(ctx, d, "room types", mapAll(items, roomTypeToModel))
}

func (d *DB) SaveRooms(ctx context.Context, items []booking.Room) error {
	return upsert(ctx, d, "rooms", mapAll(items, roomToModel))
}

func (d *DB) SaveRateRules(ctx context.Context, items []booking.RateRule) error {
	return upsert(ctx, d, "rate rules", mapAll(items, rateRuleToModel))
}

func (d *DB) SaveHolidays(ctx context.Context, items []booking.Holiday) error {
	return upsert(ctx, d, "holidays", mapAll(items, holidayToModel))
}

func (d *DB) SavePromotions(ctx context.Context, items []booking.Promotion) error {
	return upsert(ctx, d, "promotions", mapAll(items, promotionToModel))
}
