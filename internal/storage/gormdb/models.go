package gormdb

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/avstrong/hotelbooking/internal/booking"
)

type roomTypeModel struct {
	ID           uint   `gorm:"primaryKey"`
	Code         string `gorm:"size:16;uniqueIndex"`
	Name         string `gorm:"size:128"`
	BaseRate     float64
	MaxOccupancy int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (roomTypeModel) TableName() string { return "room_types" }

type roomModel struct {
	ID          uint          `gorm:"primaryKey"`
	RoomTypeID  uint          `gorm:"index;not null"`
	RoomType    roomTypeModel `gorm:"foreignKey:RoomTypeID;references:ID"`
	Name        string        `gorm:"size:128"`
	Description string        `gorm:"type:text"`
	Price       float64
	HourlyRate  float64
	Floor       int
	SizeSqm     float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (roomModel) TableName() string { return "rooms" }

type rateRuleModel struct {
	ID            uint   `gorm:"primaryKey"`
	RoomTypeID    *uint  `gorm:"index"`
	Kind          string `gorm:"size:32;not null"`
	Price         float64
	PriceMode     string `gorm:"size:16"`
	Priority      int    `gorm:"not null;default:100"`
	Active        bool   `gorm:"not null;default:true"`
	ApplyFriday   bool
	ApplySaturday bool
	ApplySunday   bool
	StartDate     *time.Time `gorm:"type:date"`
	EndDate       *time.Time `gorm:"type:date"`
	Description   string     `gorm:"size:255"`
}

func (rateRuleModel) TableName() string { return "rate_rules" }

type holidayModel struct {
	ID         uint      `gorm:"primaryKey"`
	Date       time.Time `gorm:"type:date;index"`
	Active     bool      `gorm:"not null;default:true"`
	Name       string    `gorm:"size:128"`
	Multiplier float64
}

func (holidayModel) TableName() string { return "holiday_calendar" }

type promotionModel struct {
	ID            uint   `gorm:"primaryKey"`
	Code          string `gorm:"size:64;index"`
	Active        bool   `gorm:"not null;default:true"`
	DiscountKind  string `gorm:"size:16"`
	DiscountValue float64
	StartDate     time.Time `gorm:"type:date"`
	EndDate       time.Time `gorm:"type:date"`
}

func (promotionModel) TableName() string { return "promotions" }

type bookingModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	ConfirmationCode string `gorm:"size:16;uniqueIndex"`
	RoomID           uint   `gorm:"index:idx_bookings_room_dates"`
	UserID           string `gorm:"size:128;index"`
	GuestName        string `gorm:"size:255"`
	GuestPhone       string `gorm:"size:32"`
	GuestEmail       string `gorm:"size:255"`
	CheckIn          string `gorm:"size:10;index:idx_bookings_room_dates"`
	CheckOut         string `gorm:"size:10;index:idx_bookings_room_dates"`
	Adults           int
	Kids             int
	Status           string `gorm:"size:32;index"`
	Subtotal         float64
	Discount         float64
	TotalAmount      float64
	TotalNights      int
	Breakdown        datatypes.JSON
	PromoCode        string `gorm:"size:64"`
	Note             string `gorm:"type:text"`
	CancelReason     string `gorm:"type:text"`
	PaymentMethod    string `gorm:"size:64"`
	PaymentReference string `gorm:"size:128"`
	PaidAt           *time.Time
	History          datatypes.JSON
	IdempotencyKey   *string   `gorm:"size:128;uniqueIndex"`
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (bookingModel) TableName() string { return "bookings" }

type eventModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	BookingID string `gorm:"size:36;index"`
	Status    string `gorm:"size:32"`
	Note      string `gorm:"type:text"`
	CreatedAt time.Time
}

func (eventModel) TableName() string { return "booking_events" }

func roomTypeToModel(rt booking.RoomType) roomTypeModel {
	//nolint:exhaustruct
	return roomTypeModel{
		ID:           rt.ID,
		Code:         rt.Code,
		Name:         rt.Name,
		BaseRate:     rt.BaseRate,
		MaxOccupancy: rt.MaxOccupancy,
	}
}

func (m roomTypeModel) toDomain() booking.RoomType {
	return booking.RoomType{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		BaseRate:     m.BaseRate,
		MaxOccupancy: m.MaxOccupancy,
	}
}

func roomToModel(r booking.Room) roomModel {
	//nolint:exhaustruct
	return roomModel{
		ID:          r.ID,
		RoomTypeID:  r.RoomTypeID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		HourlyRate:  r.HourlyRate,
		Floor:       r.Floor,
		SizeSqm:     r.SizeSqm,
	}
}

func (m roomModel) toDomain() booking.Room {
	return booking.Room{
		ID:          m.ID,
		RoomTypeID:  m.RoomTypeID,
		Type:        m.RoomType.toDomain(),
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		HourlyRate:  m.HourlyRate,
		Floor:       m.Floor,
		SizeSqm:     m.SizeSqm,
	}
}

func rateRuleToModel(r booking.RateRule) rateRuleModel {
	return rateRuleModel{
		ID:            r.ID,
		RoomTypeID:    r.RoomTypeID,
		Kind:          string(r.Kind),
		Price:         r.Price,
		PriceMode:     string(r.PriceMode),
		Priority:      r.Priority,
		Active:        r.Active,
		ApplyFriday:   r.ApplyFriday,
		ApplySaturday: r.ApplySaturday,
		ApplySunday:   r.ApplySunday,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Description:   r.Description,
	}
}

func (m rateRuleModel) toDomain() booking.RateRule {
	return booking.RateRule{
		ID:            m.ID,
		RoomTypeID:    m.RoomTypeID,
		Kind:          booking.RuleKind(m.Kind),
		Price:         m.Price,
		PriceMode:     booking.PriceMode(m.PriceMode),
		Priority:      m.Priority,
		Active:        m.Active,
		ApplyFriday:   m.ApplyFriday,
		ApplySaturday: m.ApplySaturday,
		ApplySunday:   m.ApplySunday,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		Description:   m.Description,
	}
}

func holidayToModel(h booking.Holiday) holidayModel {
	return holidayModel(h)
}

func (m holidayModel) toDomain() booking.Holiday {
	return booking.Holiday(m)
}

func promotionToModel(p booking.Promotion) promotionModel {
	return promotionModel{
		ID:            p.ID,
		Code:          p.Code,
		Active:        p.Active,
		DiscountKind:  string(p.DiscountKind),
		DiscountValue: p.DiscountValue,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
	}
}

func (m promotionModel) toDomain() booking.Promotion {
	return booking.Promotion{
		ID:            m.ID,
		Code:          m.Code,
		Active:        m.Active,
		DiscountKind:  booking.DiscountKind(m.DiscountKind),
		DiscountValue: m.DiscountValue,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
	}
}

func bookingToModel(b *booking.Booking) (*bookingModel, error) {
	breakdown, err := json.Marshal(b.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}

	history, err := json.Marshal(b.History)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	var idempotencyKey *string
	if b.IdempotencyKey != "" {
		key := b.IdempotencyKey
		idempotencyKey = &key
	}

	return &bookingModel{
		ID:               b.ID,
		ConfirmationCode: b.ConfirmationCode,
		RoomID:           b.RoomID,
		UserID:           b.UserID,
		GuestName:        b.GuestName,
		GuestPhone:       b.GuestPhone,
		GuestEmail:       b.GuestEmail,
		CheckIn:          b.CheckIn,
		CheckOut:         b.CheckOut,
		Adults:           b.Adults,
		Kids:             b.Kids,
		Status:           string(b.Status),
		Subtotal:         b.Subtotal,
		Discount:         b.Discount,
		TotalAmount:      b.TotalAmount,
		TotalNights:      b.TotalNights,
		Breakdown:        datatypes.JSON(breakdown),
		PromoCode:        b.PromoCode,
		Note:             b.Note,
		CancelReason:     b.CancelReason,
		PaymentMethod:    b.PaymentMethod,
		PaymentReference: b.PaymentReference,
		PaidAt:           b.PaidAt,
		History:          datatypes.JSON(history),
		IdempotencyKey:   idempotencyKey,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}, nil
}

func (m *bookingModel) toDomain() (*booking.Booking, error) {
	//nolint:exhaustruct
	b := &booking.Booking{
		ID:               m.ID,
		ConfirmationCode: m.ConfirmationCode,
		RoomID:           m.RoomID,
		UserID:           m.UserID,
		GuestName:        m.GuestName,
		GuestPhone:       m.GuestPhone,
		GuestEmail:       m.GuestEmail,
		CheckIn:          m.CheckIn,
		CheckOut:         m.CheckOut,
		Adults:           m.Adults,
		Kids:             m.Kids,
		Status:           booking.Status(m.Status),
		Subtotal:         m.Subtotal,
		Discount:         m.Discount,
		TotalAmount:      m.TotalAmount,
		TotalNights:      m.TotalNights,
		PromoCode:        m.PromoCode,
		Note:             m.Note,
		CancelReason:     m.CancelReason,
		PaymentMethod:    m.PaymentMethod,
		PaymentReference: m.PaymentReference,
		PaidAt:           m.PaidAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	if m.IdempotencyKey != nil {
		b.IdempotencyKey = *m.IdempotencyKey
	}

	if len(m.Breakdown) > 0 {
		if err := json.Unmarshal(m.Breakdown, &b.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown of booking %s: %w", m.ID, err)
		}
	}

	if len(m.History) > 0 {
		if err := json.Unmarshal(m.History, &b.History); err != nil {
			return nil, fmt.Errorf("unmarshal history of booking %s: %w", m.ID, err)
		}
	}

	return b, nil
}

func eventToModel(e *booking.Event) eventModel {
	return eventModel{
		ID:        e.ID,
		BookingID: e.BookingID,
		Status:    string(e.Status),
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}
