package booking

import "time"

// DateLayout is the calendar date format bookings are stored and exchanged with.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusModified       Status = "modified"
	StatusCompleted      Status = "completed"
	StatusCheckedIn      Status = "checked_in"
	StatusCheckedOut     Status = "checked_out"
)

type RuleKind string

const (
	RuleKindHoliday   RuleKind = "holiday"
	RuleKindWeekend   RuleKind = "weekend"
	RuleKindSeasonal  RuleKind = "seasonal"
	RuleKindDateRange RuleKind = "date_range"
)

// PriceMode says how RateRule.Price is interpreted. An empty mode falls back to
// inferring it from the magnitude of the price.
type PriceMode string

const (
	PriceModeFixed      PriceMode = "fixed"
	PriceModeMultiplier PriceMode = "multiplier"
)

type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

type RoomType struct {
	ID           uint    `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	BaseRate     float64 `json:"base_rate"`
	MaxOccupancy int     `json:"max_occupancy"`
}

type Room struct {
	ID          uint     `json:"id"`
	RoomTypeID  uint     `json:"room_type_id"`
	Type        RoomType `json:"room_type"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price,omitempty"`
	HourlyRate  float64  `json:"hourly_rate,omitempty"`
	Floor       int      `json:"floor"`
	SizeSqm     float64  `json:"size_sqm"`
}

// BasePrice is the room's own nightly price or the one of its type.
func (r *Room) BasePrice() float64 {
	if r.Price > 0 {
		return r.Price
	}

	return r.Type.BaseRate
}

func (r *Room) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}

	return r.Type.Name
}

type RateRule struct {
	ID            uint       `json:"id"`
	RoomTypeID    *uint      `json:"room_type_id,omitempty"`
	Kind          RuleKind   `json:"kind"`
	Price         float64    `json:"price"`
	PriceMode     PriceMode  `json:"price_mode,omitempty"`
	Priority      int        `json:"priority"`
	Active        bool       `json:"active"`
	ApplyFriday   bool       `json:"apply_friday"`
	ApplySaturday bool       `json:"apply_saturday"`
	ApplySunday   bool       `json:"apply_sunday"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Description   string     `json:"description,omitempty"`
}

type Holiday struct {
	ID         uint      `json:"id"`
	Date       time.Time `json:"date"`
	Active     bool      `json:"active"`
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier,omitempty"`
}

type Promotion struct {
	ID            uint         `json:"id"`
	Code          string       `json:"code"`
	Active        bool         `json:"active"`
	DiscountKind  DiscountKind `json:"discount_kind"`
	DiscountValue float64      `json:"discount_value"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
}

type NightlyRate struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Rate  float64 `json:"rate"`
}

type Quote struct {
	Total      float64       `json:"total"`
	Breakdown  []NightlyRate `json:"breakdown"`
	HourlyRate float64       `json:"hourly_rate"`
}

type PromoResult struct {
	FinalTotal   float64
	Discount     float64
	AppliedPromo *Promotion
	Err          error
}

type HistoryEntry struct {
	At     time.Time `json:"at"`
	Status Status    `json:"status"`
	Note   string    `json:"note,omitempty"`
}

type Booking struct {
	ID               string         `json:"id"`
	ConfirmationCode string         `json:"confirmation_code"`
	RoomID           uint           `json:"room_id"`
	UserID           string         `json:"user_id,omitempty"`
	GuestName        string         `json:"guest_name,omitempty"`
	GuestPhone       string         `json:"guest_phone,omitempty"`
	GuestEmail       string         `json:"guest_email,omitempty"`
	CheckIn          string         `json:"check_in"`
	CheckOut         string         `json:"check_out"`
	Adults           int            `json:"adults"`
	Kids             int            `json:"kids"`
	Status           Status         `json:"status"`
	Subtotal         float64        `json:"subtotal"`
	Discount         float64        `json:"discount"`
	TotalAmount      float64        `json:"total_amount"`
	TotalNights      int            `json:"total_nights"`
	Breakdown        []NightlyRate  `json:"breakdown"`
	PromoCode        string         `json:"promo_code,omitempty"`
	Note             string         `json:"note,omitempty"`
	CancelReason     string         `json:"cancel_reason,omitempty"`
	PaymentMethod    string         `json:"payment_method,omitempty"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	PaidAt           *time.Time     `json:"paid_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	History          []HistoryEntry `json:"history"`
	IdempotencyKey   string         `json:"-"`
}

// Clone returns a deep copy so callers never share breakdown or history slices.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Breakdown = append([]NightlyRate(nil), b.Breakdown...)
	c.History = append([]HistoryEntry(nil), b.History...)

	if b.PaidAt != nil {
		paidAt := *b.PaidAt
		c.PaidAt = &paidAt
	}

	return &c
}

type Event struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BookInput struct {
	RoomID     uint   `json:"room_id"`
	UserID     string `json:"user_id"     validate:"omitempty,max=128"`
	GuestName  string `json:"guest_name"  validate:"omitempty,max=255"`
	GuestPhone string `json:"guest_phone" validate:"omitempty,max=32"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Adults     int    `json:"adults"      validate:"gte=0,lte=20"`
	Kids       int    `json:"kids"        validate:"gte=0,lte=20"`
	PromoCode  string `json:"promo_code"  validate:"omitempty,max=64"`
	Note       string `json:"note"        validate:"omitempty,max=2000"`
}

type BookResult struct {
	Booking    *Booking
	PromoError error
}

type PaymentInfo struct {
	Method    string `json:"method"    validate:"omitempty,max=64"`
	Reference string `json:"reference" validate:"omitempty,max=128"`
}

type DateChange struct {
	CheckIn  string `json:"check_in"  validate:"required"`
	CheckOut string `json:"check_out" validate:"required"`
}

type BookingQuery struct {
	RoomID    uint
	From      time.Time
	To        time.Time
	ExcludeID string
}
