package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrIdempotencyKey            = errors.New("idempotency key not found")
	ErrNextID                    = errors.New("get next id from generator")
	ErrLogic                     = errors.New("logic error")
	ErrRecordNotFound            = errors.New("record not found")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrDuplicateConfirmationCode = errors.New("confirmation code already taken")
	ErrDuplicateIdempotencyKey   = errors.New("idempotency key already used")
	ErrPromoCodeUnknown          = errors.New("promo code not found")
	ErrPromoCodeNotStarted       = errors.New("promo code is not active yet")
	ErrPromoCodeExpired          = errors.New("promo code expired")
)

type AvailabilityError struct {
	errors []string
}

func NewAvailabilityError() *AvailabilityError {
	//nolint:exhaustruct
	return &AvailabilityError{}
}

func IsAvailabilityError(err error) *AvailabilityError {
	if err == nil {
		return nil
	}

	var availabilityError *AvailabilityError

	if errors.As(err, &availabilityError) {
		return availabilityError
	}

	return nil
}

func (e *AvailabilityError) AddUnavailableRoom(roomID uint, checkIn, checkOut string) {
	e.errors = append(e.errors, fmt.Sprintf("room '%v' is unavailable from %v to %v", roomID, checkIn, checkOut))
}

func (e *AvailabilityError) Error() string {
	return strings.Join(e.errors, "; ")
}

func (e *AvailabilityError) Fields() []string {
	return e.errors
}

func (e *AvailabilityError) UnavailableRoomsCount() int {
	return len(e.errors)
}

type InputError struct {
	fields map[string][]string
}

func newInputError() *InputError {
	return &InputError{
		fields: make(map[string][]string),
	}
}

func IsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputError *InputError

	if errors.As(err, &inputError) {
		return inputError
	}

	return nil
}

func (ie *InputError) fieldsCount() int {
	return len(ie.fields)
}

func (ie *InputError) addError(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

// Error renders fields in a stable order.
func (ie *InputError) Error() string {
	keys := make([]string, 0, len(ie.fields))
	for k := range ie.fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(ie.fields[k], ", ")))
	}

	return strings.Join(parts, "; ")
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}
