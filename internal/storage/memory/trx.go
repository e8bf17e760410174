package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/avstrong/hotelbooking/internal/booking"
)

var (
	ErrNoTransaction       = errors.New("no storage transaction in context")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type trxKey struct{}

func withTransactionID(ctx context.Context, trxID string) context.Context {
	return context.WithValue(ctx, trxKey{}, trxID)
}

type bookingWrite struct {
	booking *booking.Booking
	insert  bool
}

type transaction struct {
	id                string
	bookingWrites     map[string]bookingWrite
	bookingOrder      []string
	eventWrites       []*booking.Event
	referenceWrites   []func()
	pendingCodes      map[string]string
	pendingIdempotent map[string]string
}

// trx must be called with db.mu held.
func (db *DB) trx(ctx context.Context) (*transaction, error) {
	trxID, _ := ctx.Value(trxKey{}).(string)
	if trxID == "" {
		return nil, ErrNoTransaction
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}
