package booking

import "context"

type ctxKey int

const (
	idempotencyKeyCtx ctxKey = iota
	requestIDCtx
)

// NewContextWithIdempotencyKey marks a BookRoom call as a retry-safe request.
func NewContextWithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx, key)
}

func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, idempotencyKeyCtx)
}

func NewContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtx, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDCtx)
}

func stringFromContext(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)

	return v, ok && v != ""
}

// requestTag renders the request id for log lines, or "-" outside a request.
func requestTag(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}

	return "-"
}
