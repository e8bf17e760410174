package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "room:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(waitCtx, "room:1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to time out, got %v", err)
	}

	other, err := l.Lock(ctx, "room:2")
	if err != nil {
		t.Fatalf("expected other key to be free: %v", err)
	}

	other()

	unlock()
	unlock()

	again, err := l.Lock(ctx, "room:1")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}

	again()
}

func TestLockHandsOver(t *testing.T) {
	l := New()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "room:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})

	go func() {
		release, err := l.Lock(ctx, "room:1")
		if err != nil {
			t.Errorf("waiting lock: %v", err)

			return
		}

		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatalf("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired the lock")
	}
}
