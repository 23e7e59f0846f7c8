package workflow

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestLocker() *KeyedLocker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewKeyedLocker(nil, logger)
}

func (l *KeyedLocker) entryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func TestKeyedLocker_DropsReleasedKeys(t *testing.T) {
	l := newTestLocker()
	ctx := context.Background()

	release := l.Acquire(ctx, "closing:tenant1:id:recStore1:2025-11-19")
	if got := l.entryCount(); got != 1 {
		t.Fatalf("expected 1 live entry while held, got %d", got)
	}
	release()
	if got := l.entryCount(); got != 0 {
		t.Fatalf("released key must leave the map, got %d entries", got)
	}
}

func TestKeyedLocker_ContendedKeySurvivesUntilLastRelease(t *testing.T) {
	l := newTestLocker()
	ctx := context.Background()

	first := l.Acquire(ctx, "budget:tenant1:recStore1:2025-11-17")
	second := make(chan func(), 1)
	go func() { second <- l.Acquire(ctx, "budget:tenant1:recStore1:2025-11-17") }()

	// Give the second acquirer time to register as a waiter.
	time.Sleep(50 * time.Millisecond)
	first()

	release := <-second
	if got := l.entryCount(); got != 1 {
		t.Fatalf("entry must survive while a holder remains, got %d", got)
	}
	release()
	if got := l.entryCount(); got != 0 {
		t.Fatalf("last release must drop the entry, got %d", got)
	}
}
