package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureStorage копит все записанные события; потокобезопасно
type captureStorage struct {
	mu      sync.Mutex
	events  []Event
	batches int
}

func (c *captureStorage) WriteBatch(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Трейл переиспользует срез батча — копируем
	c.events = append(c.events, append([]Event(nil), events...)...)
	c.batches++
	return nil
}

func (c *captureStorage) snapshot() ([]Event, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...), c.batches
}

func TestTrailDrainsOnStop(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop())
	trail.Start()

	for i := 0; i < 7; i++ {
		trail.Record(Event{ID: fmt.Sprintf("ev_%d", i), Action: ActionQuoteCreated})
	}
	trail.Stop()

	events, _ := storage.snapshot()
	require.Len(t, events, 7, "остановка обязана дописать хвост буфера")
	assert.Equal(t, "ev_0", events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero(), "пустой timestamp проставляется при приеме")
}

func TestTrailFlushesFullBatchWithoutStop(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop())
	trail.Start()
	defer trail.Stop()

	// Порог батча — 100: сотое событие вызывает flush без участия таймера
	for i := 0; i < 100; i++ {
		trail.Record(Event{ID: fmt.Sprintf("ev_%d", i), Action: ActionPolicyBound})
	}

	require.Eventually(t, func() bool {
		events, _ := storage.snapshot()
		return len(events) == 100
	}, 2*time.Second, 10*time.Millisecond)

	_, batches := storage.snapshot()
	assert.Equal(t, 1, batches)
}

func TestTrailDropsEventsAfterStop(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop())
	trail.Start()
	trail.Stop()

	// Канал закрыт: Record не паникует и молча отбрасывает
	trail.Record(Event{ID: "ev_late", Action: ActionQuoteBlocked})

	events, _ := storage.snapshot()
	assert.Empty(t, events)
}

func TestDepthReflectsBufferedEvents(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop())

	// Воркер не запущен: события копятся в канале
	for i := 0; i < 3; i++ {
		trail.Record(Event{ID: fmt.Sprintf("ev_%d", i), Action: ActionQuoteCreated})
	}
	assert.Equal(t, 3, trail.Depth())

	trail.Start()
	trail.Stop()
	assert.Equal(t, 0, trail.Depth(), "после остановки буфер вычитан")
}

func TestTrailKeepsProvidedTimestamp(t *testing.T) {
	storage := &captureStorage{}
	trail := NewTrail(storage, zap.NewNop())
	trail.Start()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	trail.Record(Event{ID: "ev_ts", Action: ActionQuoteCreated, Timestamp: ts})
	trail.Stop()

	events, _ := storage.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, ts, events[0].Timestamp)
}
