package audit

/*
Файл trail.go реализует аудит-трейл андеррайтинга — асинхронный сборщик
бизнес-событий (котировка создана/заблокирована, полис привязан, отказ
по емкости) с пакетной записью в PostgreSQL.

Ключевые свойства:
- Non-blocking Logging: события уходят в буферизованный канал; задержки
  БД не влияют на время ответа котировочного пути.
- Batching: накопление в памяти и Bulk Insert по лимиту (100 событий)
  или таймеру.
- Drain Pattern: при остановке канал закрывается, воркер вычитывает
  остатки и делает финальный flush — события не теряются на рестарте.
- Load Shedding: при переполнении буфера событие не блокирует запрос,
  а уходит в обычный лог как потеря.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

// Recorder — интерфейс для котировочного ядра
type Recorder interface {
	Record(event Event)
}

type Trail struct {
	ch     chan Event
	repo   StorageInterface
	logger *zap.Logger
	wg     sync.WaitGroup
	// Защита от Record после остановки
	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewTrail(repo StorageInterface, logger *zap.Logger) *Trail {
	return &Trail{
		ch:     make(chan Event, 10000), // Очередь на 10к событий
		repo:   repo,
		logger: logger.With(zap.String("mod", "audit-trail")),
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет
func (t *Trail) Stop() {
	atomic.StoreInt32(&t.isClosed, 1)

	// Даем крошечную паузу, чтобы текущие Record успели проскочить
	time.Sleep(10 * time.Millisecond)

	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

func (t *Trail) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("audit event dropped: trail is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case t.ch <- event:
	default:
		// Backpressure: буфер полон, фиксируем потерю в обычном логе
		t.logger.Error("audit_buffer_overflow",
			zap.String("trace_id", event.TraceID),
			zap.String("action", string(event.Action)))
	}
}

// Depth — текущая заполненность буфера; читается экспортером метрик
func (t *Trail) Depth() int {
	return len(t.ch)
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]Event, 0, 100)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст на shutdown уже может быть закрыт
			if err := t.repo.WriteBatch(context.Background(), batch); err != nil {
				t.logger.Error("audit flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case event, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали все, финальный flush, выходим
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
