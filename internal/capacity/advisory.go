package capacity

/*
Файл advisory.go — обертка надежности вокруг консультативных чтений
емкости на горячем пути котировки. Чтение по контракту может быть
устаревшим, поэтому здесь допустим оптимистичный fallback: если хранилище
деградировало (выбило предохранитель), считаем остаток равным месячному
лимиту и позволяем котировке состояться — авторитетная проверка все равно
произойдет на атомарном Reserve при bind.

Reserve через эту обертку НЕ ходит: ретрай операции с неизвестным
исходом мог бы занять емкость дважды.
*/

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type AdvisoryReader struct {
	next    Allocator
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAdvisoryReader оборачивает аллокатор предохранителем, ретраями и
// лимитером. onStateChange (опционально) получает переходы предохранителя —
// точка подключения метрик.
func NewAdvisoryReader(next Allocator, logger *zap.Logger, onStateChange func(name string, state gobreaker.State)) *AdvisoryReader {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "capacity-advisory",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("advisory breaker state change",
				zap.String("from", from.String()), zap.String("to", to.String()))
			if onStateChange != nil {
				onStateChange(name, to)
			}
		},
	})

	// Консультативные чтения идут на каждый кандидат-носитель каждой
	// котировки — ограничиваем, чтобы не душить хранилище
	limiter := rate.NewLimiter(rate.Limit(200), 50)

	return &AdvisoryReader{
		next:    next,
		cb:      cb,
		limiter: limiter,
		logger:  logger.Named("capacity-advisory"),
	}
}

// Remaining читает остаток с ретраями и предохранителем. Любой отказ
// деградирует до месячного лимита — оптимистичный ответ для advisory-пути.
func (r *AdvisoryReader) Remaining(ctx context.Context, carrierID, month string, monthlyLimit int) (int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return monthlyLimit, nil
	}

	var remaining int
	_, err := r.cb.Execute(func() (interface{}, error) {
		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)
		return nil, rt.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			var readErr error
			remaining, readErr = r.next.Remaining(tCtx, carrierID, month, monthlyLimit)
			return readErr
		})
	})

	if err != nil {
		r.logger.Warn("advisory capacity read degraded, assuming full limit",
			zap.String("carrier_id", carrierID),
			zap.String("month", month),
			zap.Error(err))
		return monthlyLimit, nil
	}
	return remaining, nil
}
