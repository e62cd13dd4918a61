package service

/*
Файл carrier_service.go — операторское управление носителями риска.
Pause/unpause работает без деплоя: состояние живет в Redis-сете
(источник правды между рестартами шлюзов), сигнал раздается по Pub/Sub,
шлюзы обновляют свой L1-кэш мгновенно.
*/

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
)

// CapacityViewer — чтение счетчиков емкости для витрины консоли
type CapacityViewer interface {
	Remaining(ctx context.Context, carrierID, month string, monthlyLimit int) (int, error)
}

// CarrierView — носитель глазами оператора
type CarrierView struct {
	domain.Carrier
	Paused bool `json:"paused"`
}

// CapacityView — состояние месячного окна емкости
type CapacityView struct {
	CarrierID    string `json:"carrier_id"`
	AsOfMonth    string `json:"as_of_month"`
	MonthlyLimit int    `json:"monthly_limit"`
	Remaining    int    `json:"remaining"`
	Paused       bool   `json:"paused"`
}

type CarrierService struct {
	ref      *refdata.Store
	capacity CapacityViewer
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewCarrierService(ref *refdata.Store, capacity CapacityViewer, rdb *redis.Client, logger *zap.Logger) *CarrierService {
	return &CarrierService{
		ref:      ref,
		capacity: capacity,
		rdb:      rdb,
		logger:   logger.Named("carrier-service"),
	}
}

// List возвращает всех носителей справочника с операторским статусом
func (s *CarrierService) List(ctx context.Context) ([]CarrierView, error) {
	paused, err := s.pausedSet(ctx)
	if err != nil {
		// Redis недоступен — показываем носителей без статуса паузы,
		// консоль полезнее деградированная, чем мертвая
		s.logger.Warn("paused set unavailable", zap.Error(err))
		paused = map[string]struct{}{}
	}

	carriers := s.ref.Carriers()
	views := make([]CarrierView, 0, len(carriers))
	for _, c := range carriers {
		_, isPaused := paused[c.ID]
		views = append(views, CarrierView{Carrier: c, Paused: isPaused})
	}
	return views, nil
}

// Capacity — остаток месячного окна носителя
func (s *CarrierService) Capacity(ctx context.Context, carrierID, month string) (*CapacityView, error) {
	carrier, err := s.ref.Carrier(carrierID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.capacity.Remaining(ctx, carrier.ID, month, carrier.CapacityMonthlyLimit)
	if err != nil {
		return nil, fmt.Errorf("service: capacity read failed: %w", err)
	}

	isPaused, err := s.rdb.SIsMember(ctx, infra.RedisKeyPausedCarriers, carrier.ID).Result()
	if err != nil {
		s.logger.Warn("paused check failed", zap.String("carrier_id", carrierID), zap.Error(err))
	}

	return &CapacityView{
		CarrierID:    carrier.ID,
		AsOfMonth:    month,
		MonthlyLimit: carrier.CapacityMonthlyLimit,
		Remaining:    remaining,
		Paused:       isPaused,
	}, nil
}

// Pause выводит носителя из маршрутизации на всех шлюзах
func (s *CarrierService) Pause(ctx context.Context, carrierID string) error {
	return s.setPauseState(ctx, carrierID, true)
}

// Unpause возвращает носителя в ротацию
func (s *CarrierService) Unpause(ctx context.Context, carrierID string) error {
	return s.setPauseState(ctx, carrierID, false)
}

// setPauseState — унифицированный механизм переключения состояния.
// Обновляет Redis-сет и транслирует сигнал шлюзам.
func (s *CarrierService) setPauseState(ctx context.Context, carrierID string, paused bool) error {
	// Валидируем против справочника: пауза несуществующего носителя — ошибка оператора
	if _, err := s.ref.Carrier(carrierID); err != nil {
		return err
	}

	verb := "unpause"
	var stateErr error
	if paused {
		verb = "pause"
		stateErr = s.rdb.SAdd(ctx, infra.RedisKeyPausedCarriers, carrierID).Err()
	} else {
		stateErr = s.rdb.SRem(ctx, infra.RedisKeyPausedCarriers, carrierID).Err()
	}
	if stateErr != nil {
		s.logger.Error("failed to persist pause state",
			zap.String("carrier_id", carrierID),
			zap.String("action", verb),
			zap.Error(stateErr))
		return fmt.Errorf("service: %s state update failed: %w", verb, stateErr)
	}

	// Real-time Signaling
	payload := fmt.Sprintf("%s:%s", verb, carrierID)
	if err := s.rdb.Publish(ctx, infra.RedisChanCarrierPause, payload).Err(); err != nil {
		// Состояние уже в сете: шлюзы догонят его на переподключении слушателя
		s.logger.Warn("runtime signal delivery failed",
			zap.String("channel", infra.RedisChanCarrierPause),
			zap.Error(err))
	} else {
		s.logger.Info("carrier state updated successfully",
			zap.String("carrier_id", carrierID),
			zap.String("action", verb))
	}
	return nil
}

func (s *CarrierService) pausedSet(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.rdb.SMembers(ctx, infra.RedisKeyPausedCarriers).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
