package engine

/*
Файл pause_manager.go — операторский «стоп-кран» для носителей риска.
Консоль снимает носителя с маршрутизации (инцидент, исчерпание договора),
шлюзы узнают об этом через Redis Pub/Sub и держат состояние в локальной
мапе (L1), чтобы проверка на горячем пути не ходила по сети.
*/

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/infra"
)

type CarrierPauseManager struct {
	mu             sync.RWMutex
	pausedCarriers map[string]struct{}
	rdb            *redis.Client
	logger         *zap.Logger
}

func NewCarrierPauseManager(rdb *redis.Client, logger *zap.Logger) *CarrierPauseManager {
	return &CarrierPauseManager{
		pausedCarriers: make(map[string]struct{}),
		rdb:            rdb,
		logger:         logger.Named("pause-manager"),
	}
}

// Init синхронизирует L1 с Redis-сетом: при старте и при каждом
// переподключении. Мапа пересобирается целиком — пропущенные за время
// обрыва unpause-сигналы не оставляют носителя навечно выключенным.
func (m *CarrierPauseManager) Init(ctx context.Context) error {
	ids, err := m.rdb.SMembers(ctx, infra.RedisKeyPausedCarriers).Result()
	if err != nil {
		return err
	}

	fresh := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		fresh[id] = struct{}{}
	}

	m.mu.Lock()
	m.pausedCarriers = fresh
	m.mu.Unlock()
	return nil
}

// IsPaused — проверка на горячем пути маршрутизатора, только L1
func (m *CarrierPauseManager) IsPaused(carrierID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, paused := m.pausedCarriers[carrierID]
	return paused
}

func (m *CarrierPauseManager) markPaused(carrierID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pausedCarriers[carrierID] = struct{}{}
}

func (m *CarrierPauseManager) markResumed(carrierID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pausedCarriers, carrierID)
}

// StartListener подписывается на сигналы консоли и обновляет L1.
// Формат сообщения: "pause:<carrier_id>" либо "unpause:<carrier_id>".
// Подписка живучая: при обрыве соединения состояние пересинхронизируется
// из Redis-сета через Init.
func (m *CarrierPauseManager) StartListener(ctx context.Context) {
	m.logger.Info("carrier pause listener started")

	ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanCarrierPause,
		func() error { return m.Init(ctx) },
		func(verb, carrierID string) {
			switch verb {
			case "pause":
				m.logger.Info("carrier paused by operator", zap.String("carrier_id", carrierID))
				m.markPaused(carrierID)
			case "unpause":
				m.logger.Info("carrier resumed by operator", zap.String("carrier_id", carrierID))
				m.markResumed(carrierID)
			default:
				m.logger.Warn("unknown pause signal verb", zap.String("verb", verb))
			}
		})
}
