package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "embedins"
)

// Ключи для Sets (состояние)
const (
	// RedisKeyPausedCarriers — носители, снятые оператором с маршрутизации
	RedisKeyPausedCarriers = RedisNamespace + ":carriers:paused_set"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanCarrierPause — канал трансляции pause/unpause от консоли к шлюзам
	RedisChanCarrierPause = RedisNamespace + ":carriers:pause-signal"
)
