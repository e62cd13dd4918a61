package capacity

/*
Файл allocator.go — аллокатор месячной емкости носителей. Это единственный
разделяемый мутабельный ресурс всего ядра, поэтому контракт жесткий:

  - Reserve — атомарный "прочитай остаток; если > 0 — декрементируй и
    успех; иначе отказ" одним неделимым шагом. Два конкурентных bind,
    увидевших remaining=1, не могут оба преуспеть.
  - Remaining — консультативное чтение для этапа котировки. Может быть
    устаревшим, ничего не резервирует. Резервировать на котировке нельзя:
    большинство котировок никогда не биндится.

Первое обращение к ключу (carrier, month) инициализирует остаток месячным
лимитом носителя. Обратного перехода нет: remaining никогда не растет
(вопрос возврата емкости при отмене открыт, см. DESIGN.md).
*/

import (
	"context"
	"sync"
)

// Allocator — контракт владельца счетчиков (carrier, month)
type Allocator interface {
	// Remaining — консультативный остаток; инициализирует счетчик лимитом
	// при первом использовании ключа в месяце.
	Remaining(ctx context.Context, carrierID, month string, monthlyLimit int) (int, error)

	// Reserve атомарно занимает одну единицу емкости. false — емкость
	// исчерпана; ошибка — проблема хранилища.
	Reserve(ctx context.Context, carrierID, month string, monthlyLimit int) (bool, error)
}

// MemoryAllocator — потокобезопасная реализация в памяти: для тестов и
// однопроцессного запуска без Postgres. Мьютекс делает каждую операцию
// неделимой; инвариант remaining ∈ [0, limit] держится конструктивно.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[string]int)}
}

func key(carrierID, month string) string {
	return carrierID + "|" + month
}

func (a *MemoryAllocator) Remaining(_ context.Context, carrierID, month string, monthlyLimit int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key(carrierID, month)
	if _, ok := a.counters[k]; !ok {
		a.counters[k] = monthlyLimit
	}
	return a.counters[k], nil
}

func (a *MemoryAllocator) Reserve(_ context.Context, carrierID, month string, monthlyLimit int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key(carrierID, month)
	remaining, ok := a.counters[k]
	if !ok {
		remaining = monthlyLimit
	}
	if remaining <= 0 {
		a.counters[k] = 0
		return false, nil
	}
	a.counters[k] = remaining - 1
	return true, nil
}
