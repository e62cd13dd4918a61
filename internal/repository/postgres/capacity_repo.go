package postgres

/*
Файл capacity_repo.go — авторитетный счетчик месячной емкости носителей.

Ключевое свойство Reserve: декремент выполняется ОДНИМ запросом
INSERT .. ON CONFLICT .. DO UPDATE с условием remaining > 0, поэтому при
любом количестве конкурирующих bind-ов счетчик не уходит в минус и не
выдает двойных резервов. Никакого find-or-create на стороне приложения.
*/

import (
	"context"
	"fmt"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// CapacityRepo реализует capacity.Allocator поверх общего пула
type CapacityRepo struct {
	repo *Repo
}

func NewCapacityRepo(repo *Repo) *CapacityRepo {
	return &CapacityRepo{repo: repo}
}

// Remaining — советующее чтение остатка. Строка месяца создается лениво
// с полным лимитом; конкурирующая вставка безвредна (DO NOTHING).
func (c *CapacityRepo) Remaining(ctx context.Context, carrierID, month string, monthlyLimit int) (int, error) {
	_, err := c.repo.pool.Exec(ctx, `
		INSERT INTO carrier_capacity (carrier_id, as_of_month, remaining)
		VALUES ($1, $2, $3)
		ON CONFLICT (carrier_id, as_of_month) DO NOTHING`,
		carrierID, month, monthlyLimit,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to ensure capacity row: %w", err)
	}

	var remaining int
	err = c.repo.pool.QueryRow(ctx, `
		SELECT remaining FROM carrier_capacity
		WHERE carrier_id = $1 AND as_of_month = $2`,
		carrierID, month,
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to read capacity: %w", err)
	}
	return remaining, nil
}

// Reserve пытается занять один слот емкости. false — емкость исчерпана.
//
// Семантика одного запроса:
//   - строки месяца еще нет: вставляется remaining = limit-1 (слот занят);
//   - строка есть и remaining > 0: декремент;
//   - строка есть и remaining = 0: условие WHERE отсекает UPDATE,
//     RowsAffected = 0 — отказ.
func (c *CapacityRepo) Reserve(ctx context.Context, carrierID, month string, monthlyLimit int) (bool, error) {
	if monthlyLimit <= 0 {
		return false, nil
	}

	tag, err := c.repo.pool.Exec(ctx, `
		INSERT INTO carrier_capacity (carrier_id, as_of_month, remaining)
		VALUES ($1, $2, $3 - 1)
		ON CONFLICT (carrier_id, as_of_month) DO UPDATE
		SET remaining = carrier_capacity.remaining - 1
		WHERE carrier_capacity.remaining > 0`,
		carrierID, month, monthlyLimit,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: capacity reserve failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Counter — текущее состояние счетчика для консоли, без ленивого создания
func (c *CapacityRepo) Counter(ctx context.Context, carrierID, month string) (*domain.CapacityCounter, error) {
	counter := &domain.CapacityCounter{}
	err := c.repo.pool.QueryRow(ctx, `
		SELECT carrier_id, as_of_month, remaining, created_at
		FROM carrier_capacity
		WHERE carrier_id = $1 AND as_of_month = $2`,
		carrierID, month,
	).Scan(&counter.CarrierID, &counter.AsOfMonth, &counter.Remaining, &counter.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load capacity counter: %w", err)
	}
	return counter, nil
}
