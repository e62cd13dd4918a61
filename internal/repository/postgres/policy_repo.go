package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// SavePolicy атомарно пишет полис и первую запись журнала премий.
// Полис без записи в журнале нарушает сверку, поэтому — транзакция.
func (r *Repo) SavePolicy(ctx context.Context, p *domain.Policy, entry *domain.LedgerEntry) error {
	phJSON, err := json.Marshal(p.Policyholder)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal policyholder: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO policies (id, quote_id, product_code, carrier_id, premium_cents, status,
			effective_date, policyholder, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.QuoteID, p.Product, p.CarrierID, p.PremiumCents, p.Status,
		p.EffectiveDate, phJSON, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save policy: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (id, policy_id, written_premium_cents, written_at)
		VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.PolicyID, entry.WrittenPremiumCents, entry.WrittenAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to append ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: failed to commit bind tx: %w", err)
	}
	return nil
}

func (r *Repo) PolicyByID(ctx context.Context, id string) (*domain.Policy, error) {
	p := &domain.Policy{}
	var phJSON []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, quote_id, product_code, carrier_id, premium_cents, status,
			effective_date, policyholder, created_at
		FROM policies WHERE id = $1`, id).Scan(
		&p.ID, &p.QuoteID, &p.Product, &p.CarrierID, &p.PremiumCents, &p.Status,
		&p.EffectiveDate, &phJSON, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: policy %s: %w", id, domain.ErrPolicyNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to load policy: %w", err)
	}
	if err := json.Unmarshal(phJSON, &p.Policyholder); err != nil {
		return nil, fmt.Errorf("postgres: corrupt policyholder: %w", err)
	}
	return p, nil
}

// ListPolicies — выборка для консоли, новые сверху. carrierID — необязательный фильтр.
func (r *Repo) ListPolicies(ctx context.Context, carrierID string, limit int) ([]domain.Policy, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, quote_id, product_code, carrier_id, premium_cents, status,
			effective_date, policyholder, created_at
		FROM policies`
	args := []interface{}{}
	if carrierID != "" {
		query += ` WHERE carrier_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, carrierID, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list policies: %w", err)
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		var p domain.Policy
		var phJSON []byte
		if err := rows.Scan(&p.ID, &p.QuoteID, &p.Product, &p.CarrierID, &p.PremiumCents, &p.Status,
			&p.EffectiveDate, &phJSON, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy row: %w", err)
		}
		if err := json.Unmarshal(phJSON, &p.Policyholder); err != nil {
			return nil, fmt.Errorf("postgres: corrupt policyholder: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LedgerTotals — агрегаты журнала. month ("YYYY-MM") пустой — весь журнал.
func (r *Repo) LedgerTotals(ctx context.Context, month string) (*domain.LedgerTotals, error) {
	totals := &domain.LedgerTotals{AsOfMonth: month}
	query := `
		SELECT COALESCE(SUM(written_premium_cents), 0), COUNT(DISTINCT policy_id), COUNT(*)
		FROM ledger`
	args := []interface{}{}
	if month != "" {
		query += ` WHERE to_char(written_at, 'YYYY-MM') = $1`
		args = append(args, month)
	}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&totals.TotalWrittenPremiumCents, &totals.TotalPolicies, &totals.TotalEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to aggregate ledger: %w", err)
	}
	return totals, nil
}

func (r *Repo) LedgerEntriesByPolicy(ctx context.Context, policyID string) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, policy_id, written_premium_cents, written_at
		FROM ledger WHERE policy_id = $1 ORDER BY written_at`, policyID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load ledger entries: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PolicyID, &e.WrittenPremiumCents, &e.WrittenAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ledger row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PolicyPremiums — премии подписанных полисов за месяц (в центах) для
// калибровки симулятора. Пустой month — вся история.
func (r *Repo) PolicyPremiums(ctx context.Context, month string) ([]float64, error) {
	query := `SELECT premium_cents FROM policies`
	args := []interface{}{}
	if month != "" {
		query += ` WHERE to_char(created_at, 'YYYY-MM') = $1`
		args = append(args, month)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load policy premiums: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var cents int64
		if err := rows.Scan(&cents); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan premium: %w", err)
		}
		out = append(out, float64(cents))
	}
	return out, rows.Err()
}
