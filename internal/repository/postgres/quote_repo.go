package postgres

/*
Файл quote_repo.go хранит неизменяемые снимки котировок. Вложенные
структуры (поля запроса, разложение цены, результат комплаенса) лежат
в jsonb: котировка пишется один раз и читается целиком, реляционная
декомпозиция тут ничего не дает.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

func (r *Repo) SaveQuote(ctx context.Context, q *domain.Quote) error {
	fieldsJSON, err := json.Marshal(q.Fields)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal quote fields: %w", err)
	}
	breakdownJSON, err := json.Marshal(q.Breakdown)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal price breakdown: %w", err)
	}
	complianceJSON, err := json.Marshal(q.Compliance)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal compliance result: %w", err)
	}

	query := `
		INSERT INTO quotes (id, partner_id, product_code, request, risk_band, risk_multiplier,
			price_breakdown, carrier_suggestion, router_rationale, compliance, premium_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		q.ID, q.PartnerID, q.Product, fieldsJSON, q.RiskBand, q.RiskMultiplier,
		breakdownJSON, q.CarrierSuggested, q.RouterRationale, complianceJSON, q.PremiumCents, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save quote: %w", err)
	}
	return nil
}

func (r *Repo) QuoteByID(ctx context.Context, id string) (*domain.Quote, error) {
	query := `
		SELECT id, partner_id, product_code, request, risk_band, risk_multiplier,
			price_breakdown, carrier_suggestion, router_rationale, compliance, premium_cents, created_at
		FROM quotes WHERE id = $1`

	q := &domain.Quote{}
	var fieldsJSON, breakdownJSON, complianceJSON []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.PartnerID, &q.Product, &fieldsJSON, &q.RiskBand, &q.RiskMultiplier,
		&breakdownJSON, &q.CarrierSuggested, &q.RouterRationale, &complianceJSON, &q.PremiumCents, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: quote %s: %w", id, domain.ErrQuoteNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to load quote: %w", err)
	}

	if err := json.Unmarshal(fieldsJSON, &q.Fields); err != nil {
		return nil, fmt.Errorf("postgres: corrupt quote fields: %w", err)
	}
	if err := json.Unmarshal(breakdownJSON, &q.Breakdown); err != nil {
		return nil, fmt.Errorf("postgres: corrupt price breakdown: %w", err)
	}
	if err := json.Unmarshal(complianceJSON, &q.Compliance); err != nil {
		return nil, fmt.Errorf("postgres: corrupt compliance result: %w", err)
	}
	return q, nil
}
