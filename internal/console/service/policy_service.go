package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// PolicyRepository — требования к хранилищу полисов и журнала премий
type PolicyRepository interface {
	ListPolicies(ctx context.Context, carrierID string, limit int) ([]domain.Policy, error)
	PolicyByID(ctx context.Context, id string) (*domain.Policy, error)
	LedgerEntriesByPolicy(ctx context.Context, policyID string) ([]domain.LedgerEntry, error)
	LedgerTotals(ctx context.Context, month string) (*domain.LedgerTotals, error)
}

type PolicyService struct {
	repo   PolicyRepository
	logger *zap.Logger
}

func NewPolicyService(repo PolicyRepository, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		repo:   repo,
		logger: logger.Named("policy-service"),
	}
}

// List — портфель полисов, опционально по одному носителю
func (s *PolicyService) List(ctx context.Context, carrierID string, limit int) ([]domain.Policy, error) {
	policies, err := s.repo.ListPolicies(ctx, carrierID, limit)
	if err != nil {
		s.logger.Error("failed to list policies", zap.Error(err))
		return nil, fmt.Errorf("service: could not fetch policies: %w", err)
	}

	// Фронтенд получает пустой массив [], а не null
	if policies == nil {
		return []domain.Policy{}, nil
	}
	return policies, nil
}

// Get — полис с его записями журнала
func (s *PolicyService) Get(ctx context.Context, id string) (*domain.Policy, []domain.LedgerEntry, error) {
	policy, err := s.repo.PolicyByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.repo.LedgerEntriesByPolicy(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return policy, entries, nil
}

// LedgerTotals — агрегаты подписанной премии для сверки
func (s *PolicyService) LedgerTotals(ctx context.Context, month string) (*domain.LedgerTotals, error) {
	totals, err := s.repo.LedgerTotals(ctx, month)
	if err != nil {
		s.logger.Error("failed to aggregate ledger", zap.Error(err))
		return nil, fmt.Errorf("service: could not aggregate ledger: %w", err)
	}
	return totals, nil
}
