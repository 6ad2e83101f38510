package policies

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/constants"
	"tourhub/internal/users"
	"tourhub/pkg/cache"

	"github.com/google/uuid"
)

// Service interface defines the policy store operations
type Service interface {
	GetPolicy(ctx context.Context, id uuid.UUID) (*CancellationPolicy, error)
	GetDefaultPolicy(ctx context.Context, tenantID string) (*CancellationPolicy, error)
	ListPolicies(ctx context.Context, tenantID string) ([]CancellationPolicy, error)
	CreatePolicy(ctx context.Context, actor users.Actor, req UpsertPolicyRequest) (*CancellationPolicy, error)
	UpdatePolicy(ctx context.Context, actor users.Actor, id uuid.UUID, req UpsertPolicyRequest) (*CancellationPolicy, error)

	// ResolveForBooking returns the booking's explicit policy, else the
	// tenant default.
	ResolveForBooking(ctx context.Context, tenantID string, policyID *uuid.UUID) (*CancellationPolicy, error)
}

type service struct {
	repo          Repository
	cache         cache.Service
	defaultTenant string
	logger        *slog.Logger
}

// NewService creates a policy service. cacheSvc may be nil.
func NewService(repo Repository, cacheSvc cache.Service, defaultTenant string, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:          repo,
		cache:         cacheSvc,
		defaultTenant: defaultTenant,
		logger:        logger,
	}
}

func (s *service) GetPolicy(ctx context.Context, id uuid.UUID) (*CancellationPolicy, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, id)
	}
	var policy CancellationPolicy
	err := s.cache.GetOrSet(ctx, constants.BuildPolicyDetailKey(id.String()), constants.TTL_POLICY_DETAIL,
		func() (interface{}, error) { return s.repo.GetByID(ctx, id) }, &policy)
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *service) GetDefaultPolicy(ctx context.Context, tenantID string) (*CancellationPolicy, error) {
	tenantID = s.tenant(tenantID)
	if s.cache == nil {
		return s.repo.GetDefault(ctx, tenantID)
	}
	var policy CancellationPolicy
	err := s.cache.GetOrSet(ctx, constants.BuildDefaultPolicyKey(tenantID), constants.TTL_POLICY_DEFAULT,
		func() (interface{}, error) { return s.repo.GetDefault(ctx, tenantID) }, &policy)
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *service) ListPolicies(ctx context.Context, tenantID string) ([]CancellationPolicy, error) {
	return s.repo.List(ctx, s.tenant(tenantID))
}

func (s *service) CreatePolicy(ctx context.Context, actor users.Actor, req UpsertPolicyRequest) (*CancellationPolicy, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can manage cancellation policies")
	}
	rules, err := buildRules(req.Rules)
	if err != nil {
		return nil, err
	}

	policy := &CancellationPolicy{
		ID:          uuid.New(),
		TenantID:    s.tenant(req.TenantID),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsDefault:   req.IsDefault,
		Version:     1,
		Rules:       rules,
	}
	if err := s.save(ctx, policy, 0); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *service) UpdatePolicy(ctx context.Context, actor users.Actor, id uuid.UUID, req UpsertPolicyRequest) (*CancellationPolicy, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can manage cancellation policies")
	}
	if req.Version < 1 {
		return nil, apperrors.Validation("version is required to update a cancellation policy")
	}
	rules, err := buildRules(req.Rules)
	if err != nil {
		return nil, err
	}

	policy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TenantID != "" && req.TenantID != policy.TenantID {
		return nil, apperrors.Validation("a policy cannot move between tenants")
	}
	if policy.Version != req.Version {
		return nil, apperrors.ConcurrencyConflict("cancellation policy is at version %d, not %d", policy.Version, req.Version).
			WithDetail("current_version", policy.Version)
	}

	policy.Name = strings.TrimSpace(req.Name)
	policy.Description = req.Description
	policy.IsDefault = req.IsDefault
	policy.Version = req.Version + 1
	policy.Rules = rules
	if err := s.save(ctx, policy, req.Version); err != nil {
		return nil, err
	}
	return policy, nil
}

func (s *service) ResolveForBooking(ctx context.Context, tenantID string, policyID *uuid.UUID) (*CancellationPolicy, error) {
	if policyID != nil && *policyID != uuid.Nil {
		policy, err := s.GetPolicy(ctx, *policyID)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.PolicyResolution("booking references unknown cancellation policy").
			WithDetail("policy_id", policyID.String())
	}

	policy, err := s.GetDefaultPolicy(ctx, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.PolicyResolution("no default cancellation policy configured").
				WithDetail("tenant_id", s.tenant(tenantID))
		}
		return nil, err
	}
	return policy, nil
}

func (s *service) save(ctx context.Context, policy *CancellationPolicy, expectedVersion int) error {
	cleared, err := s.repo.Save(ctx, policy, expectedVersion)
	if err != nil {
		return err
	}
	s.invalidate(ctx, policy, cleared)
	return nil
}

// invalidate drops cached reads touched by a write, including the details of
// policies that lost the default flag. Failures only log; the TTL bounds
// staleness.
func (s *service) invalidate(ctx context.Context, policy *CancellationPolicy, cleared []uuid.UUID) {
	if s.cache == nil {
		return
	}
	keys := []string{
		constants.BuildPolicyDetailKey(policy.ID.String()),
		constants.BuildDefaultPolicyKey(policy.TenantID),
	}
	for _, id := range cleared {
		keys = append(keys, constants.BuildPolicyDetailKey(id.String()))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate policy cache",
			slog.String("policy_id", policy.ID.String()), slog.String("error", err.Error()))
	}
}

func (s *service) tenant(tenantID string) string {
	if tenantID == "" {
		return s.defaultTenant
	}
	return tenantID
}

// buildRules validates rule terms and returns them sorted by
// HoursBeforeStart descending with positions assigned.
func buildRules(reqs []RuleRequest) ([]CancellationRule, error) {
	if len(reqs) == 0 {
		return nil, apperrors.Validation("a cancellation policy needs at least one rule")
	}

	seen := make(map[int]bool, len(reqs))
	rules := make([]CancellationRule, 0, len(reqs))
	for i, r := range reqs {
		switch {
		case r.HoursBeforeStart < 0:
			return nil, apperrors.Validation("rule %d: hours_before_start must be >= 0", i).WithDetail("rule", i)
		case r.RefundPercentage.IsNegative() || r.RefundPercentage.GreaterThan(hundred):
			return nil, apperrors.Validation("rule %d: refund_percentage must be between 0 and 100", i).WithDetail("rule", i)
		case r.ProcessingFee.IsNegative():
			return nil, apperrors.Validation("rule %d: processing_fee must be >= 0", i).WithDetail("rule", i)
		case seen[r.HoursBeforeStart]:
			return nil, apperrors.Validation("rule %d: duplicate hours_before_start %d", i, r.HoursBeforeStart).WithDetail("rule", i)
		}
		seen[r.HoursBeforeStart] = true

		rules = append(rules, CancellationRule{
			HoursBeforeStart: r.HoursBeforeStart,
			RefundPercentage: r.RefundPercentage.Round(2),
			ProcessingFee:    r.ProcessingFee.Round(2),
			Description:      strings.TrimSpace(r.Description),
		})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].HoursBeforeStart > rules[j].HoursBeforeStart
	})
	for i := range rules {
		rules[i].Position = i
	}
	return rules, nil
}
