package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/plan/domain"
	"github.com/smallbiznis/invoicer/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Catalog *config.PlanCatalogHolder
}

// Service keeps the selected plan in process memory. Without a selection
// the catalog's default plan, or its first plan, is current.
type Service struct {
	log     *zap.Logger
	catalog *config.PlanCatalogHolder

	mu       sync.RWMutex
	selected string
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("plan.service"),
		catalog: p.Catalog,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	catalog := s.catalog.Get()
	current := s.currentID(catalog)

	plans := make([]domain.SubscriptionPlan, 0, len(catalog.Plans))
	for _, cfg := range catalog.Plans {
		plan, err := toPlan(cfg)
		if err != nil {
			return nil, err
		}
		plan.IsCurrent = plan.ID == current
		plans = append(plans, plan)
	}
	return plans, nil
}

func (s *Service) Current(ctx context.Context) (domain.SubscriptionPlan, error) {
	plans, err := s.List(ctx)
	if err != nil {
		return domain.SubscriptionPlan{}, err
	}
	for _, plan := range plans {
		if plan.IsCurrent {
			return plan, nil
		}
	}
	return domain.SubscriptionPlan{}, domain.ErrPlanNotFound
}

func (s *Service) Select(ctx context.Context, planID string) (domain.SubscriptionPlan, error) {
	planID = strings.ToLower(strings.TrimSpace(planID))
	found := false
	for _, cfg := range s.catalog.Get().Plans {
		if strings.EqualFold(cfg.ID, planID) {
			planID = cfg.ID
			found = true
			break
		}
	}
	if !found {
		return domain.SubscriptionPlan{}, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, planID)
	}

	s.mu.Lock()
	previous := s.selected
	s.selected = planID
	s.mu.Unlock()

	s.log.Info("plan selected", zap.String("plan_id", planID), zap.String("previous", previous))
	return s.Current(ctx)
}

// currentID falls back to the default when the selected plan has been
// removed from the catalog.
func (s *Service) currentID(catalog config.PlanCatalog) string {
	s.mu.RLock()
	selected := s.selected
	s.mu.RUnlock()

	fallback := ""
	for _, cfg := range catalog.Plans {
		if selected != "" && cfg.ID == selected {
			return selected
		}
		if cfg.Default && fallback == "" {
			fallback = cfg.ID
		}
	}
	if fallback == "" && len(catalog.Plans) > 0 {
		fallback = catalog.Plans[0].ID
	}
	return fallback
}

func toPlan(cfg config.PlanConfig) (domain.SubscriptionPlan, error) {
	monthly, err := money.Parse(cfg.PriceMonthly)
	if err != nil {
		return domain.SubscriptionPlan{}, fmt.Errorf("%w: %s monthly", domain.ErrInvalidPlanPrice, cfg.ID)
	}
	yearly, err := money.Parse(cfg.PriceYearly)
	if err != nil {
		return domain.SubscriptionPlan{}, fmt.Errorf("%w: %s yearly", domain.ErrInvalidPlanPrice, cfg.ID)
	}
	features := make([]string, len(cfg.Features))
	copy(features, cfg.Features)
	return domain.SubscriptionPlan{
		ID:           cfg.ID,
		Name:         cfg.Name,
		PriceMonthly: monthly,
		PriceYearly:  yearly,
		Features:     features,
	}, nil
}
