package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type SubscriptionPlan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PriceMonthly decimal.Decimal `json:"price_monthly"`
	PriceYearly  decimal.Decimal `json:"price_yearly"`
	Features     []string        `json:"features"`
	IsCurrent    bool            `json:"is_current"`
}

type Service interface {
	List(context.Context) ([]SubscriptionPlan, error)
	Current(context.Context) (SubscriptionPlan, error)
	Select(ctx context.Context, planID string) (SubscriptionPlan, error)
}

var (
	ErrPlanNotFound     = errors.New("plan_not_found")
	ErrInvalidPlanPrice = errors.New("invalid_plan_price")
)
