package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PlanConfig is one entry of the subscription plan catalog.
type PlanConfig struct {
	ID           string   `mapstructure:"id" json:"id"`
	Name         string   `mapstructure:"name" json:"name"`
	PriceMonthly string   `mapstructure:"priceMonthly" json:"price_monthly"`
	PriceYearly  string   `mapstructure:"priceYearly" json:"price_yearly"`
	Features     []string `mapstructure:"features" json:"features"`
	Default      bool     `mapstructure:"default" json:"default"`
}

type PlanCatalog struct {
	Plans []PlanConfig `mapstructure:"plans"`
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Plans: []PlanConfig{
			{
				ID:           "free",
				Name:         "Free",
				PriceMonthly: "0",
				PriceYearly:  "0",
				Features:     []string{"Up to 10 invoices per month", "Basic reports"},
				Default:      true,
			},
			{
				ID:           "premium",
				Name:         "Premium",
				PriceMonthly: "19",
				PriceYearly:  "190",
				Features: []string{
					"Unlimited invoices",
					"Advanced reports",
					"AI payment reminders",
					"Receipt OCR",
				},
			},
		},
	}
}

// PlanCatalogHolder keeps the latest valid catalog and swaps it when the
// backing file changes.
type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

// NewStaticPlanCatalogHolder wraps a fixed catalog.
func NewStaticPlanCatalogHolder(catalog PlanCatalog) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewPlanCatalogHolder(cfg Config, log *zap.Logger) (*PlanCatalogHolder, error) {
	log = log.Named("config.plans")

	v := viper.New()
	if path := strings.TrimSpace(cfg.PlansFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("plans")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/invoicer")
		v.AddConfigPath(".")
	}

	defaults := DefaultPlanCatalog()
	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read plans: %w", err)
		}
		fromFile = false
	}

	catalog := defaults
	if fromFile {
		var loaded PlanCatalog
		if err := v.Unmarshal(&loaded); err != nil {
			return nil, fmt.Errorf("decode plans: %w", err)
		}
		if err := validatePlanCatalog(loaded); err != nil {
			return nil, err
		}
		catalog = loaded
	}

	holder := NewStaticPlanCatalogHolder(catalog)
	if !fromFile {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.Unmarshal(&updated); err != nil {
			log.Warn("plan catalog reload failed", zap.Error(err))
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Warn("invalid plan catalog ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("plan catalog reloaded", zap.String("file", filepath.Base(e.Name)))
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func validatePlanCatalog(catalog PlanCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := make(map[string]struct{}, len(catalog.Plans))
	for _, p := range catalog.Plans {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return errors.New("plan id is required")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate plan id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
