package openai

import (
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/flow"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("flow.generator",
	fx.Provide(NewGenerator),
)

// NewGenerator picks the flow backend from configuration. Without a usable
// OpenAI configuration every flow fails with a generation error.
func NewGenerator(cfg config.Config, log *zap.Logger) flow.Generator {
	log = log.Named("flow.generator")

	if cfg.AI.Provider != "" && cfg.AI.Provider != "openai" {
		log.Warn("unsupported ai provider, flows disabled", zap.String("provider", cfg.AI.Provider))
		return flow.Unavailable("unsupported provider " + cfg.AI.Provider)
	}

	gen, err := New(Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	})
	if err != nil {
		log.Warn("openai generator not configured, flows disabled", zap.Error(err))
		return flow.Unavailable(err.Error())
	}

	log.Info("openai generator ready", zap.String("model", cfg.AI.Model))
	return gen
}
