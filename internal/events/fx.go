package events

import (
	"context"
	"strings"

	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher connects to the broker when AMQP_URL is set and falls back to
// a publisher that drops events otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	log = log.Named("events")
	url := strings.TrimSpace(cfg.AMQP.URL)
	if url == "" {
		log.Info("amqp disabled, events are dropped")
		return NewNoop(), nil
	}

	publisher, err := DialAMQP(url, cfg.AMQP.Exchange, cfg.AMQP.Queue, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	log.Info("amqp publisher ready",
		zap.String("exchange", cfg.AMQP.Exchange),
		zap.String("queue", cfg.AMQP.Queue),
	)
	return publisher, nil
}
