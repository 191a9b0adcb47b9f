package reminder

import (
	"github.com/smallbiznis/invoicer/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder.service",
	fx.Provide(service.New),
)
