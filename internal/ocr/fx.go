package ocr

import (
	"github.com/smallbiznis/invoicer/internal/ocr/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ocr.service",
	fx.Provide(service.New),
)
