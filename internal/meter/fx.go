package meter

import (
	"github.com/rentrollhq/rentroll/internal/meter/repository"
	"github.com/rentrollhq/rentroll/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
