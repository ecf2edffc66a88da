package property

import (
	"github.com/rentrollhq/rentroll/internal/property/repository"
	"github.com/rentrollhq/rentroll/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
