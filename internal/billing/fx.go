package billing

import (
	"github.com/rentrollhq/rentroll/internal/billing/repository"
	"github.com/rentrollhq/rentroll/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
