package payout

import (
	"github.com/rentrollhq/rentroll/internal/payout/repository"
	"github.com/rentrollhq/rentroll/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
