package contract

import (
	"github.com/rentrollhq/rentroll/internal/contract/repository"
	"github.com/rentrollhq/rentroll/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
