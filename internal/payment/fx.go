package payment

import (
	"github.com/rentrollhq/rentroll/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		service.NewService,
	),
)
