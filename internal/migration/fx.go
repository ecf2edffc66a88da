package migration

import (
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/config"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	meterdomain "github.com/rentrollhq/rentroll/internal/meter/domain"
	paymentdomain "github.com/rentrollhq/rentroll/internal/payment/domain"
	payoutdomain "github.com/rentrollhq/rentroll/internal/payout/domain"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		// sqlite and mysql are development targets; let gorm derive the
		// schema from the models there.
		return conn.AutoMigrate(
			&propertydomain.Owner{},
			&propertydomain.Apartment{},
			&propertydomain.OwnerApartment{},
			&contractdomain.Tenant{},
			&contractdomain.Contract{},
			&contractdomain.ContractApartment{},
			&meterdomain.Meter{},
			&meterdomain.MeterReading{},
			&billingdomain.MonthlyBill{},
			&paymentdomain.Payment{},
			&payoutdomain.OwnerPayout{},
			&payoutdomain.OwnerPayoutItem{},
		)
	}),
)
