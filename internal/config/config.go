package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// PayoutRegeneratePolicy controls what happens when payout generation runs for a
// month that already has a payout for an owner.
type PayoutRegeneratePolicy string

const (
	PayoutRegenerateSkip PayoutRegeneratePolicy = "skip"
	PayoutRegenerateFail PayoutRegeneratePolicy = "fail"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	OTLPEndpoint   string
	TracingEnabled bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration

	// Per-contract budget for collaborator reads during a generation run. A
	// contract that exceeds it is reported as failed, the batch keeps going.
	ContractTimeout time.Duration

	// Payments above the remaining balance are rejected unless within this
	// tolerance.
	OverpaymentTolerance decimal.Decimal

	PayoutRegenerate PayoutRegeneratePolicy

	// Automatic generation of last month's bills on the first of each month.
	AutoBillingEnabled bool
	AutoBillingHour    int
	DefaultWapdaRate     decimal.Decimal
	DefaultGeneratorRate decimal.Decimal
	DefaultWaterRate     decimal.Decimal
	DefaultDueDays       int
}

// Load reads configuration from the environment, an optional .env file and an
// optional rentroll.yaml in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("rentroll")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "rentroll")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("environment", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("otlp.endpoint", "localhost:4317")
	v.SetDefault("tracing.enabled", false)

	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "rentroll")
	v.SetDefault("database.user", "rentroll")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conn", 5)
	v.SetDefault("database.max_open_conn", 25)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("billing.contract_timeout", "10s")
	v.SetDefault("payment.overpayment_tolerance", "0")
	v.SetDefault("payout.regenerate_policy", string(PayoutRegenerateSkip))

	v.SetDefault("auto_billing.enabled", false)
	v.SetDefault("auto_billing.hour", 6)
	v.SetDefault("auto_billing.wapda_rate", "0")
	v.SetDefault("auto_billing.generator_rate", "0")
	v.SetDefault("auto_billing.water_rate", "0")
	v.SetDefault("auto_billing.due_days", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppVersion:  v.GetString("app.version"),
		Environment: v.GetString("environment"),
		HTTPAddr:    v.GetString("http.addr"),
		LogLevel:    v.GetString("log.level"),

		OTLPEndpoint:   v.GetString("otlp.endpoint"),
		TracingEnabled: v.GetBool("tracing.enabled"),

		DBType:            v.GetString("database.type"),
		DBHost:            v.GetString("database.host"),
		DBPort:            v.GetString("database.port"),
		DBName:            v.GetString("database.name"),
		DBUser:            v.GetString("database.user"),
		DBPassword:        v.GetString("database.password"),
		DBSSLMode:         v.GetString("database.sslmode"),
		DBMaxIdleConn:     v.GetInt("database.max_idle_conn"),
		DBMaxOpenConn:     v.GetInt("database.max_open_conn"),
		DBConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),

		ContractTimeout: v.GetDuration("billing.contract_timeout"),

		AutoBillingEnabled: v.GetBool("auto_billing.enabled"),
		AutoBillingHour:    v.GetInt("auto_billing.hour"),
		DefaultDueDays:     v.GetInt("auto_billing.due_days"),
	}

	var err error
	if cfg.OverpaymentTolerance, err = decimal.NewFromString(v.GetString("payment.overpayment_tolerance")); err != nil {
		return Config{}, err
	}
	if cfg.DefaultWapdaRate, err = decimal.NewFromString(v.GetString("auto_billing.wapda_rate")); err != nil {
		return Config{}, err
	}
	if cfg.DefaultGeneratorRate, err = decimal.NewFromString(v.GetString("auto_billing.generator_rate")); err != nil {
		return Config{}, err
	}
	if cfg.DefaultWaterRate, err = decimal.NewFromString(v.GetString("auto_billing.water_rate")); err != nil {
		return Config{}, err
	}

	cfg.PayoutRegenerate = normalizeRegeneratePolicy(v.GetString("payout.regenerate_policy"))

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeRegeneratePolicy(raw string) PayoutRegeneratePolicy {
	switch PayoutRegeneratePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PayoutRegenerateFail:
		return PayoutRegenerateFail
	default:
		return PayoutRegenerateSkip
	}
}

// Module wires configuration loading into the application.
var Module = fx.Module("config",
	fx.Provide(Load),
)
