package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyPrecision is the minor-unit precision of all monetary amounts.
const CurrencyPrecision = 2

// UtilityRates carries the per-unit price of each utility for one generation
// run. Rates are supplied per run, not stored per meter, and apply uniformly
// to every contract in the run.
type UtilityRates struct {
	Wapda     decimal.Decimal `json:"wapda"`
	Generator decimal.Decimal `json:"generator"`
	Water     decimal.Decimal `json:"water"`
}

func (r UtilityRates) Valid() bool {
	return r.Wapda.IsPositive() && r.Generator.IsPositive() && r.Water.IsPositive()
}

// UtilityCharge prices consumed units at the given rate, rounded once to the
// currency's minor units with banker's rounding. Downstream sums of already
// priced charges are never re-rounded.
func UtilityCharge(consumed, rate decimal.Decimal) decimal.Decimal {
	return consumed.Mul(rate).RoundBank(CurrencyPrecision)
}
