package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUtilityCharge(t *testing.T) {
	cases := []struct {
		name     string
		consumed string
		rate     string
		want     string
	}{
		{"whole units", "250", "25.50", "6375.00"},
		{"zero consumption", "0", "25.50", "0.00"},
		{"half cent rounds to even down", "1.5", "0.15", "0.22"},
		{"half cent rounds to even up", "2.5", "0.15", "0.38"},
		{"fractional units", "10.75", "32.4081", "348.39"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := UtilityCharge(dec(tc.consumed), dec(tc.rate))
			assert.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestUtilityRatesValid(t *testing.T) {
	rates := UtilityRates{Wapda: dec("25.50"), Generator: dec("38"), Water: dec("12.25")}
	assert.True(t, rates.Valid())

	assert.False(t, UtilityRates{Wapda: dec("0"), Generator: dec("38"), Water: dec("12")}.Valid())
	assert.False(t, UtilityRates{Wapda: dec("25"), Generator: dec("-1"), Water: dec("12")}.Valid())
}

func TestComponentSum(t *testing.T) {
	bill := MonthlyBill{
		WapdaBill:         dec("6375.00"),
		GeneratorBill:     dec("1140.00"),
		WaterBill:         dec("245.00"),
		Rent:              dec("25000.00"),
		ManagementCharges: dec("3000.00"),
		Arrears:           dec("5000.00"),
		AdditionalCharges: dec("500.00"),
	}
	assert.True(t, bill.ComponentSum().Equal(dec("41260.00")))
}
