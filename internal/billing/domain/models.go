// Package domain contains the monthly bill model and the billing math.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

// MonthlyBill is the invoice produced for one contract and one month. It is
// created exactly once per (contract, month) and afterwards only the paid
// flag moves, driven by the payment ledger.
type MonthlyBill struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID snowflake.ID `gorm:"not null;uniqueIndex:ux_monthly_bills_contract_month,priority:1" json:"contract_id"`
	BillMonth  period.Month `gorm:"not null;uniqueIndex:ux_monthly_bills_contract_month,priority:2" json:"bill_month"`
	IssueDate  time.Time    `gorm:"not null" json:"issue_date"`
	DueDate    time.Time    `gorm:"not null" json:"due_date"`

	WapdaUnits     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"wapda_units"`
	WapdaRate      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"wapda_rate"`
	WapdaBill      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"wapda_bill"`
	GeneratorUnits decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"generator_units"`
	GeneratorRate  decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"generator_rate"`
	GeneratorBill  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"generator_bill"`
	WaterUnits     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"water_units"`
	WaterRate      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"water_rate"`
	WaterBill      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"water_bill"`

	Rent              decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rent"`
	ManagementCharges decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"management_charges"`
	Arrears           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"arrears"`
	AdditionalCharges decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"additional_charges"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`

	Paid      bool      `gorm:"not null;default:false" json:"paid"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MonthlyBill) TableName() string { return "monthly_bills" }

// ComponentSum adds the seven amount fields of the bill. TotalAmount must
// always equal it.
func (b MonthlyBill) ComponentSum() decimal.Decimal {
	return b.WapdaBill.
		Add(b.GeneratorBill).
		Add(b.WaterBill).
		Add(b.Rent).
		Add(b.ManagementCharges).
		Add(b.Arrears).
		Add(b.AdditionalCharges)
}
