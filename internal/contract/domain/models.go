// Package domain contains persistence models for tenants and lease contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tenant is the party renting under a contract.
type Tenant struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Phone     string            `gorm:"type:text" json:"phone"`
	Email     string            `gorm:"type:text" json:"email"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Contract is a lease over one or more apartments. Rent, ServiceCharges and
// SecurityFee are the sums of the per-apartment charge rows and are
// recomputed whenever the apartment set changes, never at bill time.
type Contract struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	StartDate      time.Time       `gorm:"not null" json:"start_date"`
	EndDate        *time.Time      `gorm:"" json:"end_date,omitempty"`
	// No column default, so an inactive contract round-trips as written.
	IsActive       bool            `gorm:"not null" json:"is_active"`
	Rent           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rent"`
	ServiceCharges decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"service_charges"`
	SecurityFee    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"security_fee"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Apartments []ContractApartment `gorm:"foreignKey:ContractID" json:"apartments,omitempty"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }

// ContractApartment is one apartment's charge breakdown under a contract, as
// entered at contract-creation time.
type ContractApartment struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	ContractID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_apartments,priority:1" json:"contract_id"`
	ApartmentID    snowflake.ID    `gorm:"not null;uniqueIndex:ux_contract_apartments,priority:2" json:"apartment_id"`
	Rent           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rent"`
	ServiceCharges decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"service_charges"`
	SecurityFee    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"security_fee"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ContractApartment) TableName() string { return "contract_apartments" }

// ChargeTotals is the contract-level aggregation of its apartment charges.
type ChargeTotals struct {
	Rent           decimal.Decimal
	ServiceCharges decimal.Decimal
	SecurityFee    decimal.Decimal
}

// AggregateCharges sums per-apartment figures into contract totals. This is
// the single place the contract-level invariant is produced.
func AggregateCharges(apartments []ContractApartment) ChargeTotals {
	totals := ChargeTotals{
		Rent:           decimal.Zero,
		ServiceCharges: decimal.Zero,
		SecurityFee:    decimal.Zero,
	}
	for _, a := range apartments {
		totals.Rent = totals.Rent.Add(a.Rent)
		totals.ServiceCharges = totals.ServiceCharges.Add(a.ServiceCharges)
		totals.SecurityFee = totals.SecurityFee.Add(a.SecurityFee)
	}
	return totals
}
