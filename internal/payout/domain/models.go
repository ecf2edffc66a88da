// Package domain contains persistence models for monthly owner payouts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of an owner payout. Transitions go
// pending -> cleared -> paid, one step at a time.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusCleared PayoutStatus = "cleared"
	PayoutStatusPaid    PayoutStatus = "paid"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusCleared, PayoutStatusPaid:
		return true
	}
	return false
}

// OwnerPayout is one owner's rent entitlement for one month. The unique
// index keeps a single payout per owner and month.
type OwnerPayout struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_owner_payouts_owner_month,priority:1" json:"owner_id"`
	PayoutMonth period.Month    `gorm:"type:text;not null;uniqueIndex:ux_owner_payouts_owner_month,priority:2" json:"payout_month"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Status      PayoutStatus    `gorm:"type:text;not null;default:pending" json:"status"`
	PayoutDate  *time.Time      `gorm:"" json:"payout_date,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items []OwnerPayoutItem `gorm:"foreignKey:PayoutID" json:"items,omitempty"`
}

// TableName sets the database table name.
func (OwnerPayout) TableName() string { return "owner_payouts" }

// OwnerPayoutItem ties one apartment's rent share of one bill to a payout,
// keeping the payout total auditable down to the bill line.
type OwnerPayoutItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	PayoutID    snowflake.ID    `gorm:"not null;index" json:"payout_id"`
	BillID      snowflake.ID    `gorm:"not null;index" json:"bill_id"`
	ContractID  snowflake.ID    `gorm:"not null" json:"contract_id"`
	ApartmentID snowflake.ID    `gorm:"not null" json:"apartment_id"`
	RentShare   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"rent_share"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OwnerPayoutItem) TableName() string { return "owner_payout_items" }
