// Package domain contains persistence models for utility meters and their
// period readings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

// MeterType identifies which utility a meter measures.
type MeterType string

const (
	MeterTypeWapda     MeterType = "wapda"
	MeterTypeGenerator MeterType = "generator"
	MeterTypeWater     MeterType = "water"
)

func (t MeterType) Valid() bool {
	switch t {
	case MeterTypeWapda, MeterTypeGenerator, MeterTypeWater:
		return true
	}
	return false
}

// Meter is a measuring device attached to an apartment. Immutable after
// creation except for serial correction.
type Meter struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ApartmentID snowflake.ID `gorm:"not null;index" json:"apartment_id"`
	Type        MeterType    `gorm:"column:meter_type;type:text;not null" json:"meter_type"`
	SerialNo    string       `gorm:"type:text" json:"serial_no"`
	// No column default: gorm drops zero-valued fields that carry one on
	// insert, which would store a retired meter as active.
	IsActive    bool         `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }

// MeterReading is the counter value recorded for one billing period. The
// store is append-only and keyed by (meter, period), so readings entered out
// of chronological order cannot shadow each other.
type MeterReading struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	MeterID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_meter_readings_meter_period,priority:1" json:"meter_id"`
	Period       period.Month    `gorm:"not null;uniqueIndex:ux_meter_readings_meter_period,priority:2" json:"period"`
	ReadingDate  time.Time       `gorm:"not null" json:"reading_date"`
	CurrentUnits decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"current_units"`
	// PreviousUnits is a manual override, honored only when the meter has no
	// earlier reading on record.
	PreviousUnits *decimal.Decimal `gorm:"type:numeric(14,2)" json:"previous_units,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }
