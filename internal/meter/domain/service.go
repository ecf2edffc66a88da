package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

var (
	ErrMeterNotFound = errors.New("meter_not_found")
	ErrMeterInactive = errors.New("meter_inactive")
	ErrInvalidUnits  = errors.New("invalid_units")
	ErrReadingExists = errors.New("reading_exists")
	// ErrReadingDecreased flags a counter that went backwards since the prior
	// period: an out-of-order entry or a meter replacement. Distinct from a
	// missing reading so operators can tell "no data" from "bad data".
	ErrReadingDecreased = errors.New("reading_decreased")
)

type RecordReadingRequest struct {
	MeterID       string           `json:"meter_id"`
	Month         string           `json:"month"`
	ReadingDate   time.Time        `json:"reading_date"`
	CurrentUnits  decimal.Decimal  `json:"current_units"`
	PreviousUnits *decimal.Decimal `json:"previous_units,omitempty"`
}

// Consumption is the resolved delta for one meter in one billing period.
type Consumption struct {
	MeterID   snowflake.ID
	MeterType MeterType
	Period    period.Month
	Previous  decimal.Decimal
	Current   decimal.Decimal
	Consumed  decimal.Decimal
	// FirstTime marks a meter with no prior history and no manual override:
	// the full current reading counts as consumption.
	FirstTime bool
	// Missing marks a meter with no reading recorded for the period. It
	// contributes zero and the caller is expected to report the condition.
	Missing bool
}

type Service interface {
	RecordReading(ctx context.Context, req RecordReadingRequest) (*MeterReading, error)
	// ResolveConsumption determines prior and current readings for the month
	// and the units consumed. A decreasing counter returns ErrReadingDecreased.
	ResolveConsumption(ctx context.Context, meterID snowflake.ID, month period.Month) (*Consumption, error)
	ActiveMetersForApartments(ctx context.Context, apartmentIDs []snowflake.ID) ([]*Meter, error)
}

// Repository is the persistence boundary for meters and readings.
type Repository interface {
	FindMeter(ctx context.Context, id snowflake.ID) (*Meter, error)
	FindActiveByApartments(ctx context.Context, apartmentIDs []snowflake.ID) ([]*Meter, error)
	FindReading(ctx context.Context, meterID snowflake.ID, month period.Month) (*MeterReading, error)
	// FindPriorReading returns the reading with the greatest period strictly
	// before the given month, or nil.
	FindPriorReading(ctx context.Context, meterID snowflake.ID, before period.Month) (*MeterReading, error)
	InsertReading(ctx context.Context, reading *MeterReading) error
}
