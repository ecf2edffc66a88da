package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/rentrollhq/rentroll/internal/meter/repository"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMeterService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Meter{}, &domain.MeterReading{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)),
		GenID: node,
		Repo:  repository.Provide(db),
	})
	return svc, db, node
}

func seedMeter(t *testing.T, db *gorm.DB, node *snowflake.Node, meterType domain.MeterType) *domain.Meter {
	t.Helper()
	m := &domain.Meter{
		ID:          node.Generate(),
		ApartmentID: node.Generate(),
		Type:        meterType,
		IsActive:    true,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func mustMonth(t *testing.T, raw string) period.Month {
	t.Helper()
	m, err := period.Parse(raw)
	require.NoError(t, err)
	return m
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolveConsumptionDelta(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-06",
		CurrentUnits: dec("1000"),
	})
	require.NoError(t, err)
	_, err = svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("1250"),
	})
	require.NoError(t, err)

	cons, err := svc.ResolveConsumption(ctx, meter.ID, mustMonth(t, "2025-07"))
	require.NoError(t, err)
	assert.True(t, cons.Consumed.Equal(dec("250")), "consumed = %s", cons.Consumed)
	assert.True(t, cons.Previous.Equal(dec("1000")))
	assert.False(t, cons.FirstTime)
	assert.False(t, cons.Missing)
}

func TestResolveConsumptionFirstTime(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWater)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("340"),
	})
	require.NoError(t, err)

	cons, err := svc.ResolveConsumption(ctx, meter.ID, mustMonth(t, "2025-07"))
	require.NoError(t, err)
	assert.True(t, cons.FirstTime)
	assert.True(t, cons.Consumed.Equal(dec("340")))
	assert.True(t, cons.Previous.IsZero())
}

func TestResolveConsumptionManualPrevious(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeGenerator)
	ctx := context.Background()

	prev := dec("900")
	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:       meter.ID.String(),
		Month:         "2025-07",
		CurrentUnits:  dec("1000"),
		PreviousUnits: &prev,
	})
	require.NoError(t, err)

	cons, err := svc.ResolveConsumption(ctx, meter.ID, mustMonth(t, "2025-07"))
	require.NoError(t, err)
	assert.True(t, cons.Consumed.Equal(dec("100")), "consumed = %s", cons.Consumed)
	assert.False(t, cons.FirstTime)
}

func TestRecordReadingDropsManualPreviousWithHistory(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-06",
		CurrentUnits: dec("1000"),
	})
	require.NoError(t, err)

	override := dec("500")
	reading, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:       meter.ID.String(),
		Month:         "2025-07",
		CurrentUnits:  dec("1250"),
		PreviousUnits: &override,
	})
	require.NoError(t, err)
	assert.Nil(t, reading.PreviousUnits)

	cons, err := svc.ResolveConsumption(ctx, meter.ID, mustMonth(t, "2025-07"))
	require.NoError(t, err)
	assert.True(t, cons.Consumed.Equal(dec("250")))
}

func TestResolveConsumptionMissingReading(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)

	cons, err := svc.ResolveConsumption(context.Background(), meter.ID, mustMonth(t, "2025-07"))
	require.NoError(t, err)
	assert.True(t, cons.Missing)
	assert.True(t, cons.Consumed.IsZero())
}

func TestResolveConsumptionDecreasedCounter(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-06",
		CurrentUnits: dec("1250"),
	})
	require.NoError(t, err)
	_, err = svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("1000"),
	})
	require.NoError(t, err)

	_, err = svc.ResolveConsumption(ctx, meter.ID, mustMonth(t, "2025-07"))
	assert.ErrorIs(t, err, domain.ErrReadingDecreased)
}

func TestRecordReadingDuplicatePeriod(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("1000"),
	})
	require.NoError(t, err)

	_, err = svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("1100"),
	})
	assert.ErrorIs(t, err, domain.ErrReadingExists)
}

func TestRecordReadingValidation(t *testing.T) {
	svc, db, node := setupMeterService(t)
	meter := seedMeter(t, db, node, domain.MeterTypeWapda)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-7",
		CurrentUnits: dec("10"),
	})
	assert.ErrorIs(t, err, period.ErrInvalidMonth)

	_, err = svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      meter.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidUnits)

	inactive := &domain.Meter{
		ID:          node.Generate(),
		ApartmentID: node.Generate(),
		Type:        domain.MeterTypeWater,
		IsActive:    false,
	}
	require.NoError(t, db.Create(inactive).Error)

	// the retired flag must survive the insert
	var stored domain.Meter
	require.NoError(t, db.First(&stored, "id = ?", inactive.ID).Error)
	require.False(t, stored.IsActive)

	_, err = svc.RecordReading(ctx, domain.RecordReadingRequest{
		MeterID:      inactive.ID.String(),
		Month:        "2025-07",
		CurrentUnits: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrMeterInactive)
}
