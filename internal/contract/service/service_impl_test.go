package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/contract/repository"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupContractService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Tenant{}, &domain.Contract{}, &domain.ContractApartment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)),
		GenID: node,
		Repo:  repository.Provide(db),
	})
	return svc, db, node
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node) *domain.Tenant {
	t.Helper()
	tenant := &domain.Tenant{ID: node.Generate(), Name: "tenant"}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateContractAggregatesCharges(t *testing.T) {
	svc, db, node := setupContractService(t)
	tenant := seedTenant(t, db, node)

	contract, err := svc.Create(context.Background(), domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("25000"), ServiceCharges: dec("3000"), SecurityFee: dec("50000")},
			{ApartmentID: node.Generate().String(), Rent: dec("15000"), ServiceCharges: dec("2000"), SecurityFee: dec("30000")},
		},
	})
	require.NoError(t, err)

	assert.True(t, contract.Rent.Equal(dec("40000")), "rent = %s", contract.Rent)
	assert.True(t, contract.ServiceCharges.Equal(dec("5000")))
	assert.True(t, contract.SecurityFee.Equal(dec("80000")))
	assert.Len(t, contract.Apartments, 2)
	assert.True(t, contract.IsActive)
}

func TestReplaceApartmentsRecomputesTotals(t *testing.T) {
	svc, db, node := setupContractService(t)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	contract, err := svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("25000"), ServiceCharges: dec("3000"), SecurityFee: dec("50000")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.ReplaceApartments(ctx, contract.ID, []domain.ApartmentCharge{
		{ApartmentID: node.Generate().String(), Rent: dec("18000"), ServiceCharges: dec("1500"), SecurityFee: dec("20000")},
		{ApartmentID: node.Generate().String(), Rent: dec("12000"), ServiceCharges: dec("1500"), SecurityFee: dec("20000")},
	})
	require.NoError(t, err)
	assert.True(t, updated.Rent.Equal(dec("30000")), "rent = %s", updated.Rent)
	assert.True(t, updated.ServiceCharges.Equal(dec("3000")))

	reloaded, err := svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Rent.Equal(dec("30000")))
	assert.Len(t, reloaded.Apartments, 2)
}

func TestCreateContractValidation(t *testing.T) {
	svc, db, node := setupContractService(t)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: start,
	})
	assert.ErrorIs(t, err, domain.ErrNoApartments)

	_, err = svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: start,
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("-1")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCharge)

	end := start.AddDate(0, -1, 0)
	_, err = svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: start,
		EndDate:   &end,
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("1000")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDates)

	_, err = svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  node.Generate().String(),
		StartDate: start,
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("1000")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestListActiveForMonth(t *testing.T) {
	svc, db, node := setupContractService(t)
	tenant := seedTenant(t, db, node)
	ctx := context.Background()

	// active through July
	_, err := svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("1000")},
		},
	})
	require.NoError(t, err)

	// ended before July
	ended := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, domain.CreateContractRequest{
		TenantID:  tenant.ID.String(),
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   &ended,
		Apartments: []domain.ApartmentCharge{
			{ApartmentID: node.Generate().String(), Rent: dec("2000")},
		},
	})
	require.NoError(t, err)

	month, err := period.Parse("2025-07")
	require.NoError(t, err)
	active, err := svc.ListActiveForMonth(ctx, month)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Rent.Equal(dec("1000")))
	assert.NotEmpty(t, active[0].Apartments)
}
