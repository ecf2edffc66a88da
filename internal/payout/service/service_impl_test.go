package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	contractrepo "github.com/rentrollhq/rentroll/internal/contract/repository"
	contractservice "github.com/rentrollhq/rentroll/internal/contract/service"
	"github.com/rentrollhq/rentroll/internal/payout/domain"
	payoutrepo "github.com/rentrollhq/rentroll/internal/payout/repository"
	"github.com/rentrollhq/rentroll/internal/period"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	propertyrepo "github.com/rentrollhq/rentroll/internal/property/repository"
	propertyservice "github.com/rentrollhq/rentroll/internal/property/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type payoutFixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	payoutSvc   domain.Service
	contractSvc contractdomain.Service
	propertySvc propertydomain.Service
}

func setupPayout(t *testing.T, policy config.PayoutRegeneratePolicy) *payoutFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&propertydomain.Owner{},
		&propertydomain.Apartment{},
		&propertydomain.OwnerApartment{},
		&contractdomain.Tenant{},
		&contractdomain.Contract{},
		&contractdomain.ContractApartment{},
		&billingdomain.MonthlyBill{},
		&domain.OwnerPayout{},
		&domain.OwnerPayoutItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	contractSvc := contractservice.NewService(contractservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: contractrepo.Provide(db),
	})
	propertySvc := propertyservice.NewService(propertyservice.Params{
		Log: log, Clock: fake, GenID: node, Repo: propertyrepo.Provide(db),
	})
	payoutSvc := NewService(Params{
		Log:   log,
		Clock: fake,
		GenID: node,
		Cfg:   config.Config{PayoutRegenerate: policy},
		Repo:  payoutrepo.Provide(db),
	})

	return &payoutFixture{
		db:          db,
		node:        node,
		clock:       fake,
		payoutSvc:   payoutSvc,
		contractSvc: contractSvc,
		propertySvc: propertySvc,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustMonth(t *testing.T, raw string) period.Month {
	t.Helper()
	m, err := period.Parse(raw)
	require.NoError(t, err)
	return m
}

func (f *payoutFixture) newOwner(t *testing.T, name string) *propertydomain.Owner {
	t.Helper()
	owner := &propertydomain.Owner{ID: f.node.Generate(), Name: name}
	require.NoError(t, f.db.Create(owner).Error)
	return owner
}

func (f *payoutFixture) newApartment(t *testing.T, owner *propertydomain.Owner) *propertydomain.Apartment {
	t.Helper()
	apt := &propertydomain.Apartment{ID: f.node.Generate(), Name: "apt"}
	require.NoError(t, f.db.Create(apt).Error)
	if owner != nil {
		_, err := f.propertySvc.AssignOwner(context.Background(), owner.ID, apt.ID)
		require.NoError(t, err)
	}
	return apt
}

// newContract builds a contract over the given apartments, one charge row
// per apartment with the given rents.
func (f *payoutFixture) newContract(t *testing.T, apartments []*propertydomain.Apartment, rents []string) *contractdomain.Contract {
	t.Helper()
	tenant := &contractdomain.Tenant{ID: f.node.Generate(), Name: "tenant"}
	require.NoError(t, f.db.Create(tenant).Error)

	charges := make([]contractdomain.ApartmentCharge, 0, len(apartments))
	for i, apt := range apartments {
		charges = append(charges, contractdomain.ApartmentCharge{
			ApartmentID: apt.ID.String(),
			Rent:        dec(rents[i]),
		})
	}
	contract, err := f.contractSvc.Create(context.Background(), contractdomain.CreateContractRequest{
		TenantID:   tenant.ID.String(),
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Apartments: charges,
	})
	require.NoError(t, err)
	return contract
}

func (f *payoutFixture) newBill(t *testing.T, contract *contractdomain.Contract, month string, paid bool) *billingdomain.MonthlyBill {
	t.Helper()
	m, err := period.Parse(month)
	require.NoError(t, err)
	bill := &billingdomain.MonthlyBill{
		ID:          f.node.Generate(),
		ContractID:  contract.ID,
		BillMonth:   m,
		IssueDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		Rent:        contract.Rent,
		TotalAmount: contract.Rent,
		Paid:        paid,
	}
	require.NoError(t, f.db.Create(bill).Error)
	return bill
}

func TestGenerateSplitsRentAcrossOwners(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	o2 := f.newOwner(t, "owner two")
	aptA := f.newApartment(t, o1)
	aptB := f.newApartment(t, o2)

	contract := f.newContract(t, []*propertydomain.Apartment{aptA, aptB}, []string{"10000", "15000"})
	f.newBill(t, contract, "2025-07", false)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Unmapped)

	byOwner := map[snowflake.ID]decimal.Decimal{}
	for _, c := range result.Created {
		byOwner[c.OwnerID] = c.TotalAmount
	}
	assert.True(t, byOwner[o1.ID].Equal(dec("10000")), "o1 = %s", byOwner[o1.ID])
	assert.True(t, byOwner[o2.ID].Equal(dec("15000")), "o2 = %s", byOwner[o2.ID])

	// payout totals must add up to the bill's rent
	sum := byOwner[o1.ID].Add(byOwner[o2.ID])
	assert.True(t, sum.Equal(dec("25000")))
}

func TestGenerateReportsUnmappedApartments(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	mapped := f.newApartment(t, o1)
	orphan := f.newApartment(t, nil)

	contract := f.newContract(t, []*propertydomain.Apartment{mapped, orphan}, []string{"10000", "10000"})
	f.newBill(t, contract, "2025-07", false)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Len(t, result.Unmapped, 1)
	assert.Equal(t, orphan.ID, result.Unmapped[0].ApartmentID)
	// the orphan share is withheld, not redistributed
	assert.True(t, result.Created[0].TotalAmount.Equal(dec("10000")))
}

func TestGenerateRegenerationSkipPolicy(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	apt := f.newApartment(t, o1)
	contract := f.newContract(t, []*propertydomain.Apartment{apt}, []string{"10000"})
	f.newBill(t, contract, "2025-07", false)

	first, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, domain.SkipReasonAlreadyExists, second.Skipped[0].Reason)

	var count int64
	require.NoError(t, f.db.Model(&domain.OwnerPayout{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGenerateRegenerationFailPolicy(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateFail)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	apt := f.newApartment(t, o1)
	contract := f.newContract(t, []*propertydomain.Apartment{apt}, []string{"10000"})
	f.newBill(t, contract, "2025-07", false)

	_, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)

	second, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Empty(t, second.Skipped)
	require.Len(t, second.Failed, 1)
	assert.Equal(t, o1.ID, second.Failed[0].OwnerID)
	assert.Equal(t, domain.FailReasonAlreadyExists, second.Failed[0].Reason)
}

// A collision on one owner must not keep the remaining owners from being
// paid out.
func TestGenerateFailPolicyDoesNotAbortBatch(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateFail)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	o2 := f.newOwner(t, "owner two")
	aptA := f.newApartment(t, o1)
	aptB := f.newApartment(t, o2)

	cA := f.newContract(t, []*propertydomain.Apartment{aptA}, []string{"10000"})
	cB := f.newContract(t, []*propertydomain.Apartment{aptB}, []string{"15000"})
	f.newBill(t, cA, "2025-07", false)
	f.newBill(t, cB, "2025-07", false)

	// o1 already has a payout for the month from an earlier run
	require.NoError(t, f.db.Create(&domain.OwnerPayout{
		ID:          f.node.Generate(),
		OwnerID:     o1.ID,
		PayoutMonth: mustMonth(t, "2025-07"),
		TotalAmount: dec("10000"),
		Status:      domain.PayoutStatusPending,
	}).Error)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, o2.ID, result.Created[0].OwnerID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, o1.ID, result.Failed[0].OwnerID)

	var count int64
	require.NoError(t, f.db.Model(&domain.OwnerPayout{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestGenerateNoBills(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)

	_, err := f.payoutSvc.Generate(context.Background(), domain.GenerateRequest{Month: "2025-07"})
	assert.ErrorIs(t, err, domain.ErrNoBillsForMonth)
}

func TestRefreshClearsWhenBillsPaid(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	apt := f.newApartment(t, o1)
	contract := f.newContract(t, []*propertydomain.Apartment{apt}, []string{"10000"})
	bill := f.newBill(t, contract, "2025-07", false)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	payoutID := result.Created[0].PayoutID

	// bill still unpaid: stays pending
	payout, err := f.payoutSvc.Refresh(ctx, payoutID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPending, payout.Status)

	require.NoError(t, f.db.Model(&billingdomain.MonthlyBill{}).
		Where("id = ?", bill.ID).
		Update("paid", true).Error)

	payout, err = f.payoutSvc.Refresh(ctx, payoutID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusCleared, payout.Status)
}

func TestMarkPaidRequiresCleared(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	apt := f.newApartment(t, o1)
	contract := f.newContract(t, []*propertydomain.Apartment{apt}, []string{"10000"})
	bill := f.newBill(t, contract, "2025-07", false)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	payoutID := result.Created[0].PayoutID

	// pending cannot jump straight to paid
	_, err = f.payoutSvc.MarkPaid(ctx, payoutID, time.Time{})
	assert.ErrorIs(t, err, domain.ErrPayoutNotCleared)

	require.NoError(t, f.db.Model(&billingdomain.MonthlyBill{}).
		Where("id = ?", bill.ID).
		Update("paid", true).Error)
	_, err = f.payoutSvc.Refresh(ctx, payoutID)
	require.NoError(t, err)

	payout, err := f.payoutSvc.MarkPaid(ctx, payoutID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, payout.Status)
	require.NotNil(t, payout.PayoutDate)

	_, err = f.payoutSvc.MarkPaid(ctx, payoutID, time.Time{})
	assert.ErrorIs(t, err, domain.ErrPayoutAlreadyPaid)
}

func TestGenerateProratesSplitContract(t *testing.T) {
	f := setupPayout(t, config.PayoutRegenerateSkip)
	ctx := context.Background()

	o1 := f.newOwner(t, "owner one")
	o2 := f.newOwner(t, "owner two")
	aptA := f.newApartment(t, o1)
	aptB := f.newApartment(t, o2)

	// odd rents force a rounding remainder on the proration
	contract := f.newContract(t, []*propertydomain.Apartment{aptA, aptB}, []string{"10001", "9998"})
	f.newBill(t, contract, "2025-07", false)

	result, err := f.payoutSvc.Generate(ctx, domain.GenerateRequest{Month: "2025-07"})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	sum := decimal.Zero
	for _, c := range result.Created {
		sum = sum.Add(c.TotalAmount)
	}
	assert.True(t, sum.Equal(dec("19999")), "sum = %s", sum)
}
