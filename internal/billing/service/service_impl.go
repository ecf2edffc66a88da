package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	meterdomain "github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/rentrollhq/rentroll/internal/observability"
	paymentdomain "github.com/rentrollhq/rentroll/internal/payment/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	pkgdb "github.com/rentrollhq/rentroll/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        domain.Repository
	ContractSvc contractdomain.Service
	MeterSvc    meterdomain.Service
	PaymentSvc  paymentdomain.Service
	Metrics     *observability.Metrics `optional:"true"`
}

type Service struct {
	log             *zap.Logger
	clock           clock.Clock
	genID           *snowflake.Node
	contractTimeout time.Duration
	repo            domain.Repository
	contractSvc     contractdomain.Service
	meterSvc        meterdomain.Service
	paymentSvc      paymentdomain.Service
	metrics         *observability.Metrics
}

func NewService(p Params) domain.Service {
	timeout := p.Cfg.ContractTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		log:             p.Log.Named("billing.service"),
		clock:           p.Clock,
		genID:           p.GenID,
		contractTimeout: timeout,
		repo:            p.Repo,
		contractSvc:     p.ContractSvc,
		meterSvc:        p.MeterSvc,
		paymentSvc:      p.PaymentSvc,
		metrics:         p.Metrics,
	}
}

// Generate runs one billing batch. Request-level validation fails the whole
// call before any write; after that every contract is processed on its own
// and its outcome lands in exactly one of the result's three partitions.
// Cancelling the context stops the loop but leaves committed bills intact.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	month, err := period.Parse(req.Month)
	if err != nil {
		return nil, err
	}
	if !req.Rates.Valid() {
		return nil, domain.ErrInvalidRates
	}
	if req.IssueDate.IsZero() || req.DueDate.Before(req.IssueDate) {
		return nil, domain.ErrInvalidDates
	}
	if req.AdditionalCharges.IsNegative() {
		return nil, domain.ErrInvalidAdditional
	}

	started := s.clock.Now()
	result := &domain.GenerateResult{
		RunID: uuid.NewString(),
		Month: month,
	}

	contracts, err := s.contractSvc.ListActiveForMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("run_id", result.RunID),
		zap.String("month", month.String()),
	)
	log.Info("bill generation started", zap.Int("contracts", len(contracts)))

	for _, contract := range contracts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		created, skipped, failed := s.processContract(ctx, contract, month, req)
		switch {
		case created != nil:
			result.Created = append(result.Created, *created)
			s.count("created")
		case skipped != nil:
			result.Skipped = append(result.Skipped, *skipped)
			s.count("skipped")
		case failed != nil:
			result.Failed = append(result.Failed, *failed)
			s.count("failed")
			log.Warn("contract failed",
				zap.String("contract_id", failed.ContractID.String()),
				zap.String("reason", failed.Reason),
			)
		}
	}

	if s.metrics != nil {
		s.metrics.GenerationDuration.Observe(time.Since(started).Seconds())
	}
	log.Info("bill generation finished",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// processContract runs steps 1-5 for a single contract. The returned values
// are mutually exclusive. Collaborator reads are bounded by the per-contract
// timeout; the bill insert itself is one transaction, so a bill is either
// fully written or not written at all.
func (s *Service) processContract(
	ctx context.Context,
	contract *contractdomain.Contract,
	month period.Month,
	req domain.GenerateRequest,
) (*domain.CreatedBill, *domain.SkippedContract, *domain.FailedContract) {

	cctx, cancel := context.WithTimeout(ctx, s.contractTimeout)
	defer cancel()

	fail := func(reason string) (*domain.CreatedBill, *domain.SkippedContract, *domain.FailedContract) {
		return nil, nil, &domain.FailedContract{ContractID: contract.ID, Reason: reason}
	}

	exists, err := s.repo.ExistsForMonth(cctx, contract.ID, month)
	if err != nil {
		return fail(fmt.Sprintf("existence check: %v", err))
	}
	if exists {
		return nil, &domain.SkippedContract{
			ContractID: contract.ID,
			Reason:     domain.SkipReasonAlreadyExists,
		}, nil
	}

	if len(contract.Apartments) == 0 {
		return fail(contractdomain.ErrNoApartments.Error())
	}

	apartmentIDs := make([]snowflake.ID, 0, len(contract.Apartments))
	for _, a := range contract.Apartments {
		apartmentIDs = append(apartmentIDs, a.ApartmentID)
	}

	meters, err := s.meterSvc.ActiveMetersForApartments(cctx, apartmentIDs)
	if err != nil {
		return fail(fmt.Sprintf("meter lookup: %v", err))
	}

	units := map[meterdomain.MeterType]decimal.Decimal{
		meterdomain.MeterTypeWapda:     decimal.Zero,
		meterdomain.MeterTypeGenerator: decimal.Zero,
		meterdomain.MeterTypeWater:     decimal.Zero,
	}
	var warnings []string

	for _, m := range meters {
		cons, err := s.meterSvc.ResolveConsumption(cctx, m.ID, month)
		if err != nil {
			if errors.Is(err, meterdomain.ErrReadingDecreased) {
				return fail(err.Error())
			}
			return fail(fmt.Sprintf("consumption for meter %s: %v", m.ID, err))
		}
		if cons.Missing {
			// contributes zero, reported on the created entry
			warnings = append(warnings, fmt.Sprintf("no reading for %s meter %s in %s", m.Type, m.ID, month))
			continue
		}
		units[m.Type] = units[m.Type].Add(cons.Consumed)
	}

	arrears, err := s.resolveArrears(cctx, contract.ID, month)
	if err != nil {
		return fail(fmt.Sprintf("arrears: %v", err))
	}

	now := s.clock.Now()
	bill := &domain.MonthlyBill{
		ID:         s.genID.Generate(),
		ContractID: contract.ID,
		BillMonth:  month,
		IssueDate:  req.IssueDate.UTC(),
		DueDate:    req.DueDate.UTC(),

		WapdaUnits:     units[meterdomain.MeterTypeWapda],
		WapdaRate:      req.Rates.Wapda,
		WapdaBill:      domain.UtilityCharge(units[meterdomain.MeterTypeWapda], req.Rates.Wapda),
		GeneratorUnits: units[meterdomain.MeterTypeGenerator],
		GeneratorRate:  req.Rates.Generator,
		GeneratorBill:  domain.UtilityCharge(units[meterdomain.MeterTypeGenerator], req.Rates.Generator),
		WaterUnits:     units[meterdomain.MeterTypeWater],
		WaterRate:      req.Rates.Water,
		WaterBill:      domain.UtilityCharge(units[meterdomain.MeterTypeWater], req.Rates.Water),

		Rent:              contract.Rent,
		ManagementCharges: contract.ServiceCharges,
		Arrears:           arrears,
		AdditionalCharges: req.AdditionalCharges,

		CreatedAt: now,
		UpdatedAt: now,
	}
	bill.TotalAmount = bill.ComponentSum()

	if err := s.repo.Insert(cctx, bill); err != nil {
		// lost the race against a concurrent run; the unique index is the
		// authoritative guard
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, &domain.SkippedContract{
				ContractID: contract.ID,
				Reason:     domain.SkipReasonAlreadyExists,
			}, nil
		}
		return fail(fmt.Sprintf("persist bill: %v", err))
	}

	return &domain.CreatedBill{
		BillID:      bill.ID,
		ContractID:  contract.ID,
		TotalAmount: bill.TotalAmount,
		Warnings:    warnings,
	}, nil, nil
}

func (s *Service) CheckBillsExist(ctx context.Context, month period.Month) (*domain.ExistsResult, error) {
	count, err := s.repo.CountForMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return &domain.ExistsResult{Month: month, Exists: count > 0, Count: count}, nil
}

func (s *Service) Get(ctx context.Context, billID snowflake.ID) (*domain.MonthlyBill, error) {
	bill, err := s.repo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	return bill, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBillsRequest) (*domain.ListBillsResult, error) {
	bills, pageInfo, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}
	return &domain.ListBillsResult{Bills: bills, PageInfo: pageInfo}, nil
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.BillsGenerated.WithLabelValues(result).Inc()
	}
}
