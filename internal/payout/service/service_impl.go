package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/observability"
	"github.com/rentrollhq/rentroll/internal/payout/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	pkgdb "github.com/rentrollhq/rentroll/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Cfg     config.Config
	Repo    domain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	policy  config.PayoutRegeneratePolicy
	repo    domain.Repository
	metrics *observability.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("payout.service"),
		clock:   p.Clock,
		genID:   p.GenID,
		policy:  p.Cfg.PayoutRegenerate,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// accrual collects one owner's share lines while the month's bills are walked.
type accrual struct {
	total decimal.Decimal
	items []domain.OwnerPayoutItem
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	month, err := period.Parse(req.Month)
	if err != nil {
		return nil, err
	}

	result := &domain.GenerateResult{
		RunID: uuid.NewString(),
		Month: month,
	}
	log := s.log.With(
		zap.String("run_id", result.RunID),
		zap.String("month", month.String()),
	)

	// The bill read and the payout writes share one transaction, so a run
	// aggregates a single snapshot of the month.
	err = s.repo.InTx(ctx, func(repo domain.Repository) error {
		bills, err := repo.BillsForMonth(ctx, month)
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrNoBillsForMonth, month)
		}
		log.Info("payout generation started", zap.Int("bills", len(bills)))

		accruals, err := s.accrue(ctx, repo, bills, result)
		if err != nil {
			return err
		}

		ownerIDs := make([]snowflake.ID, 0, len(accruals))
		for id := range accruals {
			ownerIDs = append(ownerIDs, id)
		}
		sort.Slice(ownerIDs, func(i, j int) bool { return ownerIDs[i] < ownerIDs[j] })

		for _, ownerID := range ownerIDs {
			created, skipped, failed, err := s.persistPayout(ctx, repo, ownerID, month, accruals[ownerID])
			if err != nil {
				return err
			}
			if created != nil {
				result.Created = append(result.Created, *created)
				s.count("created")
			}
			if skipped != nil {
				result.Skipped = append(result.Skipped, *skipped)
				s.count("skipped")
			}
			if failed != nil {
				result.Failed = append(result.Failed, *failed)
				s.count("failed")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("payout generation finished",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("unmapped", len(result.Unmapped)),
	)
	return result, nil
}

// accrue walks the month's bills and collects each owner's rent share lines.
// Apartments without an owner on record land in the result's unmapped list
// and their share is withheld.
func (s *Service) accrue(ctx context.Context, repo domain.Repository, bills []*billingdomain.MonthlyBill, result *domain.GenerateResult) (map[snowflake.ID]*accrual, error) {
	accruals := map[snowflake.ID]*accrual{}
	contracts := map[snowflake.ID]*contractdomain.Contract{}
	owners := map[snowflake.ID]*propertydomain.Owner{}

	for _, bill := range bills {
		contract, ok := contracts[bill.ContractID]
		if !ok {
			var err error
			contract, err = repo.ContractWithApartments(ctx, bill.ContractID)
			if err != nil {
				return nil, fmt.Errorf("contract %s for bill %s: %w", bill.ContractID, bill.ID, err)
			}
			if contract == nil {
				return nil, fmt.Errorf("contract %s for bill %s: %w", bill.ContractID, bill.ID, contractdomain.ErrContractNotFound)
			}
			contracts[bill.ContractID] = contract
		}

		shares := rentShares(bill.Rent, contract)
		for i, apt := range contract.Apartments {
			owner, ok := owners[apt.ApartmentID]
			if !ok {
				var err error
				owner, err = repo.OwnerForApartment(ctx, apt.ApartmentID)
				if err != nil {
					return nil, fmt.Errorf("owner for apartment %s: %w", apt.ApartmentID, err)
				}
				owners[apt.ApartmentID] = owner
			}
			if owner == nil {
				result.Unmapped = append(result.Unmapped, domain.UnmappedApartment{
					ApartmentID: apt.ApartmentID,
					BillID:      bill.ID,
				})
				continue
			}

			acc := accruals[owner.ID]
			if acc == nil {
				acc = &accrual{total: decimal.Zero}
				accruals[owner.ID] = acc
			}
			acc.total = acc.total.Add(shares[i])
			acc.items = append(acc.items, domain.OwnerPayoutItem{
				ID:          s.genID.Generate(),
				BillID:      bill.ID,
				ContractID:  bill.ContractID,
				ApartmentID: apt.ApartmentID,
				RentShare:   shares[i],
			})
		}
	}
	return accruals, nil
}

// persistPayout writes one owner's payout. A collision with an earlier run
// lands in the skipped or failed partition per the regeneration policy; it
// never aborts the remaining owners.
func (s *Service) persistPayout(ctx context.Context, repo domain.Repository, ownerID snowflake.ID, month period.Month, acc *accrual) (*domain.CreatedPayout, *domain.SkippedOwner, *domain.FailedOwner, error) {
	existing, err := repo.FindByOwnerMonth(ctx, ownerID, month)
	if err != nil {
		return nil, nil, nil, err
	}
	if existing != nil {
		return nil, s.skipOwner(ownerID), s.failOwner(ownerID), nil
	}

	now := s.clock.Now()
	payout := &domain.OwnerPayout{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		PayoutMonth: month,
		TotalAmount: acc.total,
		Status:      domain.PayoutStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range acc.items {
		acc.items[i].PayoutID = payout.ID
		acc.items[i].CreatedAt = now
	}
	payout.Items = acc.items

	if err := repo.InsertPayout(ctx, payout); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, s.skipOwner(ownerID), s.failOwner(ownerID), nil
		}
		return nil, nil, nil, err
	}

	return &domain.CreatedPayout{
		PayoutID:    payout.ID,
		OwnerID:     ownerID,
		TotalAmount: payout.TotalAmount,
		Items:       len(payout.Items),
	}, nil, nil, nil
}

// skipOwner and failOwner translate an existing-payout collision into the
// partition the configured policy calls for. Exactly one returns non-nil.
func (s *Service) skipOwner(ownerID snowflake.ID) *domain.SkippedOwner {
	if s.policy == config.PayoutRegenerateFail {
		return nil
	}
	return &domain.SkippedOwner{OwnerID: ownerID, Reason: domain.SkipReasonAlreadyExists}
}

func (s *Service) failOwner(ownerID snowflake.ID) *domain.FailedOwner {
	if s.policy != config.PayoutRegenerateFail {
		return nil
	}
	return &domain.FailedOwner{OwnerID: ownerID, Reason: domain.FailReasonAlreadyExists}
}

// rentShares prorates a bill's rent across the contract's apartments by
// their agreed rent weight. The last share absorbs the rounding remainder so
// the shares always sum to the bill's rent exactly.
func rentShares(billRent decimal.Decimal, contract *contractdomain.Contract) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(contract.Apartments))
	if len(shares) == 0 {
		return shares
	}
	if contract.Rent.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}
	allocated := decimal.Zero
	for i, apt := range contract.Apartments {
		if i == len(shares)-1 {
			shares[i] = billRent.Sub(allocated)
			break
		}
		shares[i] = billRent.Mul(apt.Rent).Div(contract.Rent).RoundBank(billingdomain.CurrencyPrecision)
		allocated = allocated.Add(shares[i])
	}
	return shares
}

func (s *Service) Refresh(ctx context.Context, payoutID snowflake.ID) (*domain.OwnerPayout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, domain.ErrPayoutNotFound
	}
	if payout.Status != domain.PayoutStatusPending {
		return payout, nil
	}

	billIDs := make([]snowflake.ID, 0, len(payout.Items))
	for _, item := range payout.Items {
		billIDs = append(billIDs, item.BillID)
	}
	bills, err := s.repo.BillsByIDs(ctx, billIDs)
	if err != nil {
		return nil, err
	}
	if !allPaid(bills, billIDs) {
		return payout, nil
	}

	payout.Status = domain.PayoutStatusCleared
	payout.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdatePayout(ctx, payout); err != nil {
		return nil, err
	}
	s.log.Info("payout cleared",
		zap.String("payout_id", payout.ID.String()),
		zap.String("month", payout.PayoutMonth.String()),
	)
	return payout, nil
}

// allPaid holds only when every referenced bill was found and is paid.
// Several items can point at the same bill, so matching goes by ID set.
func allPaid(bills []*billingdomain.MonthlyBill, wanted []snowflake.ID) bool {
	paid := make(map[snowflake.ID]bool, len(bills))
	for _, b := range bills {
		paid[b.ID] = b.Paid
	}
	for _, id := range wanted {
		if !paid[id] {
			return false
		}
	}
	return true
}

func (s *Service) MarkPaid(ctx context.Context, payoutID snowflake.ID, date time.Time) (*domain.OwnerPayout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, domain.ErrPayoutNotFound
	}
	switch payout.Status {
	case domain.PayoutStatusPaid:
		return nil, domain.ErrPayoutAlreadyPaid
	case domain.PayoutStatusPending:
		return nil, domain.ErrPayoutNotCleared
	}

	if date.IsZero() {
		date = s.clock.Now()
	}
	paidOn := date.UTC()
	payout.Status = domain.PayoutStatusPaid
	payout.PayoutDate = &paidOn
	payout.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdatePayout(ctx, payout); err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *Service) Get(ctx context.Context, payoutID snowflake.ID) (*domain.OwnerPayout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, domain.ErrPayoutNotFound
	}
	return payout, nil
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.PayoutsGenerated.WithLabelValues(result).Inc()
	}
}
