package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("contract.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContractRequest) (*domain.Contract, error) {
	tenantID, err := snowflake.ParseString(req.TenantID)
	if err != nil {
		return nil, domain.ErrTenantNotFound
	}

	tenant, err := s.repo.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}

	if req.StartDate.IsZero() || (req.EndDate != nil && req.EndDate.Before(req.StartDate)) {
		return nil, domain.ErrInvalidDates
	}

	apartments, err := s.buildApartmentRows(req.Apartments)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	contract := &domain.Contract{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		StartDate:  req.StartDate.UTC(),
		EndDate:    req.EndDate,
		IsActive:   true,
		Apartments: apartments,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i := range contract.Apartments {
		contract.Apartments[i].ContractID = contract.ID
	}

	totals := domain.AggregateCharges(contract.Apartments)
	contract.Rent = totals.Rent
	contract.ServiceCharges = totals.ServiceCharges
	contract.SecurityFee = totals.SecurityFee

	if err := s.repo.InsertWithApartments(ctx, contract); err != nil {
		return nil, err
	}

	s.log.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.Int("apartments", len(contract.Apartments)),
		zap.String("rent", contract.Rent.String()),
	)
	return contract, nil
}

func (s *Service) ReplaceApartments(ctx context.Context, contractID snowflake.ID, charges []domain.ApartmentCharge) (*domain.Contract, error) {
	contract, err := s.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}

	apartments, err := s.buildApartmentRows(charges)
	if err != nil {
		return nil, err
	}
	for i := range apartments {
		apartments[i].ContractID = contract.ID
	}

	totals := domain.AggregateCharges(apartments)
	contract.Apartments = apartments
	contract.Rent = totals.Rent
	contract.ServiceCharges = totals.ServiceCharges
	contract.SecurityFee = totals.SecurityFee
	contract.UpdatedAt = s.clock.Now()

	if err := s.repo.ReplaceApartments(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) Get(ctx context.Context, contractID snowflake.ID) (*domain.Contract, error) {
	contract, err := s.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrContractNotFound
	}
	return contract, nil
}

func (s *Service) ListActiveForMonth(ctx context.Context, month period.Month) ([]*domain.Contract, error) {
	return s.repo.FindActiveForPeriod(ctx, month.Start(), month.End())
}

func (s *Service) buildApartmentRows(charges []domain.ApartmentCharge) ([]domain.ContractApartment, error) {
	if len(charges) == 0 {
		return nil, domain.ErrNoApartments
	}

	now := s.clock.Now()
	rows := make([]domain.ContractApartment, 0, len(charges))
	for _, c := range charges {
		apartmentID, err := snowflake.ParseString(c.ApartmentID)
		if err != nil {
			return nil, domain.ErrInvalidCharge
		}
		if c.Rent.IsNegative() || c.ServiceCharges.IsNegative() || c.SecurityFee.IsNegative() {
			return nil, domain.ErrInvalidCharge
		}
		rows = append(rows, domain.ContractApartment{
			ID:             s.genID.Generate(),
			ApartmentID:    apartmentID,
			Rent:           c.Rent,
			ServiceCharges: c.ServiceCharges,
			SecurityFee:    c.SecurityFee,
			CreatedAt:      now,
		})
	}
	return rows, nil
}
