package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/property/domain"
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
		log:   p.Log.Named("property.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) OwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*domain.Owner, error) {
	owner, err := s.repo.FindOwnerForApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, domain.ErrNoOwnerMapped
	}
	return owner, nil
}

func (s *Service) AssignOwner(ctx context.Context, ownerID, apartmentID snowflake.ID) (*domain.OwnerApartment, error) {
	owner, err := s.repo.FindOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, domain.ErrOwnerNotFound
	}

	apartment, err := s.repo.FindApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}
	if apartment == nil {
		return nil, domain.ErrApartmentNotFound
	}

	mapping := &domain.OwnerApartment{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		ApartmentID: apartmentID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.UpsertOwnerApartment(ctx, mapping); err != nil {
		return nil, err
	}

	s.log.Info("owner assigned",
		zap.String("owner_id", ownerID.String()),
		zap.String("apartment_id", apartmentID.String()),
	)
	return mapping, nil
}
