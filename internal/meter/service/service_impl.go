package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	pkgdb "github.com/rentrollhq/rentroll/pkg/db"
	"github.com/shopspring/decimal"
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
		log:   p.Log.Named("meter.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) RecordReading(ctx context.Context, req domain.RecordReadingRequest) (*domain.MeterReading, error) {
	meterID, err := snowflake.ParseString(req.MeterID)
	if err != nil {
		return nil, domain.ErrMeterNotFound
	}

	month, err := period.Parse(req.Month)
	if err != nil {
		return nil, err
	}

	if req.CurrentUnits.IsNegative() {
		return nil, domain.ErrInvalidUnits
	}
	if req.PreviousUnits != nil && req.PreviousUnits.IsNegative() {
		return nil, domain.ErrInvalidUnits
	}

	meter, err := s.repo.FindMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrMeterNotFound
	}
	if !meter.IsActive {
		return nil, domain.ErrMeterInactive
	}

	existing, err := s.repo.FindReading(ctx, meterID, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrReadingExists
	}

	// The manual previous override only makes sense for a meter with no
	// history; drop it otherwise so it can never shadow a recorded reading.
	previous := req.PreviousUnits
	if previous != nil {
		prior, err := s.repo.FindPriorReading(ctx, meterID, month)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			previous = nil
		}
	}

	readingDate := req.ReadingDate
	if readingDate.IsZero() {
		readingDate = s.clock.Now()
	}

	reading := &domain.MeterReading{
		ID:            s.genID.Generate(),
		MeterID:       meterID,
		Period:        month,
		ReadingDate:   readingDate.UTC(),
		CurrentUnits:  req.CurrentUnits,
		PreviousUnits: previous,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.InsertReading(ctx, reading); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrReadingExists
		}
		return nil, err
	}

	s.log.Info("reading recorded",
		zap.String("meter_id", meterID.String()),
		zap.String("period", month.String()),
		zap.String("current_units", req.CurrentUnits.String()),
	)
	return reading, nil
}

func (s *Service) ResolveConsumption(ctx context.Context, meterID snowflake.ID, month period.Month) (*domain.Consumption, error) {
	meter, err := s.repo.FindMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, domain.ErrMeterNotFound
	}

	reading, err := s.repo.FindReading(ctx, meterID, month)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return &domain.Consumption{
			MeterID:   meterID,
			MeterType: meter.Type,
			Period:    month,
			Missing:   true,
		}, nil
	}

	prior, err := s.repo.FindPriorReading(ctx, meterID, month)
	if err != nil {
		return nil, err
	}

	cons := &domain.Consumption{
		MeterID:   meterID,
		MeterType: meter.Type,
		Period:    month,
		Current:   reading.CurrentUnits,
	}

	switch {
	case prior != nil:
		cons.Previous = prior.CurrentUnits
	case reading.PreviousUnits != nil:
		cons.Previous = *reading.PreviousUnits
	default:
		// no history at all: the full counter value is first-time consumption
		cons.FirstTime = true
		cons.Previous = decimal.Zero
	}

	diff := cons.Current.Sub(cons.Previous)
	if diff.IsNegative() {
		return nil, fmt.Errorf("%w: meter %s period %s current %s previous %s",
			domain.ErrReadingDecreased, meterID, month, cons.Current, cons.Previous)
	}
	cons.Consumed = diff

	return cons, nil
}

func (s *Service) ActiveMetersForApartments(ctx context.Context, apartmentIDs []snowflake.ID) ([]*domain.Meter, error) {
	return s.repo.FindActiveByApartments(ctx, apartmentIDs)
}
