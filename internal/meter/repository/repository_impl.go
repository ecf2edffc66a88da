package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindMeter(ctx context.Context, id snowflake.ID) (*domain.Meter, error) {
	var meter domain.Meter
	err := r.db.WithContext(ctx).First(&meter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meter, nil
}

func (r *repo) FindActiveByApartments(ctx context.Context, apartmentIDs []snowflake.ID) ([]*domain.Meter, error) {
	if len(apartmentIDs) == 0 {
		return nil, nil
	}
	var meters []*domain.Meter
	err := r.db.WithContext(ctx).
		Where("apartment_id IN ? AND is_active = ?", apartmentIDs, true).
		Order("apartment_id, meter_type").
		Find(&meters).Error
	if err != nil {
		return nil, err
	}
	return meters, nil
}

func (r *repo) FindReading(ctx context.Context, meterID snowflake.ID, month period.Month) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	err := r.db.WithContext(ctx).
		Where("meter_id = ? AND period = ?", meterID, month.String()).
		First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reading, nil
}

func (r *repo) FindPriorReading(ctx context.Context, meterID snowflake.ID, before period.Month) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	// period tokens sort lexically in chronological order
	err := r.db.WithContext(ctx).
		Where("meter_id = ? AND period < ?", meterID, before.String()).
		Order("period desc").
		First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reading, nil
}

func (r *repo) InsertReading(ctx context.Context, reading *domain.MeterReading) error {
	return r.db.WithContext(ctx).Create(reading).Error
}
