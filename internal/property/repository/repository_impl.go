package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/property/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindApartment(ctx context.Context, id snowflake.ID) (*domain.Apartment, error) {
	var apartment domain.Apartment
	err := r.db.WithContext(ctx).First(&apartment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &apartment, nil
}

func (r *repo) FindOwner(ctx context.Context, id snowflake.ID) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &owner, nil
}

func (r *repo) FindOwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, o.phone, o.email, o.created_at, o.updated_at
		 FROM owners o
		 JOIN owner_apartments oa ON oa.owner_id = o.id
		 WHERE oa.apartment_id = ?`,
		apartmentID,
	).Scan(&owner).Error
	if err != nil {
		return nil, err
	}
	if owner.ID == 0 {
		return nil, nil
	}
	return &owner, nil
}

func (r *repo) UpsertOwnerApartment(ctx context.Context, mapping *domain.OwnerApartment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "apartment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner_id"}),
	}).Create(mapping).Error
}
