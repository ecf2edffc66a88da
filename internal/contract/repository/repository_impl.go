package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/contract/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Apartments").
		First(&contract, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *repo) FindActiveForPeriod(ctx context.Context, from, to time.Time) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	err := r.db.WithContext(ctx).
		Preload("Apartments").
		Where("is_active = ? AND start_date < ? AND (end_date IS NULL OR end_date >= ?)", true, to, from).
		Order("id").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repo) InsertWithApartments(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(contract).Error
	})
}

func (r *repo) ReplaceApartments(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", contract.ID).
			Delete(&domain.ContractApartment{}).Error; err != nil {
			return err
		}
		if len(contract.Apartments) > 0 {
			if err := tx.Create(&contract.Apartments).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Contract{}).
			Where("id = ?", contract.ID).
			Updates(map[string]any{
				"rent":            contract.Rent,
				"service_charges": contract.ServiceCharges,
				"security_fee":    contract.SecurityFee,
				"updated_at":      contract.UpdatedAt,
			}).Error
	})
}
