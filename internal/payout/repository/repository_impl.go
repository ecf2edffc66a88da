package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/payout/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	pkgrepo "github.com/rentrollhq/rentroll/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store pkgrepo.Repository[domain.OwnerPayout]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db, store: pkgrepo.ProvideStore[domain.OwnerPayout](db)}
}

func (r *repo) InTx(ctx context.Context, fn func(domain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repo{db: tx, store: r.store.WithTrx(tx)})
	})
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.OwnerPayout, error) {
	var payout domain.OwnerPayout
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repo) FindByOwnerMonth(ctx context.Context, ownerID snowflake.ID, month period.Month) (*domain.OwnerPayout, error) {
	var payout domain.OwnerPayout
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND payout_month = ?", ownerID, month).
		First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repo) BillsForMonth(ctx context.Context, month period.Month) ([]*billingdomain.MonthlyBill, error) {
	var bills []*billingdomain.MonthlyBill
	err := r.db.WithContext(ctx).
		Where("bill_month = ?", month).
		Order("contract_id asc").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ContractWithApartments(ctx context.Context, id snowflake.ID) (*contractdomain.Contract, error) {
	var contract contractdomain.Contract
	err := r.db.WithContext(ctx).
		Preload("Apartments").
		First(&contract, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repo) OwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*propertydomain.Owner, error) {
	var owner propertydomain.Owner
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

func (r *repo) BillsByIDs(ctx context.Context, ids []snowflake.ID) ([]*billingdomain.MonthlyBill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var bills []*billingdomain.MonthlyBill
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// InsertPayout runs in its own nested transaction. Inside InTx that is a
// savepoint, so a unique-index collision rolls back this payout alone and
// the rest of the run's statements stay usable.
func (r *repo) InsertPayout(ctx context.Context, payout *domain.OwnerPayout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(payout).Error
	})
}

func (r *repo) UpdatePayout(ctx context.Context, payout *domain.OwnerPayout) error {
	return r.store.Update(ctx, int64(payout.ID), map[string]any{
		"status":      payout.Status,
		"payout_date": payout.PayoutDate,
		"updated_at":  payout.UpdatedAt,
	})
}
