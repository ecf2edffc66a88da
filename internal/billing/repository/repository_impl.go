package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/rentrollhq/rentroll/pkg/db/option"
	"github.com/rentrollhq/rentroll/pkg/db/pagination"
	pkgrepo "github.com/rentrollhq/rentroll/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	store pkgrepo.Repository[domain.MonthlyBill]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db, store: pkgrepo.ProvideStore[domain.MonthlyBill](db)}
}

func (r *repo) ExistsForMonth(ctx context.Context, contractID snowflake.ID, month period.Month) (bool, error) {
	count, err := r.store.Count(ctx, &domain.MonthlyBill{ContractID: contractID, BillMonth: month})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CountForMonth(ctx context.Context, month period.Month) (int64, error) {
	return r.store.Count(ctx, &domain.MonthlyBill{BillMonth: month})
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.MonthlyBill, error) {
	return r.store.FindOne(ctx, &domain.MonthlyBill{ID: id})
}

func (r *repo) FindLatestBefore(ctx context.Context, contractID snowflake.ID, month period.Month) (*domain.MonthlyBill, error) {
	var bill domain.MonthlyBill
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND bill_month < ?", contractID, month.String()).
		Order("bill_month desc").
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, req domain.ListBillsRequest) ([]*domain.MonthlyBill, pagination.PageInfo, error) {
	query := &domain.MonthlyBill{}
	if req.Month != nil {
		query.BillMonth = *req.Month
	}

	size := req.Pagination.PageSize
	if size <= 0 {
		size = 10
	}

	// Fetch one extra row to detect whether another page exists.
	bills, err := r.store.Find(ctx, query,
		option.WithOrder("created_at desc"),
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.Pagination.PageToken,
			PageSize:  size + 1,
		}),
	)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	info := pagination.BuildCursorPageInfo(bills, size, func(bill *domain.MonthlyBill) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        bill.ID.String(),
			CreatedAt: bill.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(bills) > size {
		bills = bills[:size]
	}
	return bills, *info, nil
}

func (r *repo) Insert(ctx context.Context, bill *domain.MonthlyBill) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(bill).Error
	})
}
