package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	"github.com/rentrollhq/rentroll/internal/observability"
	"github.com/rentrollhq/rentroll/internal/payment/domain"
	"github.com/rentrollhq/rentroll/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	GenID   *snowflake.Node
	Cfg     config.Config
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	tolerance decimal.Decimal
	metrics   *observability.Metrics

	paymentRepo repository.Repository[domain.Payment]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		tolerance:   p.Cfg.OverpaymentTolerance,
		metrics:     p.Metrics,
		paymentRepo: repository.ProvideStore[domain.Payment](p.DB),
	}
}

func (s *Service) AddPayment(ctx context.Context, req domain.AddPaymentRequest) (*domain.Payment, error) {
	billID, err := snowflake.ParseString(req.BillID)
	if err != nil {
		return nil, domain.ErrBillNotFound
	}

	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	date := req.Date
	if date.IsZero() {
		date = s.clock.Now()
	}

	return s.record(ctx, billID, req.Amount, date, false)
}

func (s *Service) MarkBillPaid(ctx context.Context, billID snowflake.ID, date time.Time) (*domain.Payment, error) {
	if date.IsZero() {
		date = s.clock.Now()
	}
	return s.record(ctx, billID, decimal.Zero, date, true)
}

// record inserts a payment and recomputes the bill's paid flag in one
// transaction. With remainder set, the amount is the outstanding balance at
// the time of the write.
func (s *Service) record(ctx context.Context, billID snowflake.ID, amount decimal.Decimal, date time.Time, remainder bool) (*domain.Payment, error) {
	var payment *domain.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.findBill(tx, billID)
		if err != nil {
			return err
		}

		paidSoFar, err := s.sumPayments(tx, billID)
		if err != nil {
			return err
		}

		outstanding := bill.TotalAmount.Sub(paidSoFar)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}

		if remainder {
			if !outstanding.IsPositive() {
				return domain.ErrAlreadyPaid
			}
			amount = outstanding
		} else if amount.Sub(outstanding).GreaterThan(s.tolerance) {
			return domain.ErrOverpayment
		}

		payment = &domain.Payment{
			ID:        s.genID.Generate(),
			BillID:    billID,
			Amount:    amount,
			PaidOn:    date.UTC(),
			CreatedAt: s.clock.Now(),
		}
		if err := s.paymentRepo.WithTrx(tx).Create(ctx, payment); err != nil {
			return err
		}

		paid := paidSoFar.Add(amount).GreaterThanOrEqual(bill.TotalAmount)
		return tx.Model(&billingdomain.MonthlyBill{}).
			Where("id = ?", billID).
			Updates(map[string]any{
				"paid":       paid,
				"updated_at": s.clock.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
	}
	s.log.Info("payment recorded",
		zap.String("bill_id", billID.String()),
		zap.String("amount", payment.Amount.String()),
	)
	return payment, nil
}

func (s *Service) OutstandingBalance(ctx context.Context, billID snowflake.ID) (decimal.Decimal, error) {
	bill, err := s.findBill(s.db.WithContext(ctx), billID)
	if err != nil {
		return decimal.Zero, err
	}

	paidSoFar, err := s.sumPayments(s.db.WithContext(ctx), billID)
	if err != nil {
		return decimal.Zero, err
	}

	outstanding := bill.TotalAmount.Sub(paidSoFar)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return outstanding, nil
}

func (s *Service) findBill(tx *gorm.DB, billID snowflake.ID) (*billingdomain.MonthlyBill, error) {
	var bill billingdomain.MonthlyBill
	err := tx.First(&bill, "id = ?", billID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBillNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func (s *Service) sumPayments(tx *gorm.DB, billID snowflake.ID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE bill_id = ?`,
		billID,
	).Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
