// Package scheduler runs the monthly auto-billing job. Generation itself is
// idempotent, so the job can fire more than once on billing day without
// producing duplicate bills.
package scheduler

import (
	"context"
	"time"

	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	"github.com/rentrollhq/rentroll/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	runInterval    = time.Hour
	defaultDueDays = 10
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Cfg        config.Config
	BillingSvc billingdomain.Service
}

type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	cfg        config.Config
	billingSvc billingdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		clock:      p.Clock,
		cfg:        p.Cfg,
		billingSvc: p.BillingSvc,
	}
}

// RunOnce generates bills for the month that just closed when the billing
// window is open. Outside the window, or with auto billing disabled, it is
// a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.cfg.AutoBillingEnabled {
		return nil
	}

	now := s.clock.Now()
	if now.Day() != 1 || now.Hour() < s.cfg.AutoBillingHour {
		return nil
	}

	// Readings for the month that just started cannot exist yet; the run
	// bills the month that ended the day before.
	month := period.FromTime(now).Prev()
	existing, err := s.billingSvc.CheckBillsExist(ctx, month)
	if err != nil {
		return err
	}
	if existing.Exists {
		return nil
	}

	dueDays := s.cfg.DefaultDueDays
	if dueDays <= 0 {
		dueDays = defaultDueDays
	}
	result, err := s.billingSvc.Generate(ctx, billingdomain.GenerateRequest{
		Month: month.String(),
		Rates: billingdomain.UtilityRates{
			Wapda:     s.cfg.DefaultWapdaRate,
			Generator: s.cfg.DefaultGeneratorRate,
			Water:     s.cfg.DefaultWaterRate,
		},
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, dueDays),
	})
	if err != nil {
		return err
	}

	s.log.Info("auto billing run complete",
		zap.String("run_id", result.RunID),
		zap.String("month", month.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
