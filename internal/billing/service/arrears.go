package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

// resolveArrears looks one bill back, not further. Anything older than the
// immediately preceding bill already rolled forward into that bill's total,
// so chasing the chain would double count.
func (s *Service) resolveArrears(ctx context.Context, contractID snowflake.ID, month period.Month) (decimal.Decimal, error) {
	prev, err := s.repo.FindLatestBefore(ctx, contractID, month)
	if err != nil {
		return decimal.Zero, err
	}
	if prev == nil || prev.Paid {
		return decimal.Zero, nil
	}
	return s.paymentSvc.OutstandingBalance(ctx, prev.ID)
}
