package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/rentrollhq/rentroll/internal/period"
	propertydomain "github.com/rentrollhq/rentroll/internal/property/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrPayoutNotFound    = errors.New("payout_not_found")
	ErrPayoutNotCleared  = errors.New("payout_not_cleared")
	ErrPayoutAlreadyPaid = errors.New("payout_already_paid")
	ErrNoBillsForMonth   = errors.New("no_bills_for_month")
)

// SkipReasonAlreadyExists marks an owner whose payout for the month was
// already on record when regeneration ran under the skip policy.
const SkipReasonAlreadyExists = "already_exists"

// FailReasonAlreadyExists marks the same collision under the fail policy.
const FailReasonAlreadyExists = "payout_already_exists"

type GenerateRequest struct {
	Month string `json:"month"`
}

type CreatedPayout struct {
	PayoutID    snowflake.ID    `json:"payout_id"`
	OwnerID     snowflake.ID    `json:"owner_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       int             `json:"items"`
}

type SkippedOwner struct {
	OwnerID snowflake.ID `json:"owner_id"`
	Reason  string       `json:"reason"`
}

type FailedOwner struct {
	OwnerID snowflake.ID `json:"owner_id"`
	Reason  string       `json:"reason"`
}

// UnmappedApartment is an apartment whose rent share could not be attributed
// because no owner is on record. The share is withheld, not redistributed.
type UnmappedApartment struct {
	ApartmentID snowflake.ID `json:"apartment_id"`
	BillID      snowflake.ID `json:"bill_id"`
}

type GenerateResult struct {
	RunID    string              `json:"run_id"`
	Month    period.Month        `json:"month"`
	Created  []CreatedPayout     `json:"created"`
	Skipped  []SkippedOwner      `json:"skipped"`
	Failed   []FailedOwner       `json:"failed"`
	Unmapped []UnmappedApartment `json:"unmapped"`
}

// Service drives payout aggregation and the payout lifecycle.
type Service interface {
	// Generate builds one payout per owner from the month's bills. An owner
	// whose payout already exists lands in the skipped or failed partition
	// per the configured regeneration policy; either way the rest of the
	// batch proceeds.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// Refresh promotes a pending payout to cleared once every bill behind
	// its items is paid. Cleared and paid payouts are returned unchanged.
	Refresh(ctx context.Context, payoutID snowflake.ID) (*OwnerPayout, error)
	// MarkPaid records the disbursement of a cleared payout.
	MarkPaid(ctx context.Context, payoutID snowflake.ID, date time.Time) (*OwnerPayout, error)
	Get(ctx context.Context, payoutID snowflake.ID) (*OwnerPayout, error)
}

// Repository is the persistence boundary for payouts. Bill, contract and
// owner reads go through it as well so one generation run aggregates a
// single storage view.
type Repository interface {
	// InTx runs fn against a transaction-scoped repository, so the reads
	// and payout writes of one generation run share a snapshot.
	InTx(ctx context.Context, fn func(Repository) error) error
	FindByID(ctx context.Context, id snowflake.ID) (*OwnerPayout, error)
	FindByOwnerMonth(ctx context.Context, ownerID snowflake.ID, month period.Month) (*OwnerPayout, error)
	BillsForMonth(ctx context.Context, month period.Month) ([]*billingdomain.MonthlyBill, error)
	BillsByIDs(ctx context.Context, ids []snowflake.ID) ([]*billingdomain.MonthlyBill, error)
	ContractWithApartments(ctx context.Context, id snowflake.ID) (*contractdomain.Contract, error)
	// OwnerForApartment returns nil when the apartment has no owner mapped.
	OwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*propertydomain.Owner, error)
	InsertPayout(ctx context.Context, payout *OwnerPayout) error
	UpdatePayout(ctx context.Context, payout *OwnerPayout) error
}
