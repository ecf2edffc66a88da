package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/rentrollhq/rentroll/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRates = errors.New("invalid_rates")
	// ErrInvalidDates rejects a due date earlier than the issue date.
	ErrInvalidDates      = errors.New("due_date_before_issue_date")
	ErrInvalidAdditional = errors.New("invalid_additional_charges")
	ErrBillNotFound      = errors.New("bill_not_found")
)

const (
	SkipReasonAlreadyExists = "already_exists"
)

type GenerateRequest struct {
	Month     string          `json:"month"`
	Rates     UtilityRates    `json:"rates"`
	IssueDate time.Time       `json:"issue_date"`
	DueDate   time.Time       `json:"due_date"`
	// AdditionalCharges is an optional flat amount applied to every bill in
	// the run. Extension point; zero by default.
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
}

// CreatedBill is one successful entry of a generation run. Warnings carry
// item-level conditions that did not fail the contract, such as a meter with
// no reading for the period.
type CreatedBill struct {
	BillID      snowflake.ID    `json:"bill_id"`
	ContractID  snowflake.ID    `json:"contract_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Warnings    []string        `json:"warnings,omitempty"`
}

type SkippedContract struct {
	ContractID snowflake.ID `json:"contract_id"`
	Reason     string       `json:"reason"`
}

type FailedContract struct {
	ContractID snowflake.ID `json:"contract_id"`
	Reason     string       `json:"reason"`
}

// GenerateResult is the three-way partition of a generation run. Partial
// failures are data here, not errors: one contract's failure never aborts
// the batch.
type GenerateResult struct {
	RunID   string            `json:"run_id"`
	Month   period.Month      `json:"month"`
	Created []CreatedBill     `json:"created"`
	Skipped []SkippedContract `json:"skipped"`
	Failed  []FailedContract  `json:"failed"`
}

type ExistsResult struct {
	Month  period.Month `json:"month"`
	Exists bool         `json:"exists"`
	Count  int64        `json:"count"`
}

type ListBillsRequest struct {
	// Month narrows the listing to one billing month when set.
	Month      *period.Month
	Pagination pagination.Pagination
}

type ListBillsResult struct {
	Bills    []*MonthlyBill      `json:"bills"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Generate produces one MonthlyBill per eligible contract for the month.
	// Validation errors on the request fail the whole batch before any write;
	// per-contract problems land in the result partition.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	CheckBillsExist(ctx context.Context, month period.Month) (*ExistsResult, error)
	Get(ctx context.Context, billID snowflake.ID) (*MonthlyBill, error)
	List(ctx context.Context, req ListBillsRequest) (*ListBillsResult, error)
}

// Repository is the persistence boundary for monthly bills. Insert is
// transactional and the (contract_id, bill_month) unique index is the final
// guard against concurrent generation races.
type Repository interface {
	ExistsForMonth(ctx context.Context, contractID snowflake.ID, month period.Month) (bool, error)
	CountForMonth(ctx context.Context, month period.Month) (int64, error)
	FindByID(ctx context.Context, id snowflake.ID) (*MonthlyBill, error)
	// FindLatestBefore returns the contract's most recent bill strictly
	// before the month, or nil.
	FindLatestBefore(ctx context.Context, contractID snowflake.ID, month period.Month) (*MonthlyBill, error)
	List(ctx context.Context, req ListBillsRequest) ([]*MonthlyBill, pagination.PageInfo, error)
	Insert(ctx context.Context, bill *MonthlyBill) error
}
