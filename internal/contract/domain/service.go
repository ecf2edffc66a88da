package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/period"
	"github.com/shopspring/decimal"
)

var (
	ErrContractNotFound = errors.New("contract_not_found")
	ErrTenantNotFound   = errors.New("tenant_not_found")
	// ErrNoApartments rejects a contract with an empty apartment set; bill
	// generation assumes at least one apartment.
	ErrNoApartments  = errors.New("contract_without_apartments")
	ErrInvalidCharge = errors.New("invalid_charge")
	ErrInvalidDates  = errors.New("invalid_contract_dates")
)

type ApartmentCharge struct {
	ApartmentID    string          `json:"apartment_id"`
	Rent           decimal.Decimal `json:"rent"`
	ServiceCharges decimal.Decimal `json:"service_charges"`
	SecurityFee    decimal.Decimal `json:"security_fee"`
}

type CreateContractRequest struct {
	TenantID   string            `json:"tenant_id"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    *time.Time        `json:"end_date,omitempty"`
	Apartments []ApartmentCharge `json:"apartments"`
}

type Service interface {
	Create(ctx context.Context, req CreateContractRequest) (*Contract, error)
	// ReplaceApartments swaps the contract's apartment set and recomputes the
	// aggregated totals in the same transaction.
	ReplaceApartments(ctx context.Context, contractID snowflake.ID, apartments []ApartmentCharge) (*Contract, error)
	Get(ctx context.Context, contractID snowflake.ID) (*Contract, error)
	// ListActiveForMonth returns contracts active during any part of the
	// month, apartments preloaded.
	ListActiveForMonth(ctx context.Context, month period.Month) ([]*Contract, error)
}

// Repository is the persistence boundary for tenants and contracts.
type Repository interface {
	FindTenant(ctx context.Context, id snowflake.ID) (*Tenant, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Contract, error)
	FindActiveForPeriod(ctx context.Context, from, to time.Time) ([]*Contract, error)
	InsertWithApartments(ctx context.Context, contract *Contract) error
	ReplaceApartments(ctx context.Context, contract *Contract) error
}
