package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrApartmentNotFound = errors.New("apartment_not_found")
	ErrOwnerNotFound     = errors.New("owner_not_found")
	ErrNoOwnerMapped     = errors.New("no_owner_for_apartment")
)

// Service exposes the ownership mapping consumed by the payout aggregator.
type Service interface {
	// OwnerForApartment resolves the current owner of an apartment.
	// Returns ErrNoOwnerMapped when the apartment has no owner on record.
	OwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*Owner, error)
	AssignOwner(ctx context.Context, ownerID, apartmentID snowflake.ID) (*OwnerApartment, error)
}

// Repository is the persistence boundary for apartments and owners.
type Repository interface {
	FindApartment(ctx context.Context, id snowflake.ID) (*Apartment, error)
	FindOwner(ctx context.Context, id snowflake.ID) (*Owner, error)
	FindOwnerForApartment(ctx context.Context, apartmentID snowflake.ID) (*Owner, error)
	UpsertOwnerApartment(ctx context.Context, mapping *OwnerApartment) error
}
