// Package domain contains persistence models for apartments and their owners.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Apartment is a rentable unit of the property.
type Apartment struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Floor     string            `gorm:"type:text" json:"floor"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Apartment) TableName() string { return "apartments" }

// Owner receives the rent collected for the apartments mapped to them.
type Owner struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Phone     string       `gorm:"type:text" json:"phone"`
	Email     string       `gorm:"type:text" json:"email"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Owner) TableName() string { return "owners" }

// OwnerApartment maps an apartment to its current owner. One owner per
// apartment at a time.
type OwnerApartment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID `gorm:"not null;index" json:"owner_id"`
	ApartmentID snowflake.ID `gorm:"not null;uniqueIndex:ux_owner_apartments_apartment" json:"apartment_id"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OwnerApartment) TableName() string { return "owner_apartments" }
