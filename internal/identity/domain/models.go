// Package domain contains persistence models for directory users.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// User is a directory principal referenced by usage logs, audit events and
// survey responses. Rows are created by the Graph user sync, never by the
// report loaders.
type User struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	UserPrincipalName string       `gorm:"type:text;not null;uniqueIndex" json:"user_principal_name"`
	AzureAdID         string       `gorm:"type:text" json:"azure_ad_id"`

	// Set when the user asked to not be surveyed until this time.
	MessageNotBefore *time.Time `gorm:"" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

var ErrNotFound = errors.New("user_not_found")

type Repository interface {
	FindByUPN(ctx context.Context, db *gorm.DB, upn string) (*User, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]User, error)
	Upsert(ctx context.Context, db *gorm.DB, user *User) error
	Save(ctx context.Context, db *gorm.DB, user *User) error
}
