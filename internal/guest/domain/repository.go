package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListOrgGuests(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*OrgGuest, error)
	FindOrgGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) (*OrgGuest, error)
	FindOrgGuestByPhone(ctx context.Context, db *gorm.DB, orgID snowflake.ID, phone string) (*OrgGuest, error)
	InsertOrgGuest(ctx context.Context, db *gorm.DB, guest *OrgGuest) error
	UpdateOrgGuest(ctx context.Context, db *gorm.DB, guest *OrgGuest) error
	DeleteOrgGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) error
	OrgGuestInUse(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) (bool, error)

	ListGameGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]*GameGuest, error)
	FindGameGuest(ctx context.Context, db *gorm.DB, orgID, gameID, guestID snowflake.ID) (*GameGuest, error)
	GameGuestExists(ctx context.Context, db *gorm.DB, gameID snowflake.ID, name, phone string) (bool, error)
	InsertGameGuest(ctx context.Context, db *gorm.DB, guest *GameGuest) error
	DeleteGameGuest(ctx context.Context, db *gorm.DB, orgID, guestID snowflake.ID) error
}
