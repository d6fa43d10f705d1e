package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	UpsertMember(ctx context.Context, db *gorm.DB, assignment *MemberAssignment) error
	UpsertGuest(ctx context.Context, db *gorm.DB, assignment *GuestAssignment) error
	DeleteMember(ctx context.Context, db *gorm.DB, gameID, memberID snowflake.ID) error
	DeleteGuest(ctx context.Context, db *gorm.DB, gameID, guestID snowflake.ID) error
	ListTeamMembers(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]TeamMember, error)
	ListTeamGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]TeamGuest, error)
}
