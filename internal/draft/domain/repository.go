package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*Draft, error)
	Insert(ctx context.Context, db *gorm.DB, draft *Draft) error
	Activate(ctx context.Context, db *gorm.DB, draft *Draft) error
	// AdvanceIndex moves the cursor from expected to expected+1. It returns
	// false when another writer moved it first or the draft left IN_PROGRESS.
	AdvanceIndex(ctx context.Context, db *gorm.DB, draftID snowflake.ID, expected int, now time.Time) (bool, error)
	// Finish moves an IN_PROGRESS draft to FINISHED and reports whether it did.
	Finish(ctx context.Context, db *gorm.DB, draftID snowflake.ID, now time.Time) (bool, error)

	InsertPick(ctx context.Context, db *gorm.DB, pick *Pick) error
	ListPicks(ctx context.Context, db *gorm.DB, draftID snowflake.ID) ([]Pick, error)
	IsPicked(ctx context.Context, db *gorm.DB, draftID snowflake.ID, memberID, guestID *snowflake.ID) (bool, error)

	ListGoingMembers(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]PoolItem, error)
	ListGameGuests(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]PoolItem, error)
}
