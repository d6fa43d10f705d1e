package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*Captains, error)
	Upsert(ctx context.Context, db *gorm.DB, captains *Captains) error
}
