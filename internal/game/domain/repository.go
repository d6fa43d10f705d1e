package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertGame(ctx context.Context, db *gorm.DB, game *Game) error
	FindGame(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) (*Game, error)
	ListGames(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]*Game, error)
	// FindPreviousGame returns the latest game of the org starting before game.
	FindPreviousGame(ctx context.Context, db *gorm.DB, game Game) (*Game, error)

	FindAttendance(ctx context.Context, db *gorm.DB, gameID, memberID snowflake.ID) (*Attendance, error)
	InsertAttendance(ctx context.Context, db *gorm.DB, attendance *Attendance) error
	UpdateAttendanceStatus(ctx context.Context, db *gorm.DB, attendance *Attendance) error
	ListAttendance(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]*Attendance, error)
	ListGoingMemberIDs(ctx context.Context, db *gorm.DB, orgID, gameID snowflake.ID) ([]snowflake.ID, error)
	IsGoing(ctx context.Context, db *gorm.DB, orgID, gameID, memberID snowflake.ID) (bool, error)
}
