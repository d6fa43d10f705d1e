package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AttendanceStatus string

const (
	AttendanceGoing    AttendanceStatus = "GOING"
	AttendanceMaybe    AttendanceStatus = "MAYBE"
	AttendanceNotGoing AttendanceStatus = "NOT_GOING"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceGoing, AttendanceMaybe, AttendanceNotGoing:
		return true
	}
	return false
}

// Game is a scheduled session of an organization.
type Game struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID  `gorm:"not null;index:ix_games_org_start,priority:1" json:"org_id"`
	Title             string        `gorm:"type:text;not null" json:"title"`
	Sport             string        `gorm:"type:text" json:"sport,omitempty"`
	Location          string        `gorm:"type:text" json:"location,omitempty"`
	StartAt           time.Time     `gorm:"not null;index:ix_games_org_start,priority:2" json:"start_at"`
	Notes             string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedByMemberID *snowflake.ID `gorm:"column:created_by_member_id" json:"created_by_member_id,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Game) TableName() string { return "games" }

// Attendance is a member's response to a game, one row per member and game.
type Attendance struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID     `gorm:"not null;index" json:"org_id"`
	GameID    snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_game_attendance_member_game,priority:2" json:"game_id"`
	MemberID  snowflake.ID     `gorm:"column:org_member_id;not null;uniqueIndex:ux_game_attendance_member_game,priority:1" json:"org_member_id"`
	UserID    snowflake.ID     `gorm:"not null" json:"user_id"`
	Status    AttendanceStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Attendance) TableName() string { return "game_attendance" }
