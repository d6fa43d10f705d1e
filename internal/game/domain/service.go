package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateGameRequest) (*Game, error)
	Get(ctx context.Context, gameID snowflake.ID) (*Game, error)
	List(ctx context.Context, limit int) ([]Game, error)

	MarkAttendance(ctx context.Context, req MarkAttendanceRequest) (*Attendance, error)
	ListAttendance(ctx context.Context, gameID snowflake.ID) ([]Attendance, error)
}

type CreateGameRequest struct {
	Title    string
	Sport    string
	Location string
	StartAt  time.Time
	Notes    string
}

// MarkAttendanceRequest records the caller's own attendance. MemberID and
// UserID identify the caller's membership.
type MarkAttendanceRequest struct {
	GameID   snowflake.ID
	MemberID snowflake.ID
	UserID   snowflake.ID
	Status   AttendanceStatus
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidStartAt      = errors.New("invalid_start_at")
	ErrInvalidGame         = errors.New("invalid_game")
	ErrInvalidMember       = errors.New("invalid_member")
	ErrInvalidAttendance   = errors.New("invalid_attendance_status")

	ErrGameNotFound = errors.New("game_not_found")
)
