package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// SetAssignment places target on side, or clears it when side is nil.
	SetAssignment(ctx context.Context, gameID snowflake.ID, target Participant, side *TeamSide) (Teams, error)
	View(ctx context.Context, gameID snowflake.ID) (Teams, error)
	// CheckEligible reports whether target may play in the game: members must
	// be GOING and guests must belong to the game.
	CheckEligible(ctx context.Context, gameID snowflake.ID, target Participant) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTarget       = errors.New("invalid_target")
	ErrInvalidTeamSide     = errors.New("invalid_team_side")

	ErrMemberNotGoing = errors.New("member_not_going")
	ErrGuestNotInGame = errors.New("guest_not_in_game")
)
