package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

type Service interface {
	Start(ctx context.Context, gameID snowflake.ID) (*Draft, error)
	Pick(ctx context.Context, gameID snowflake.ID, req PickRequest) (*PickView, error)
	Finish(ctx context.Context, gameID snowflake.ID) (*Draft, error)
	State(ctx context.Context, gameID snowflake.ID) (*State, error)
	Summary(ctx context.Context, gameID snowflake.ID) (*Summary, error)
}

type PickRequest struct {
	Side   teamdomain.TeamSide
	Target teamdomain.Participant
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")

	ErrDraftNotStarted    = errors.New("draft_not_started")
	ErrDraftFinished      = errors.New("draft_finished")
	ErrDraftNotInProgress = errors.New("draft_not_in_progress")
	ErrNotYourTurn        = errors.New("not_your_turn")
	ErrAlreadyPicked      = errors.New("already_picked")
	ErrPickConflict       = errors.New("pick_conflict")
)
