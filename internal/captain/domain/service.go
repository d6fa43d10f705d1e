package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

type Service interface {
	Get(ctx context.Context, gameID snowflake.ID) (*View, error)
	Set(ctx context.Context, gameID snowflake.ID, req SetRequest) (*View, error)
}

// SetRequest selects captains. In MANUAL mode an omitted slot is cleared;
// RANDOM mode ignores both references.
type SetRequest struct {
	Mode     Mode
	CaptainA *teamdomain.Participant
	CaptainB *teamdomain.Participant
}

var (
	ErrInvalidMode = errors.New("invalid_captain_mode")

	ErrDuplicateCaptain    = errors.New("duplicate_captain")
	ErrNotEnoughCandidates = errors.New("not_enough_eligible_captains")
)
