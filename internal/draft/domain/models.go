package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// OrderModeABBA is the snake order A, B, B, A repeated.
const OrderModeABBA = "ABBA"

// Draft tracks the pick cursor of one game.
type Draft struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID `gorm:"not null;index" json:"org_id"`
	GameID           snowflake.ID `gorm:"not null;uniqueIndex:ux_game_drafts_game" json:"game_id"`
	Status           Status       `gorm:"type:text;not null" json:"status"`
	OrderMode        string       `gorm:"type:text;not null;default:'ABBA'" json:"order_mode"`
	CurrentPickIndex int          `gorm:"not null;default:0" json:"current_pick_index"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Draft) TableName() string { return "game_drafts" }

// Pick is one selection of a draft. Exactly one of MemberID and GameGuestID
// is set.
type Pick struct {
	ID                snowflake.ID        `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID        `gorm:"not null;index" json:"org_id"`
	DraftID           snowflake.ID        `gorm:"not null;uniqueIndex:ux_game_draft_picks_number,priority:1;uniqueIndex:ux_game_draft_picks_member,priority:1;uniqueIndex:ux_game_draft_picks_guest,priority:1" json:"draft_id"`
	GameID            snowflake.ID        `gorm:"not null;index" json:"game_id"`
	RoundNumber       int                 `gorm:"not null" json:"round_number"`
	PickNumber        int                 `gorm:"not null;uniqueIndex:ux_game_draft_picks_number,priority:2" json:"pick_number"`
	TeamSide          teamdomain.TeamSide `gorm:"column:team_side;type:text;not null" json:"team_side"`
	MemberID          *snowflake.ID       `gorm:"column:org_member_id;uniqueIndex:ux_game_draft_picks_member,priority:2" json:"org_member_id,omitempty"`
	GameGuestID       *snowflake.ID       `gorm:"column:game_guest_id;uniqueIndex:ux_game_draft_picks_guest,priority:2" json:"game_guest_id,omitempty"`
	CreatedByMemberID *snowflake.ID       `gorm:"column:created_by_member_id" json:"created_by_member_id,omitempty"`
	CreatedAt         time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Pick) TableName() string { return "game_draft_picks" }

// Participant returns the member or guest the pick refers to.
func (p Pick) Participant() teamdomain.Participant {
	if p.MemberID != nil {
		return teamdomain.MemberParticipant(*p.MemberID)
	}
	if p.GameGuestID != nil {
		return teamdomain.GuestParticipant(*p.GameGuestID)
	}
	return teamdomain.Participant{}
}

// PoolItem is a pickable participant with a display name.
type PoolItem struct {
	Type       teamdomain.ParticipantType `json:"type"`
	ID         snowflake.ID               `json:"id"`
	Name       string                     `json:"name"`
	MemberType string                     `json:"member_type,omitempty"`
}

// Participant returns the reference of the pool item.
func (i PoolItem) Participant() teamdomain.Participant {
	return teamdomain.Participant{Type: i.Type, ID: i.ID}
}

// PickView is a pick with its resolved participant.
type PickView struct {
	ID          snowflake.ID        `json:"id"`
	RoundNumber int                 `json:"round_number"`
	PickNumber  int                 `json:"pick_number"`
	TeamSide    teamdomain.TeamSide `json:"team_side"`
	CreatedAt   time.Time           `json:"created_at"`
	Item        PoolItem            `json:"item"`
}

type State struct {
	Status              Status               `json:"status"`
	OrderMode           string               `json:"order_mode"`
	CurrentPickIndex    int                  `json:"current_pick_index"`
	CurrentTurnTeamSide *teamdomain.TeamSide `json:"current_turn_team_side"`
	Picks               []PickView           `json:"picks"`
	RemainingPool       []PoolItem           `json:"remaining_pool"`
	Teams               teamdomain.Teams     `json:"teams"`
}

type Summary struct {
	Status              Status               `json:"status"`
	CurrentTurnTeamSide *teamdomain.TeamSide `json:"current_turn_team_side"`
	PicksCount          int                  `json:"picks_count"`
	RemainingCount      int                  `json:"remaining_count"`
}
