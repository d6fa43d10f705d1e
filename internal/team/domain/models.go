package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TeamSide string

const (
	SideA TeamSide = "A"
	SideB TeamSide = "B"
)

func (s TeamSide) Valid() bool {
	return s == SideA || s == SideB
}

type ParticipantType string

const (
	ParticipantMember ParticipantType = "MEMBER"
	ParticipantGuest  ParticipantType = "GUEST"
)

// Participant references either an org member or a game guest.
type Participant struct {
	Type ParticipantType `json:"type"`
	ID   snowflake.ID    `json:"id"`
}

func (p Participant) Valid() bool {
	return (p.Type == ParticipantMember || p.Type == ParticipantGuest) && p.ID != 0
}

// MemberParticipant returns a member reference.
func MemberParticipant(id snowflake.ID) Participant {
	return Participant{Type: ParticipantMember, ID: id}
}

// GuestParticipant returns a game guest reference.
func GuestParticipant(id snowflake.ID) Participant {
	return Participant{Type: ParticipantGuest, ID: id}
}

// ParticipantFromIDs builds a participant from an exclusive member or guest
// id. Exactly one must be set.
func ParticipantFromIDs(memberID, guestID *snowflake.ID) (Participant, error) {
	hasMember := memberID != nil && *memberID != 0
	hasGuest := guestID != nil && *guestID != 0
	switch {
	case hasMember && hasGuest, !hasMember && !hasGuest:
		return Participant{}, ErrInvalidTarget
	case hasMember:
		return MemberParticipant(*memberID), nil
	default:
		return GuestParticipant(*guestID), nil
	}
}

// MemberAssignment places an org member on a side for one game.
type MemberAssignment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	GameID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_game_team_members_game_member,priority:1" json:"game_id"`
	MemberID  snowflake.ID `gorm:"column:org_member_id;not null;uniqueIndex:ux_game_team_members_game_member,priority:2" json:"org_member_id"`
	Team      TeamSide     `gorm:"type:text;not null" json:"team"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MemberAssignment) TableName() string { return "game_team_members" }

// GuestAssignment places a game guest on a side for one game.
type GuestAssignment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	GameID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_game_team_guests_game_guest,priority:1" json:"game_id"`
	GameGuestID snowflake.ID `gorm:"column:game_guest_id;not null;uniqueIndex:ux_game_team_guests_game_guest,priority:2" json:"game_guest_id"`
	Team        TeamSide     `gorm:"type:text;not null" json:"team"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (GuestAssignment) TableName() string { return "game_team_guests" }

// TeamMember is a member row of the teams view.
type TeamMember struct {
	Team        TeamSide     `json:"-"`
	OrgMemberID snowflake.ID `json:"org_member_id"`
	UserID      snowflake.ID `json:"user_id"`
	Nickname    *string      `json:"nickname,omitempty"`
	MemberType  string       `json:"member_type"`
}

// TeamGuest is a guest row of the teams view.
type TeamGuest struct {
	Team        TeamSide     `json:"-"`
	GameGuestID snowflake.ID `json:"game_guest_id"`
	Name        string       `json:"name"`
	Phone       *string      `json:"phone,omitempty"`
}

type Side struct {
	Members []TeamMember `json:"members"`
	Guests  []TeamGuest  `json:"guests"`
}

type Teams struct {
	TeamA Side `json:"team_a"`
	TeamB Side `json:"team_b"`
}

// BuildTeams splits assignment rows into the two sides.
func BuildTeams(members []TeamMember, guests []TeamGuest) Teams {
	teams := Teams{
		TeamA: Side{Members: []TeamMember{}, Guests: []TeamGuest{}},
		TeamB: Side{Members: []TeamMember{}, Guests: []TeamGuest{}},
	}
	for _, m := range members {
		switch m.Team {
		case SideA:
			teams.TeamA.Members = append(teams.TeamA.Members, m)
		case SideB:
			teams.TeamB.Members = append(teams.TeamB.Members, m)
		}
	}
	for _, g := range guests {
		switch g.Team {
		case SideA:
			teams.TeamA.Guests = append(teams.TeamA.Guests, g)
		case SideB:
			teams.TeamB.Guests = append(teams.TeamB.Guests, g)
		}
	}
	return teams
}
