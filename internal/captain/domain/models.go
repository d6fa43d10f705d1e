package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

type Mode string

const (
	ModeManual Mode = "MANUAL"
	ModeRandom Mode = "RANDOM"
)

func (m Mode) Valid() bool {
	return m == ModeManual || m == ModeRandom
}

// Captains stores the two captain slots of a game. Each slot holds at most
// one of a member or a game guest.
type Captains struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID  `gorm:"not null;index" json:"org_id"`
	GameID           snowflake.ID  `gorm:"not null;uniqueIndex:ux_game_captains_game" json:"game_id"`
	Mode             Mode          `gorm:"type:text;not null" json:"mode"`
	CaptainAMemberID *snowflake.ID `gorm:"column:captain_a_member_id" json:"captain_a_member_id,omitempty"`
	CaptainAGuestID  *snowflake.ID `gorm:"column:captain_a_guest_id" json:"captain_a_guest_id,omitempty"`
	CaptainBMemberID *snowflake.ID `gorm:"column:captain_b_member_id" json:"captain_b_member_id,omitempty"`
	CaptainBGuestID  *snowflake.ID `gorm:"column:captain_b_guest_id" json:"captain_b_guest_id,omitempty"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Captains) TableName() string { return "game_captains" }

// SetSlots overwrites both slots. A nil reference clears its slot.
func (c *Captains) SetSlots(a, b *teamdomain.Participant) {
	c.CaptainAMemberID, c.CaptainAGuestID = slotIDs(a)
	c.CaptainBMemberID, c.CaptainBGuestID = slotIDs(b)
}

// CaptainA returns the side A captain, if any.
func (c Captains) CaptainA() *teamdomain.Participant {
	return slotRef(c.CaptainAMemberID, c.CaptainAGuestID)
}

// CaptainB returns the side B captain, if any.
func (c Captains) CaptainB() *teamdomain.Participant {
	return slotRef(c.CaptainBMemberID, c.CaptainBGuestID)
}

// Occupants returns every participant referenced by any of the four columns.
func (c Captains) Occupants() []teamdomain.Participant {
	var refs []teamdomain.Participant
	for _, id := range []*snowflake.ID{c.CaptainAMemberID, c.CaptainBMemberID} {
		if id != nil {
			refs = append(refs, teamdomain.MemberParticipant(*id))
		}
	}
	for _, id := range []*snowflake.ID{c.CaptainAGuestID, c.CaptainBGuestID} {
		if id != nil {
			refs = append(refs, teamdomain.GuestParticipant(*id))
		}
	}
	return refs
}

func slotIDs(ref *teamdomain.Participant) (*snowflake.ID, *snowflake.ID) {
	if ref == nil {
		return nil, nil
	}
	id := ref.ID
	if ref.Type == teamdomain.ParticipantMember {
		return &id, nil
	}
	return nil, &id
}

func slotRef(memberID, guestID *snowflake.ID) *teamdomain.Participant {
	if memberID != nil {
		ref := teamdomain.MemberParticipant(*memberID)
		return &ref
	}
	if guestID != nil {
		ref := teamdomain.GuestParticipant(*guestID)
		return &ref
	}
	return nil
}

// View is the captain pair of a game.
type View struct {
	GameID   snowflake.ID            `json:"game_id"`
	Mode     Mode                    `json:"mode,omitempty"`
	CaptainA *teamdomain.Participant `json:"captain_a"`
	CaptainB *teamdomain.Participant `json:"captain_b"`
}
