package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrgGuest is a reusable non-member contact of an organization.
type OrgGuest struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_guests_org_phone,priority:1" json:"org_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Phone     *string      `gorm:"type:text;uniqueIndex:ux_org_guests_org_phone,priority:2" json:"phone,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrgGuest) TableName() string { return "org_guests" }

// GameGuest is a non-member attending one game.
type GameGuest struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID  `gorm:"not null;index" json:"org_id"`
	GameID            snowflake.ID  `gorm:"not null;index" json:"game_id"`
	OrgGuestID        *snowflake.ID `gorm:"column:org_guest_id;index" json:"org_guest_id,omitempty"`
	Name              string        `gorm:"type:text;not null" json:"name"`
	Phone             *string       `gorm:"type:text" json:"phone,omitempty"`
	CreatedByMemberID *snowflake.ID `gorm:"column:created_by_member_id" json:"created_by_member_id,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (GameGuest) TableName() string { return "game_guests" }

// GameGuestView is a game guest as seen by the calling member.
type GameGuestView struct {
	GameGuest
	CanDelete bool `json:"can_delete"`
}
