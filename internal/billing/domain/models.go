package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingMode selects which charge types an organization produces.
type BillingMode string

const (
	BillingModeMembership BillingMode = "MEMBERSHIP"
	BillingModePerSession BillingMode = "PER_SESSION"
	BillingModeHybrid     BillingMode = "HYBRID"
)

// IncludesMembership reports whether the mode bills monthly members.
func (m BillingMode) IncludesMembership() bool {
	return m == BillingModeMembership || m == BillingModeHybrid
}

// IncludesPerSession reports whether the mode bills attended sessions.
func (m BillingMode) IncludesPerSession() bool {
	return m == BillingModePerSession || m == BillingModeHybrid
}

func (m BillingMode) Valid() bool {
	switch m {
	case BillingModeMembership, BillingModePerSession, BillingModeHybrid:
		return true
	}
	return false
}

// CycleType is the recurrence of a billing period.
type CycleType string

const (
	CycleMonthly     CycleType = "MONTHLY"
	CycleWeekly      CycleType = "WEEKLY"
	CycleCustomWeeks CycleType = "CUSTOM_WEEKS"
)

func (c CycleType) Valid() bool {
	switch c {
	case CycleMonthly, CycleWeekly, CycleCustomWeeks:
		return true
	}
	return false
}

type ChargeType string

const (
	ChargeTypeMembership ChargeType = "MEMBERSHIP"
	ChargeTypePerSession ChargeType = "PER_SESSION"
)

type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusPaid    ChargeStatus = "PAID"
	ChargeStatusVoid    ChargeStatus = "VOID"
)

// Settings holds the per-organization billing configuration. Amounts are in
// minor currency units.
type Settings struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID `gorm:"not null;uniqueIndex:ux_org_billing_settings_org" json:"org_id"`
	Mode             BillingMode  `gorm:"column:billing_mode;type:text;not null" json:"billing_mode"`
	CycleType        CycleType    `gorm:"column:cycle;type:text;not null" json:"cycle"`
	CycleWeeks       *int         `gorm:"column:cycle_weeks" json:"cycle_weeks,omitempty"`
	AnchorDate       time.Time    `gorm:"column:anchor_date;not null" json:"anchor_date"`
	DueDay           int          `gorm:"column:due_day;not null;default:1" json:"due_day"`
	MembershipAmount int64        `gorm:"column:membership_amount;not null;default:0" json:"membership_amount"`
	SessionAmount    int64        `gorm:"column:session_amount;not null;default:0" json:"session_amount"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Settings) TableName() string { return "org_billing_settings" }

func (s *Settings) OwnerOrgID() snowflake.ID { return s.OrgID }

// Charge is one billable obligation of a member for one cycle.
type Charge struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_org_charges_member_cycle_type,priority:1" json:"org_id"`
	MemberID      snowflake.ID  `gorm:"column:org_member_id;not null;index;uniqueIndex:ux_org_charges_member_cycle_type,priority:2" json:"org_member_id"`
	CycleKey      string        `gorm:"type:text;not null;uniqueIndex:ux_org_charges_member_cycle_type,priority:3" json:"cycle_key"`
	Type          ChargeType    `gorm:"column:type;type:text;not null;uniqueIndex:ux_org_charges_member_cycle_type,priority:4" json:"type"`
	Status        ChargeStatus  `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	Amount        int64         `gorm:"not null;default:0" json:"amount"`
	GameID        *snowflake.ID `gorm:"column:game_id" json:"game_id,omitempty"`
	LedgerEntryID *snowflake.ID `gorm:"column:ledger_entry_id" json:"ledger_entry_id,omitempty"`
	CreatedByID   *snowflake.ID `gorm:"column:created_by_id" json:"created_by_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	VoidedAt      *time.Time    `json:"voided_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Charge) TableName() string { return "org_charges" }

func (c *Charge) OwnerOrgID() snowflake.ID { return c.OrgID }

// ChargeKey is the idempotency key of a charge.
type ChargeKey struct {
	OrgID    snowflake.ID
	MemberID snowflake.ID
	CycleKey string
	Type     ChargeType
}

// Key returns the idempotency key of c.
func (c Charge) Key() ChargeKey {
	return ChargeKey{
		OrgID:    c.OrgID,
		MemberID: c.MemberID,
		CycleKey: c.CycleKey,
		Type:     c.Type,
	}
}

// SessionCycleKey is the cycle key used for per-session charges.
func SessionCycleKey(gameID snowflake.ID) string {
	return "GAME:" + gameID.String()
}

// BillableMember is the slice of a member the reconciler needs.
type BillableMember struct {
	ID         snowflake.ID
	MemberType string
}

// SessionAttendance is one (game, member) pair eligible for a per-session charge.
type SessionAttendance struct {
	GameID   snowflake.ID
	MemberID snowflake.ID
}
