package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType is the direction of money for a ledger entry.
type EntryType string

const (
	EntryTypeIncome  EntryType = "INCOME"
	EntryTypeExpense EntryType = "EXPENSE"
)

func (t EntryType) Valid() bool {
	return t == EntryTypeIncome || t == EntryTypeExpense
}

// LedgerEntry is an immutable financial record. Amount is in minor units and
// always positive; Type carries the sign.
type LedgerEntry struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID  `gorm:"not null;index" json:"org_id"`
	Type            EntryType     `gorm:"column:type;type:text;not null" json:"type"`
	Amount          int64         `gorm:"not null" json:"amount"`
	Description     string        `gorm:"type:text" json:"description,omitempty"`
	OccurredAt      time.Time     `gorm:"not null" json:"occurred_at"`
	RelatedMemberID *snowflake.ID `gorm:"column:related_member_id" json:"related_member_id,omitempty"`
	RelatedChargeID *snowflake.ID `gorm:"column:related_charge_id;uniqueIndex:ux_ledger_entries_related_charge" json:"related_charge_id,omitempty"`
	CreatedByID     *snowflake.ID `gorm:"column:created_by_id" json:"created_by_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// Summary aggregates ledger totals for an organization.
type Summary struct {
	TotalIncome  int64 `json:"total_income"`
	TotalExpense int64 `json:"total_expense"`
	Balance      int64 `json:"balance"`
}

// NewChargeIncome builds the ledger entry written when a charge is paid.
func NewChargeIncome(id, orgID, memberID, chargeID snowflake.ID, amount int64, description string, actorID snowflake.ID, at time.Time) LedgerEntry {
	entry := LedgerEntry{
		ID:              id,
		OrgID:           orgID,
		Type:            EntryTypeIncome,
		Amount:          amount,
		Description:     description,
		OccurredAt:      at,
		RelatedMemberID: &memberID,
		RelatedChargeID: &chargeID,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if actorID != 0 {
		entry.CreatedByID = &actorID
	}
	return entry
}
