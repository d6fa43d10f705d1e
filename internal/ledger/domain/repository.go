package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Type  EntryType
	From  *time.Time
	To    *time.Time
	Limit int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	FindByCharge(ctx context.Context, db *gorm.DB, orgID, chargeID snowflake.ID) (*LedgerEntry, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]*LedgerEntry, error)
	Totals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (Summary, error)
}
