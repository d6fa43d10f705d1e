package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ChargeFilter narrows a charge listing. Zero values match everything.
type ChargeFilter struct {
	CycleKey string
	MemberID snowflake.ID
	Status   ChargeStatus
	Limit    int
}

type Repository interface {
	FindSettings(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Settings, error)
	InsertSettings(ctx context.Context, db *gorm.DB, settings *Settings) error
	UpdateSettings(ctx context.Context, db *gorm.DB, settings *Settings) error

	ListBillableMembers(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]BillableMember, error)
	ListSessionAttendance(ctx context.Context, db *gorm.DB, orgID snowflake.ID, start, end time.Time) ([]SessionAttendance, error)

	FindChargeByKey(ctx context.Context, db *gorm.DB, key ChargeKey) (*Charge, error)
	// InsertCharge reports false when a charge with the same key already exists.
	InsertCharge(ctx context.Context, db *gorm.DB, charge *Charge) (bool, error)
	RefreshCharge(ctx context.Context, db *gorm.DB, charge *Charge) error
	FindChargeByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Charge, error)
	FindChargeForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Charge, error)
	UpdateChargeStatus(ctx context.Context, db *gorm.DB, charge *Charge) error
	ListCharges(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ChargeFilter) ([]*Charge, error)

	FindReceiptParties(ctx context.Context, db *gorm.DB, orgID, memberID snowflake.ID) (ReceiptParties, error)

	ListOrganizationIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
}
