package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	"gorm.io/gorm"
)

// Summary is the organization's money position. Amounts are minor units.
type Summary struct {
	OrgID               string `json:"org_id"`
	IncomeTotal         int64  `json:"income_total"`
	ExpenseTotal        int64  `json:"expense_total"`
	Balance             int64  `json:"balance"`
	PendingChargesTotal int64  `json:"pending_charges_total"`
	PaidChargesTotal    int64  `json:"paid_charges_total"`
	PendingChargesCount int64  `json:"pending_charges_count"`
	PaidChargesCount    int64  `json:"paid_charges_count"`
}

// Recent lists the newest ledger entries and charges side by side.
type Recent struct {
	OrgID   string                     `json:"org_id"`
	Ledger  []ledgerdomain.LedgerEntry `json:"ledger"`
	Charges []billingdomain.Charge     `json:"charges"`
}

// ChargeTotals aggregates charges per status.
type ChargeTotals struct {
	PendingTotal int64
	PaidTotal    int64
	PendingCount int64
	PaidCount    int64
}

type Repository interface {
	ChargeTotals(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (ChargeTotals, error)
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
	Recent(ctx context.Context, limit int) (Recent, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
