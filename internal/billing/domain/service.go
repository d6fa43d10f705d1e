package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service is the billing surface. Every call is scoped to the organization
// carried by ctx (see orgcontext).
type Service interface {
	// GetOrInitSettings returns the settings row, creating it from the
	// configured defaults on first access.
	GetOrInitSettings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (Settings, error)

	GenerateCharges(ctx context.Context, req GenerateChargesRequest) (GenerateChargesResult, error)
	SetChargeStatus(ctx context.Context, req SetChargeStatusRequest) (Charge, error)
	ListCharges(ctx context.Context, req ListChargesRequest) ([]Charge, error)
	GetCharge(ctx context.Context, chargeID snowflake.ID) (Charge, error)
	ChargeReceipt(ctx context.Context, chargeID snowflake.ID) ([]byte, error)

	// ListOrganizationIDs returns every organization eligible for a billing run.
	ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error)
	// RunAll generates charges (force=false) for every organization in turn.
	RunAll(ctx context.Context) (RunAllResult, error)
}

type UpdateSettingsRequest struct {
	Mode             BillingMode
	CycleType        CycleType
	CycleWeeks       *int
	AnchorDate       *time.Time
	DueDay           int
	MembershipAmount int64
	SessionAmount    int64
}

type GenerateChargesRequest struct {
	Force    bool
	CycleKey string
	ActorID  snowflake.ID
}

type GenerateChargesResult struct {
	CycleKey string `json:"cycle_key"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
}

type SetChargeStatusRequest struct {
	ChargeID snowflake.ID
	Status   ChargeStatus
	ActorID  snowflake.ID
}

type ListChargesRequest struct {
	CycleKey string
	MemberID snowflake.ID
	Status   ChargeStatus
	Limit    int
}

type OrgRunResult struct {
	OrgID    string `json:"org_id"`
	CycleKey string `json:"cycle_key"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
}

type RunAllResult struct {
	Orgs    int            `json:"orgs"`
	Results []OrgRunResult `json:"results"`
}

// ReceiptData is everything a receipt renderer needs.
type ReceiptData struct {
	OrgName    string
	MemberName string
	Charge     Charge
	IssuedAt   time.Time
}

// ReceiptRenderer turns a paid charge into a printable document.
type ReceiptRenderer interface {
	Render(data ReceiptData) ([]byte, error)
}

// ReceiptParties resolves display names for a receipt.
type ReceiptParties struct {
	OrgName    string
	MemberName string
}
