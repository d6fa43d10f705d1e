package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	GameID     snowflake.ID
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidAction       = errors.New("invalid_action")
)

// TargetTypeGame marks rows written by the game, team, captain and draft flows.
const TargetTypeGame = "game"

const (
	ActionOrganizationCreate = "organization.create"
	ActionMemberAdd          = "member.add"
	ActionMemberUpdate       = "member.update"
	ActionMemberRoleChange   = "member.role_change"
	ActionMemberRemove       = "member.remove"
	ActionGuestCreate        = "guest.create"
	ActionGuestUpdate        = "guest.update"
	ActionGuestDelete        = "guest.delete"
	ActionGameCreate         = "game.create"
	ActionGameGuestAdd       = "game_guest.add"
	ActionGameGuestRemove    = "game_guest.remove"
	ActionTeamAssign         = "team.assign"
	ActionCaptainsSet        = "captains.set"
	ActionDraftStart         = "draft.start"
	ActionDraftPick          = "draft.pick"
	ActionDraftFinish        = "draft.finish"
	ActionBillingSettings    = "billing_settings.update"
	ActionChargesGenerate    = "charges.generate"
	ActionChargeStatus       = "charge.status_change"
	ActionLedgerEntryCreate  = "ledger_entry.create"
	ActionAuthzDenied        = "authorization.denied"
	ActionAuthzGranted       = "authorization.granted"
)
