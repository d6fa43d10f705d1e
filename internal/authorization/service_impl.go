package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization    = "organization"
	ObjectMember          = "member"
	ObjectGuest           = "guest"
	ObjectGame            = "game"
	ObjectAttendance      = "attendance"
	ObjectGameGuest       = "game_guest"
	ObjectTeam            = "team"
	ObjectCaptain         = "captain"
	ObjectDraft           = "draft"
	ObjectBillingSettings = "billing_settings"
	ObjectCharge          = "charge"
	ObjectLedger          = "ledger"
	ObjectFinance         = "finance"
	ObjectAuditLog        = "audit_log"
)

const (
	ActionOrganizationView = "organization.view"

	ActionMemberView   = "member.view"
	ActionMemberManage = "member.manage"

	ActionGuestView   = "guest.view"
	ActionGuestManage = "guest.manage"

	ActionGameView   = "game.view"
	ActionGameCreate = "game.create"

	ActionAttendanceView = "attendance.view"
	ActionAttendanceMark = "attendance.mark"

	ActionGameGuestView   = "game_guest.view"
	ActionGameGuestManage = "game_guest.manage"

	ActionTeamView   = "team.view"
	ActionTeamManage = "team.manage"

	ActionCaptainView   = "captain.view"
	ActionCaptainManage = "captain.manage"

	ActionDraftView   = "draft.view"
	ActionDraftManage = "draft.manage"

	ActionBillingSettingsView   = "billing_settings.view"
	ActionBillingSettingsUpdate = "billing_settings.update"

	ActionChargeView     = "charge.view"
	ActionChargeGenerate = "charge.generate"
	ActionChargeUpdate   = "charge.update"

	ActionLedgerView   = "ledger.view"
	ActionLedgerCreate = "ledger.create"

	ActionFinanceView = "finance.view"

	ActionAuditLogView = "audit_log.view"
)

const (
	roleMember = "role:member"
	roleAdmin  = "role:admin"
	roleOwner  = "role:owner"
	roleSystem = "role:system"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("org_id", orgID),
			zap.String("action", action),
		)
		s.auditDenied(ctx, actorType, actorID, orgID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actorType, actorID, orgID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, roleSystem, string(auditdomain.ActorTypeSystem), nil, nil
	}
	if !strings.HasPrefix(actor, "user:") {
		return "", "", "", nil, ErrInvalidActor
	}

	userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
	if err != nil || userID == 0 {
		return "", "", "", nil, ErrInvalidActor
	}
	userIDStr := userID.String()
	actorType := string(auditdomain.ActorTypeUser)

	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return actor, "", actorType, &userIDStr, ErrInvalidOrganization
	}
	role, err := s.roleForUser(ctx, parsedOrgID, userID)
	if err != nil {
		return actor, "", actorType, &userIDStr, err
	}
	return actor, "role:" + strings.ToLower(role), actorType, &userIDStr, nil
}

// roleForUser prefers the membership resolved for the request; the database
// is consulted when the caller is not the request's own member.
func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	if member, ok := orgcontext.MemberFromContext(ctx); ok {
		ctxOrgID, orgOK := orgcontext.OrgIDFromContext(ctx)
		ctxUserID, userOK := orgcontext.UserIDFromContext(ctx)
		if orgOK && userOK && ctxOrgID == orgID && ctxUserID == userID && member.Role != "" {
			return member.Role, nil
		}
	}

	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM org_members
		 WHERE org_id = ? AND user_id = ? AND is_active = ?
		 LIMIT 1`,
		orgID,
		userID,
		true,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, orgID string, object string, action string) {
	s.audit(ctx, auditdomain.ActionAuthzDenied, actorType, actorID, orgID, object, action)
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actorType string, actorID *string, orgID string, object string, action string) {
	s.audit(ctx, auditdomain.ActionAuthzGranted, actorType, actorID, orgID, object, action)
}

func (s *ServiceImpl) audit(ctx context.Context, auditAction string, actorType string, actorID *string, orgID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedOrgID, actorType, actorID, auditAction, "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"actor":   actorType,
		"org_id":  orgID,
		"subject": actorSubject(actorType, actorID),
	})
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case string(auditdomain.ActorTypeSystem):
		return "system"
	case string(auditdomain.ActorTypeUser):
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

// Grants on money movement are audited even when allowed.
func shouldAuditGrant(action string) bool {
	switch action {
	case ActionChargeUpdate, ActionChargeGenerate, ActionLedgerCreate:
		return true
	default:
		return false
	}
}

var memberPolicies = [][2]string{
	{ObjectOrganization, ActionOrganizationView},
	{ObjectMember, ActionMemberView},
	{ObjectGuest, ActionGuestView},
	{ObjectGame, ActionGameView},
	{ObjectAttendance, ActionAttendanceView},
	{ObjectAttendance, ActionAttendanceMark},
	{ObjectGameGuest, ActionGameGuestView},
	{ObjectGameGuest, ActionGameGuestManage},
	{ObjectTeam, ActionTeamView},
	{ObjectCaptain, ActionCaptainView},
	{ObjectDraft, ActionDraftView},
	{ObjectBillingSettings, ActionBillingSettingsView},
	{ObjectCharge, ActionChargeView},
	{ObjectLedger, ActionLedgerView},
	{ObjectFinance, ActionFinanceView},
}

var managerPolicies = [][2]string{
	{ObjectMember, ActionMemberManage},
	{ObjectGuest, ActionGuestManage},
	{ObjectGame, ActionGameCreate},
	{ObjectTeam, ActionTeamManage},
	{ObjectCaptain, ActionCaptainManage},
	{ObjectDraft, ActionDraftManage},
	{ObjectBillingSettings, ActionBillingSettingsUpdate},
	{ObjectCharge, ActionChargeGenerate},
	{ObjectCharge, ActionChargeUpdate},
	{ObjectLedger, ActionLedgerCreate},
	{ObjectAuditLog, ActionAuditLogView},
}

var systemPolicies = [][2]string{
	{ObjectBillingSettings, ActionBillingSettingsView},
	{ObjectCharge, ActionChargeView},
	{ObjectCharge, ActionChargeGenerate},
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	for _, p := range memberPolicies {
		policies = append(policies,
			[]string{roleMember, p[0], p[1]},
			[]string{roleAdmin, p[0], p[1]},
			[]string{roleOwner, p[0], p[1]},
		)
	}
	for _, p := range managerPolicies {
		policies = append(policies,
			[]string{roleAdmin, p[0], p[1]},
			[]string{roleOwner, p[0], p[1]},
		)
	}
	for _, p := range systemPolicies {
		policies = append(policies, []string{roleSystem, p[0], p[1]})
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
