package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthz(t *testing.T) (*gorm.DB, *ServiceImpl) {
	t.Helper()
	db := dbtest.Open(t, &orgdomain.Member{})
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return db, &ServiceImpl{db: db, log: zap.NewNop(), enforcer: enforcer}
}

func insertMember(t *testing.T, db *gorm.DB, orgID, userID int64, role string) {
	t.Helper()
	now := time.Now().UTC()
	member := orgdomain.Member{
		ID:         snowflake.ID(1000 + userID),
		OrgID:      snowflake.ID(orgID),
		UserID:     snowflake.ID(userID),
		Role:       role,
		MemberType: "MONTHLY",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(&member).Error)
}

func TestAuthorizeAllowsAdminManage(t *testing.T) {
	db, svc := setupAuthz(t)
	insertMember(t, db, 1, 10, "ADMIN")

	assert.NoError(t, svc.Authorize(context.Background(), "user:10", "1", ObjectDraft, ActionDraftManage))
	assert.NoError(t, svc.Authorize(context.Background(), "user:10", "1", ObjectCharge, ActionChargeUpdate))
}

func TestAuthorizeMemberIsReadOnly(t *testing.T) {
	db, svc := setupAuthz(t)
	insertMember(t, db, 1, 11, "MEMBER")

	assert.NoError(t, svc.Authorize(context.Background(), "user:11", "1", ObjectGame, ActionGameView))
	assert.NoError(t, svc.Authorize(context.Background(), "user:11", "1", ObjectAttendance, ActionAttendanceMark))
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:11", "1", ObjectCaptain, ActionCaptainManage), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user:11", "1", ObjectAuditLog, ActionAuditLogView), ErrForbidden)
}

func TestAuthorizeDeniesCrossOrg(t *testing.T) {
	db, svc := setupAuthz(t)
	insertMember(t, db, 1, 12, "OWNER")

	err := svc.Authorize(context.Background(), "user:12", "2", ObjectMember, ActionMemberView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	db, svc := setupAuthz(t)
	insertMember(t, db, 1, 13, "ADMIN")
	require.NoError(t, svc.Authorize(context.Background(), "user:13", "1", ObjectGuest, ActionGuestManage))

	require.NoError(t, db.Exec(`UPDATE org_members SET role = 'MEMBER' WHERE user_id = ?`, 13).Error)
	err := svc.Authorize(context.Background(), "user:13", "1", ObjectGuest, ActionGuestManage)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeUsesRequestMembership(t *testing.T) {
	_, svc := setupAuthz(t)

	ctx := orgcontext.WithOrgID(context.Background(), 1)
	ctx = orgcontext.WithUserID(ctx, 14)
	ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: 99, Role: "OWNER"})

	assert.NoError(t, svc.Authorize(ctx, "user:14", "1", ObjectLedger, ActionLedgerCreate))
}

func TestAuthorizeSystem(t *testing.T) {
	_, svc := setupAuthz(t)

	assert.NoError(t, svc.Authorize(context.Background(), "system", "3", ObjectCharge, ActionChargeGenerate))
	assert.ErrorIs(t, svc.Authorize(context.Background(), "system", "3", ObjectMember, ActionMemberManage), ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	_, svc := setupAuthz(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "1", ObjectGame, ActionGameView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "robot", "1", ObjectGame, ActionGameView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "", ObjectGame, ActionGameView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "abc", ObjectGame, ActionGameView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "1", "", ActionGameView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:1", "1", ObjectGame, ""), ErrInvalidAction)
}
