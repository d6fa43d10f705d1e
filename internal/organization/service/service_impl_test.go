package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/organization/repository"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	svc   domain.Service
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := dbtest.Open(t, &domain.Organization{}, &domain.Member{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Repo:  repository.NewRepository(db),
		GenID: node,
		Clock: fake,
	})
	return fixture{svc: svc, node: node, clock: fake}
}

func (f fixture) createOrg(t *testing.T, ownerID snowflake.ID, name string) context.Context {
	t.Helper()
	org, err := f.svc.Create(context.Background(), ownerID, domain.CreateOrganizationRequest{Name: name})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}

func (f fixture) addMember(t *testing.T, ctx context.Context, actor snowflake.ID, role string) *domain.Member {
	t.Helper()
	f.clock.Advance(time.Minute)
	member, err := f.svc.AddMember(ctx, actor, domain.AddMemberRequest{UserID: f.node.Generate(), Role: role})
	require.NoError(t, err)
	return member
}

func TestCreateOrganizationMakesCallerOwner(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()

	ctx := f.createOrg(t, ownerID, "Sunday Futsal Club")

	membership, err := f.svc.GetMembership(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, membership.Role)
	assert.Equal(t, domain.MemberTypeMonthly, membership.MemberType)
	assert.True(t, membership.IsActive)

	orgs, err := f.svc.ListOrganizationsByUser(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "sunday-futsal-club", orgs[0].Slug)
	assert.Equal(t, domain.RoleOwner, orgs[0].Role)
}

func TestCreateOrganizationDeduplicatesSlug(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), f.node.Generate(), domain.CreateOrganizationRequest{Name: "Padel Night"})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), f.node.Generate(), domain.CreateOrganizationRequest{Name: "Padel Night"})
	require.NoError(t, err)

	assert.Equal(t, "padel-night", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "padel-night-")
}

func TestCreateOrganizationRejectsBlankName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.node.Generate(), domain.CreateOrganizationRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAddMemberRules(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")

	admin := f.addMember(t, ctx, ownerID, domain.RoleAdmin)
	regular := f.addMember(t, ctx, ownerID, "")
	assert.Equal(t, domain.RoleMember, regular.Role)

	_, err := f.svc.AddMember(ctx, admin.UserID, domain.AddMemberRequest{UserID: f.node.Generate(), Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.AddMember(ctx, regular.UserID, domain.AddMemberRequest{UserID: f.node.Generate()})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.AddMember(ctx, ownerID, domain.AddMemberRequest{UserID: regular.UserID})
	assert.ErrorIs(t, err, domain.ErrMemberExists)

	_, err = f.svc.AddMember(ctx, ownerID, domain.AddMemberRequest{UserID: f.node.Generate(), MemberType: "YEARLY"})
	assert.ErrorIs(t, err, domain.ErrInvalidMemberType)

	_, err = f.svc.AddMember(ctx, f.node.Generate(), domain.AddMemberRequest{UserID: f.node.Generate()})
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestListMembersOrderedByJoinTime(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")

	first := f.addMember(t, ctx, ownerID, domain.RoleMember)
	second := f.addMember(t, ctx, ownerID, domain.RoleMember)

	members, err := f.svc.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, ownerID, members[0].UserID)
	assert.Equal(t, first.ID, members[1].ID)
	assert.Equal(t, second.ID, members[2].ID)
}

func TestUpdateMemberPermissions(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")

	admin := f.addMember(t, ctx, ownerID, domain.RoleAdmin)
	regular := f.addMember(t, ctx, ownerID, domain.RoleMember)
	other := f.addMember(t, ctx, ownerID, domain.RoleMember)

	nickname := "Keeper"
	updated, err := f.svc.UpdateMember(ctx, regular.UserID, regular.ID, domain.UpdateMemberRequest{Nickname: &nickname})
	require.NoError(t, err)
	require.NotNil(t, updated.Nickname)
	assert.Equal(t, "Keeper", *updated.Nickname)

	_, err = f.svc.UpdateMember(ctx, regular.UserID, other.ID, domain.UpdateMemberRequest{Nickname: &nickname})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	guest := domain.MemberTypeGuest
	_, err = f.svc.UpdateMember(ctx, regular.UserID, regular.ID, domain.UpdateMemberRequest{MemberType: &guest})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err = f.svc.UpdateMember(ctx, admin.UserID, other.ID, domain.UpdateMemberRequest{MemberType: &guest})
	require.NoError(t, err)
	assert.Equal(t, domain.MemberTypeGuest, updated.MemberType)

	inactive := false
	_, err = f.svc.UpdateMember(ctx, admin.UserID, f.mustMembership(t, ctx, ownerID).ID, domain.UpdateMemberRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func (f fixture) mustMembership(t *testing.T, ctx context.Context, userID snowflake.ID) *domain.Member {
	t.Helper()
	member, err := f.svc.GetMembership(ctx, userID)
	require.NoError(t, err)
	return member
}

func TestChangeRoleRules(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")
	owner := f.mustMembership(t, ctx, ownerID)

	admin := f.addMember(t, ctx, ownerID, domain.RoleAdmin)
	regular := f.addMember(t, ctx, ownerID, domain.RoleMember)

	_, err := f.svc.ChangeRole(ctx, ownerID, owner.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrCannotChangeSelf)

	_, err = f.svc.ChangeRole(ctx, admin.UserID, regular.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ChangeRole(ctx, admin.UserID, owner.ID, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ChangeRole(ctx, ownerID, regular.ID, "CAPTAIN")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	promoted, err := f.svc.ChangeRole(ctx, ownerID, regular.ID, domain.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, promoted.Role)

	demoted, err := f.svc.ChangeRole(ctx, regular.UserID, owner.ID, domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, demoted.Role)
}

func TestLastOwnerIsProtected(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")
	owner := f.mustMembership(t, ctx, ownerID)

	coOwner := f.addMember(t, ctx, ownerID, domain.RoleOwner)
	require.NoError(t, f.svc.RemoveMember(ctx, coOwner.UserID, owner.ID))

	// coOwner is now the only owner and cannot be removed by anyone.
	admin := f.addMember(t, ctx, coOwner.UserID, domain.RoleAdmin)
	err := f.svc.RemoveMember(ctx, admin.UserID, coOwner.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.RemoveMember(ctx, coOwner.UserID, coOwner.ID)
	assert.ErrorIs(t, err, domain.ErrCannotRemoveSelf)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ownerID := f.node.Generate()
	ctx := f.createOrg(t, ownerID, "Club")
	admin := f.addMember(t, ctx, ownerID, domain.RoleAdmin)
	regular := f.addMember(t, ctx, ownerID, domain.RoleMember)

	require.NoError(t, f.svc.RemoveMember(ctx, admin.UserID, regular.ID))

	_, err := f.svc.GetMember(ctx, regular.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	err = f.svc.RemoveMember(ctx, admin.UserID, regular.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestMemberOperationsRequireOrganization(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListMembers(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
