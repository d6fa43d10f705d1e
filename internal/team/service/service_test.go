package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	gamerepository "github.com/smallbiznis/clubhouse/internal/game/repository"
	gameservice "github.com/smallbiznis/clubhouse/internal/game/service"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	guestrepository "github.com/smallbiznis/clubhouse/internal/guest/repository"
	guestservice "github.com/smallbiznis/clubhouse/internal/guest/service"
	orgdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/internal/team/domain"
	"github.com/smallbiznis/clubhouse/internal/team/repository"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type teamFixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	ctx      context.Context
	orgID    snowflake.ID
	svc      domain.Service
	gameSvc  gamedomain.Service
	guestSvc guestdomain.Service
}

func setupTeamService(t *testing.T) teamFixture {
	t.Helper()

	db := dbtest.Open(t,
		&orgdomain.Member{},
		&gamedomain.Game{}, &gamedomain.Attendance{},
		&guestdomain.OrgGuest{}, &guestdomain.GameGuest{},
		&domain.MemberAssignment{}, &domain.GuestAssignment{},
	)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC))

	gameRepo := gamerepository.Provide()
	gameSvc := gameservice.NewService(gameservice.Params{DB: db, Log: log, GenID: node, Clock: fake, Repo: gameRepo})
	guestSvc := guestservice.NewService(guestservice.Params{
		DB: db, Log: log, Cfg: config.Config{DefaultPhoneRegion: "ID"}, GenID: node, Clock: fake,
		Repo: guestrepository.Provide(), GameSvc: gameSvc,
	})
	svc := NewService(Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: repository.Provide(),
		GameRepo: gameRepo, GameSvc: gameSvc, GuestSvc: guestSvc,
	})

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: node.Generate(), Role: "ADMIN"})
	return teamFixture{db: db, node: node, ctx: ctx, orgID: orgID, svc: svc, gameSvc: gameSvc, guestSvc: guestSvc}
}

func (f teamFixture) member(t *testing.T, gameID snowflake.ID, status gamedomain.AttendanceStatus) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	member := orgdomain.Member{
		ID: f.node.Generate(), OrgID: f.orgID, UserID: f.node.Generate(),
		Role: orgdomain.RoleMember, MemberType: orgdomain.MemberTypeMonthly, IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&member).Error)
	_, err := f.gameSvc.MarkAttendance(f.ctx, gamedomain.MarkAttendanceRequest{
		GameID: gameID, MemberID: member.ID, UserID: member.UserID, Status: status,
	})
	require.NoError(t, err)
	return member.ID
}

func (f teamFixture) game(t *testing.T) *gamedomain.Game {
	t.Helper()
	game, err := f.gameSvc.Create(f.ctx, gamedomain.CreateGameRequest{Title: "Game", StartAt: time.Date(2026, time.June, 2, 19, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	return game
}

func sidePtr(side domain.TeamSide) *domain.TeamSide { return &side }

func TestSetAssignmentLastWins(t *testing.T) {
	f := setupTeamService(t)
	game := f.game(t)
	memberID := f.member(t, game.ID, gamedomain.AttendanceGoing)

	teams, err := f.svc.SetAssignment(f.ctx, game.ID, domain.MemberParticipant(memberID), sidePtr(domain.SideA))
	require.NoError(t, err)
	require.Len(t, teams.TeamA.Members, 1)
	assert.Empty(t, teams.TeamB.Members)

	teams, err = f.svc.SetAssignment(f.ctx, game.ID, domain.MemberParticipant(memberID), sidePtr(domain.SideB))
	require.NoError(t, err)
	assert.Empty(t, teams.TeamA.Members)
	require.Len(t, teams.TeamB.Members, 1)
	assert.Equal(t, memberID, teams.TeamB.Members[0].OrgMemberID)

	teams, err = f.svc.SetAssignment(f.ctx, game.ID, domain.MemberParticipant(memberID), nil)
	require.NoError(t, err)
	assert.Empty(t, teams.TeamA.Members)
	assert.Empty(t, teams.TeamB.Members)
}

func TestSetAssignmentEligibility(t *testing.T) {
	f := setupTeamService(t)
	game := f.game(t)
	maybe := f.member(t, game.ID, gamedomain.AttendanceMaybe)

	_, err := f.svc.SetAssignment(f.ctx, game.ID, domain.MemberParticipant(maybe), sidePtr(domain.SideA))
	assert.ErrorIs(t, err, domain.ErrMemberNotGoing)

	_, err = f.svc.SetAssignment(f.ctx, game.ID, domain.GuestParticipant(f.node.Generate()), sidePtr(domain.SideA))
	assert.ErrorIs(t, err, domain.ErrGuestNotInGame)

	_, err = f.svc.SetAssignment(f.ctx, game.ID, domain.MemberParticipant(maybe), sidePtr("C"))
	assert.ErrorIs(t, err, domain.ErrInvalidTeamSide)

	_, err = f.svc.SetAssignment(f.ctx, game.ID, domain.Participant{Type: "COACH", ID: maybe}, sidePtr(domain.SideA))
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestSetAssignmentGuest(t *testing.T) {
	f := setupTeamService(t)
	game := f.game(t)
	guest, err := f.guestSvc.AddGameGuest(f.ctx, game.ID, guestdomain.AddGameGuestRequest{Name: "Andi"})
	require.NoError(t, err)

	teams, err := f.svc.SetAssignment(f.ctx, game.ID, domain.GuestParticipant(guest.ID), sidePtr(domain.SideB))
	require.NoError(t, err)
	require.Len(t, teams.TeamB.Guests, 1)
	assert.Equal(t, "Andi", teams.TeamB.Guests[0].Name)

	view, err := f.svc.View(f.ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, teams, view)
}

func TestParticipantFromIDs(t *testing.T) {
	id := snowflake.ID(42)
	zero := snowflake.ID(0)

	p, err := domain.ParticipantFromIDs(&id, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberParticipant(id), p)

	p, err = domain.ParticipantFromIDs(&zero, &id)
	require.NoError(t, err)
	assert.Equal(t, domain.GuestParticipant(id), p)

	_, err = domain.ParticipantFromIDs(&id, &id)
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)

	_, err = domain.ParticipantFromIDs(nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}
