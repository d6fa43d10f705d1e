package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	"github.com/smallbiznis/clubhouse/internal/draft/domain"
	"github.com/smallbiznis/clubhouse/internal/draft/repository"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	gamerepository "github.com/smallbiznis/clubhouse/internal/game/repository"
	gameservice "github.com/smallbiznis/clubhouse/internal/game/service"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	guestrepository "github.com/smallbiznis/clubhouse/internal/guest/repository"
	guestservice "github.com/smallbiznis/clubhouse/internal/guest/service"
	orgdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	teamrepository "github.com/smallbiznis/clubhouse/internal/team/repository"
	teamservice "github.com/smallbiznis/clubhouse/internal/team/service"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type draftFixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	ctx      context.Context
	orgID    snowflake.ID
	svc      domain.Service
	gameSvc  gamedomain.Service
	guestSvc guestdomain.Service
	game     *gamedomain.Game
}

func setupDraftService(t *testing.T, wrap ...func(domain.Repository) domain.Repository) draftFixture {
	t.Helper()

	db := dbtest.Open(t,
		&orgdomain.Member{},
		&gamedomain.Game{}, &gamedomain.Attendance{},
		&guestdomain.OrgGuest{}, &guestdomain.GameGuest{},
		&teamdomain.MemberAssignment{}, &teamdomain.GuestAssignment{},
		&domain.Draft{}, &domain.Pick{},
	)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC))

	gameRepo := gamerepository.Provide()
	teamRepo := teamrepository.Provide()
	gameSvc := gameservice.NewService(gameservice.Params{DB: db, Log: log, GenID: node, Clock: fake, Repo: gameRepo})
	guestSvc := guestservice.NewService(guestservice.Params{
		DB: db, Log: log, Cfg: config.Config{DefaultPhoneRegion: "ID"}, GenID: node, Clock: fake,
		Repo: guestrepository.Provide(), GameSvc: gameSvc,
	})
	teamSvc := teamservice.NewService(teamservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: teamRepo,
		GameRepo: gameRepo, GameSvc: gameSvc, GuestSvc: guestSvc,
	})
	var draftRepo domain.Repository = repository.Provide()
	for _, w := range wrap {
		draftRepo = w(draftRepo)
	}
	svc := NewService(Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: draftRepo,
		GameSvc: gameSvc, TeamSvc: teamSvc, TeamRepo: teamRepo,
	})

	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: node.Generate(), Role: "ADMIN"})

	game, err := gameSvc.Create(ctx, gamedomain.CreateGameRequest{Title: "Draft night", StartAt: time.Date(2026, time.July, 2, 19, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	return draftFixture{db: db, node: node, ctx: ctx, orgID: orgID, svc: svc, gameSvc: gameSvc, guestSvc: guestSvc, game: game}
}

func (f draftFixture) goingMember(t *testing.T, nickname string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	member := orgdomain.Member{
		ID: f.node.Generate(), OrgID: f.orgID, UserID: f.node.Generate(),
		Role: orgdomain.RoleMember, MemberType: orgdomain.MemberTypeMonthly, Nickname: &nickname,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&member).Error)
	_, err := f.gameSvc.MarkAttendance(f.ctx, gamedomain.MarkAttendanceRequest{
		GameID: f.game.ID, MemberID: member.ID, UserID: member.UserID, Status: gamedomain.AttendanceGoing,
	})
	require.NoError(t, err)
	return member.ID
}

func TestStartDraftIsIdempotent(t *testing.T) {
	f := setupDraftService(t)

	state, err := f.svc.State(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotStarted, state.Status)
	assert.Nil(t, state.CurrentTurnTeamSide)

	first, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, first.Status)
	assert.Equal(t, domain.OrderModeABBA, first.OrderMode)
	assert.Equal(t, 0, first.CurrentPickIndex)

	second, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestStartDraftReactivatesNotStarted(t *testing.T) {
	f := setupDraftService(t)
	now := time.Now().UTC()
	parked := domain.Draft{
		ID: f.node.Generate(), OrgID: f.orgID, GameID: f.game.ID,
		Status: domain.StatusNotStarted, OrderMode: "", CurrentPickIndex: 2,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repository.Provide().Insert(f.ctx, f.db, &parked))

	draft, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, parked.ID, draft.ID)
	assert.Equal(t, domain.StatusInProgress, draft.Status)
	assert.Equal(t, domain.OrderModeABBA, draft.OrderMode)
	assert.Equal(t, 2, draft.CurrentPickIndex)
}

func TestDraftFullFlow(t *testing.T) {
	f := setupDraftService(t)
	alice := f.goingMember(t, "alice")
	bob := f.goingMember(t, "bob")
	carol := f.goingMember(t, "carol")
	guest, err := f.guestSvc.AddGameGuest(f.ctx, f.game.ID, guestdomain.AddGameGuestRequest{Name: "dave"})
	require.NoError(t, err)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(alice)})
	assert.ErrorIs(t, err, domain.ErrDraftNotInProgress)

	_, err = f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideB, Target: teamdomain.MemberParticipant(alice)})
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	pick, err := f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(alice)})
	require.NoError(t, err)
	assert.Equal(t, 1, pick.PickNumber)
	assert.Equal(t, 1, pick.RoundNumber)
	assert.Equal(t, "alice", pick.Item.Name)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideB, Target: teamdomain.MemberParticipant(alice)})
	assert.ErrorIs(t, err, domain.ErrAlreadyPicked)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideB, Target: teamdomain.GuestParticipant(guest.ID)})
	require.NoError(t, err)
	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideB, Target: teamdomain.MemberParticipant(bob)})
	require.NoError(t, err)

	state, err := f.svc.State(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentPickIndex)
	require.NotNil(t, state.CurrentTurnTeamSide)
	assert.Equal(t, teamdomain.SideA, *state.CurrentTurnTeamSide)
	require.Len(t, state.Picks, 3)
	require.Len(t, state.RemainingPool, 1)
	assert.Equal(t, carol, state.RemainingPool[0].ID)
	assert.Len(t, state.Teams.TeamA.Members, 1)
	assert.Len(t, state.Teams.TeamB.Members, 1)
	assert.Len(t, state.Teams.TeamB.Guests, 1)

	finished, err := f.svc.Finish(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, finished.Status)

	_, err = f.svc.Finish(f.ctx, f.game.ID)
	assert.ErrorIs(t, err, domain.ErrDraftNotInProgress)
	_, err = f.svc.Start(f.ctx, f.game.ID)
	assert.ErrorIs(t, err, domain.ErrDraftFinished)
	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(carol)})
	assert.ErrorIs(t, err, domain.ErrDraftNotInProgress)

	summary, err := f.svc.Summary(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, summary.Status)
	assert.Equal(t, 3, summary.PicksCount)
	assert.Equal(t, 1, summary.RemainingCount)
}

func TestPickRejectsIneligibleTargets(t *testing.T) {
	f := setupDraftService(t)
	_, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(f.node.Generate())})
	assert.ErrorIs(t, err, teamdomain.ErrMemberNotGoing)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.GuestParticipant(f.node.Generate())})
	assert.ErrorIs(t, err, teamdomain.ErrGuestNotInGame)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: "C", Target: teamdomain.MemberParticipant(f.node.Generate())})
	assert.ErrorIs(t, err, teamdomain.ErrInvalidTeamSide)

	state, err := f.svc.State(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentPickIndex)
}

func TestAdvanceIndexIsConditional(t *testing.T) {
	f := setupDraftService(t)
	alice := f.goingMember(t, "alice")
	draft, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)

	// Another writer advanced the cursor after this request read it.
	repo := repository.Provide()
	advanced, err := repo.AdvanceIndex(f.ctx, f.db, draft.ID, 0, time.Now())
	require.NoError(t, err)
	require.True(t, advanced)

	advanced, err = repo.AdvanceIndex(f.ctx, f.db, draft.ID, 0, time.Now())
	require.NoError(t, err)
	assert.False(t, advanced)

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideB, Target: teamdomain.MemberParticipant(alice)})
	require.NoError(t, err)
}

// racingDraftRepo runs beforeTx once, when Pick checks the target right
// before it opens its transaction.
type racingDraftRepo struct {
	domain.Repository
	beforeTx func(ctx context.Context, db *gorm.DB)
}

func (r *racingDraftRepo) wrap(inner domain.Repository) domain.Repository {
	r.Repository = inner
	return r
}

func (r *racingDraftRepo) IsPicked(ctx context.Context, db *gorm.DB, draftID snowflake.ID, memberID, guestID *snowflake.ID) (bool, error) {
	picked, err := r.Repository.IsPicked(ctx, db, draftID, memberID, guestID)
	if err != nil || picked || r.beforeTx == nil {
		return picked, err
	}
	hook := r.beforeTx
	r.beforeTx = nil
	hook(ctx, db)
	return false, nil
}

func (f draftFixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(model).Count(&count).Error)
	return count
}

func TestPickLosesCursorRace(t *testing.T) {
	racing := &racingDraftRepo{}
	f := setupDraftService(t, racing.wrap)
	alice := f.goingMember(t, "alice")
	draft, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)

	racing.beforeTx = func(ctx context.Context, db *gorm.DB) {
		advanced, err := racing.Repository.AdvanceIndex(ctx, db, draft.ID, 0, time.Now())
		require.NoError(t, err)
		require.True(t, advanced)
	}

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(alice)})
	assert.ErrorIs(t, err, domain.ErrPickConflict)

	state, err := f.svc.State(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentPickIndex)
	assert.Empty(t, state.Picks)
	assert.Zero(t, f.countRows(t, &teamdomain.MemberAssignment{}))
}

func TestPickLosesTargetRace(t *testing.T) {
	racing := &racingDraftRepo{}
	f := setupDraftService(t, racing.wrap)
	alice := f.goingMember(t, "alice")
	draft, err := f.svc.Start(f.ctx, f.game.ID)
	require.NoError(t, err)

	// A concurrent request already stored a pick of alice without having
	// moved the cursor yet.
	racing.beforeTx = func(ctx context.Context, db *gorm.DB) {
		winner := domain.Pick{
			ID: f.node.Generate(), OrgID: f.orgID, DraftID: draft.ID, GameID: f.game.ID,
			RoundNumber: 25, PickNumber: 99, TeamSide: teamdomain.SideB,
			MemberID: &alice, CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, racing.Repository.InsertPick(ctx, db, &winner))
	}

	_, err = f.svc.Pick(f.ctx, f.game.ID, domain.PickRequest{Side: teamdomain.SideA, Target: teamdomain.MemberParticipant(alice)})
	assert.ErrorIs(t, err, domain.ErrAlreadyPicked)

	state, err := f.svc.State(f.ctx, f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.CurrentPickIndex)
	assert.Equal(t, int64(1), f.countRows(t, &domain.Pick{}))
	assert.Zero(t, f.countRows(t, &teamdomain.MemberAssignment{}))
}
