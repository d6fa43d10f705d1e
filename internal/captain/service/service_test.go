package service

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/captain/domain"
	"github.com/smallbiznis/clubhouse/internal/captain/repository"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	gamerepository "github.com/smallbiznis/clubhouse/internal/game/repository"
	gameservice "github.com/smallbiznis/clubhouse/internal/game/service"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	guestrepository "github.com/smallbiznis/clubhouse/internal/guest/repository"
	guestservice "github.com/smallbiznis/clubhouse/internal/guest/service"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	teamrepository "github.com/smallbiznis/clubhouse/internal/team/repository"
	teamservice "github.com/smallbiznis/clubhouse/internal/team/service"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type captainFixture struct {
	node     *snowflake.Node
	ctx      context.Context
	svc      domain.Service
	gameSvc  gamedomain.Service
	guestSvc guestdomain.Service
}

func setupCaptainService(t *testing.T) captainFixture {
	t.Helper()

	db := dbtest.Open(t,
		&gamedomain.Game{}, &gamedomain.Attendance{},
		&guestdomain.OrgGuest{}, &guestdomain.GameGuest{},
		&domain.Captains{},
	)
	node, err := snowflake.NewNode(6)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC))

	gameRepo := gamerepository.Provide()
	guestRepo := guestrepository.Provide()
	gameSvc := gameservice.NewService(gameservice.Params{DB: db, Log: log, GenID: node, Clock: fake, Repo: gameRepo})
	guestSvc := guestservice.NewService(guestservice.Params{
		DB: db, Log: log, Cfg: config.Config{DefaultPhoneRegion: "ID"}, GenID: node, Clock: fake,
		Repo: guestRepo, GameSvc: gameSvc,
	})
	teamSvc := teamservice.NewService(teamservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: teamrepository.Provide(),
		GameRepo: gameRepo, GameSvc: gameSvc, GuestSvc: guestSvc,
	})
	svc := NewService(Params{
		DB: db, Log: log, GenID: node, Clock: fake, Repo: repository.Provide(),
		GameRepo: gameRepo, GameSvc: gameSvc, GuestRepo: guestRepo, TeamSvc: teamSvc,
		Rand: rand.New(rand.NewPCG(11, 13)),
	})

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: node.Generate(), Role: "ADMIN"})
	return captainFixture{node: node, ctx: ctx, svc: svc, gameSvc: gameSvc, guestSvc: guestSvc}
}

func (f captainFixture) game(t *testing.T, startAt time.Time) *gamedomain.Game {
	t.Helper()
	game, err := f.gameSvc.Create(f.ctx, gamedomain.CreateGameRequest{Title: "Game", StartAt: startAt})
	require.NoError(t, err)
	return game
}

func (f captainFixture) going(t *testing.T, gameID, memberID snowflake.ID) {
	t.Helper()
	_, err := f.gameSvc.MarkAttendance(f.ctx, gamedomain.MarkAttendanceRequest{
		GameID: gameID, MemberID: memberID, UserID: f.node.Generate(), Status: gamedomain.AttendanceGoing,
	})
	require.NoError(t, err)
}

func ref(p teamdomain.Participant) *teamdomain.Participant { return &p }

func TestManualCaptains(t *testing.T) {
	f := setupCaptainService(t)
	game := f.game(t, time.Date(2026, time.August, 2, 19, 0, 0, 0, time.UTC))
	m1, m2 := f.node.Generate(), f.node.Generate()
	f.going(t, game.ID, m1)
	f.going(t, game.ID, m2)
	guest, err := f.guestSvc.AddGameGuest(f.ctx, game.ID, guestdomain.AddGameGuestRequest{Name: "Eko"})
	require.NoError(t, err)

	view, err := f.svc.Set(f.ctx, game.ID, domain.SetRequest{
		CaptainA: ref(teamdomain.MemberParticipant(m1)),
		CaptainB: ref(teamdomain.GuestParticipant(guest.ID)),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, view.Mode)
	assert.Equal(t, teamdomain.MemberParticipant(m1), *view.CaptainA)
	assert.Equal(t, teamdomain.GuestParticipant(guest.ID), *view.CaptainB)

	// Omitted slot clears.
	view, err = f.svc.Set(f.ctx, game.ID, domain.SetRequest{CaptainB: ref(teamdomain.MemberParticipant(m2))})
	require.NoError(t, err)
	assert.Nil(t, view.CaptainA)
	assert.Equal(t, teamdomain.MemberParticipant(m2), *view.CaptainB)

	got, err := f.svc.Get(f.ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, view, got)
}

func TestManualCaptainsValidation(t *testing.T) {
	f := setupCaptainService(t)
	game := f.game(t, time.Date(2026, time.August, 2, 19, 0, 0, 0, time.UTC))
	m1 := f.node.Generate()
	f.going(t, game.ID, m1)

	_, err := f.svc.Set(f.ctx, game.ID, domain.SetRequest{
		CaptainA: ref(teamdomain.MemberParticipant(m1)),
		CaptainB: ref(teamdomain.MemberParticipant(m1)),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCaptain)

	_, err = f.svc.Set(f.ctx, game.ID, domain.SetRequest{CaptainA: ref(teamdomain.MemberParticipant(f.node.Generate()))})
	assert.ErrorIs(t, err, teamdomain.ErrMemberNotGoing)

	_, err = f.svc.Set(f.ctx, game.ID, domain.SetRequest{CaptainA: ref(teamdomain.GuestParticipant(f.node.Generate()))})
	assert.ErrorIs(t, err, teamdomain.ErrGuestNotInGame)

	_, err = f.svc.Set(f.ctx, game.ID, domain.SetRequest{Mode: "VOTE"})
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestRandomCaptainsAvoidPreviousGame(t *testing.T) {
	f := setupCaptainService(t)
	base := time.Date(2026, time.August, 2, 19, 0, 0, 0, time.UTC)
	previous := f.game(t, base)
	current := f.game(t, base.AddDate(0, 0, 7))

	ids := []snowflake.ID{f.node.Generate(), f.node.Generate(), f.node.Generate(), f.node.Generate()}
	for _, id := range ids {
		f.going(t, previous.ID, id)
		f.going(t, current.ID, id)
	}

	_, err := f.svc.Set(f.ctx, previous.ID, domain.SetRequest{
		CaptainA: ref(teamdomain.MemberParticipant(ids[0])),
		CaptainB: ref(teamdomain.MemberParticipant(ids[1])),
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		view, err := f.svc.Set(f.ctx, current.ID, domain.SetRequest{Mode: domain.ModeRandom})
		require.NoError(t, err)
		require.NotNil(t, view.CaptainA)
		require.NotNil(t, view.CaptainB)
		assert.NotEqual(t, *view.CaptainA, *view.CaptainB)
		for _, captain := range []teamdomain.Participant{*view.CaptainA, *view.CaptainB} {
			assert.NotEqual(t, ids[0], captain.ID)
			assert.NotEqual(t, ids[1], captain.ID)
		}
	}
}

func TestRandomCaptainsUseGuestsWhenFewMembers(t *testing.T) {
	f := setupCaptainService(t)
	game := f.game(t, time.Date(2026, time.August, 2, 19, 0, 0, 0, time.UTC))

	_, err := f.svc.Set(f.ctx, game.ID, domain.SetRequest{Mode: domain.ModeRandom})
	assert.ErrorIs(t, err, domain.ErrNotEnoughCandidates)

	member := f.node.Generate()
	f.going(t, game.ID, member)
	guest, err := f.guestSvc.AddGameGuest(f.ctx, game.ID, guestdomain.AddGameGuestRequest{Name: "Fajar"})
	require.NoError(t, err)

	view, err := f.svc.Set(f.ctx, game.ID, domain.SetRequest{Mode: domain.ModeRandom})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]teamdomain.Participant{teamdomain.MemberParticipant(member), teamdomain.GuestParticipant(guest.ID)},
		[]teamdomain.Participant{*view.CaptainA, *view.CaptainB},
	)
}
