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
	"github.com/smallbiznis/clubhouse/internal/guest/domain"
	"github.com/smallbiznis/clubhouse/internal/guest/repository"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type guestFixture struct {
	svc     domain.Service
	gameSvc gamedomain.Service
	node    *snowflake.Node
	ctx     context.Context
}

func setupGuestService(t *testing.T) guestFixture {
	t.Helper()

	db := dbtest.Open(t, &gamedomain.Game{}, &gamedomain.Attendance{}, &domain.OrgGuest{}, &domain.GameGuest{})
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	fake := clock.NewFakeClock(time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC))

	gameSvc := gameservice.NewService(gameservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  gamerepository.Provide(),
	})
	svc := NewService(Params{
		DB:      db,
		Log:     log,
		Cfg:     config.Config{DefaultPhoneRegion: "ID"},
		GenID:   node,
		Clock:   fake,
		Repo:    repository.Provide(),
		GameSvc: gameSvc,
	})

	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
	ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: node.Generate(), Role: "MEMBER"})
	return guestFixture{svc: svc, gameSvc: gameSvc, node: node, ctx: ctx}
}

func (f guestFixture) createGame(t *testing.T) *gamedomain.Game {
	t.Helper()
	game, err := f.gameSvc.Create(f.ctx, gamedomain.CreateGameRequest{Title: "Game", StartAt: time.Date(2026, time.May, 2, 19, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	return game
}

func TestCreateOrgGuestNormalizesPhone(t *testing.T) {
	f := setupGuestService(t)

	guest, err := f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: " Budi ", Phone: "0812 3456 7890"})
	require.NoError(t, err)
	assert.Equal(t, "Budi", guest.Name)
	require.NotNil(t, guest.Phone)
	assert.Equal(t, "+6281234567890", *guest.Phone)

	_, err = f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: "Other", Phone: "+62 812-3456-7890"})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)

	noPhone, err := f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: "Sari"})
	require.NoError(t, err)
	assert.Nil(t, noPhone.Phone)

	_, err = f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	guests, err := f.svc.ListOrgGuests(f.ctx)
	require.NoError(t, err)
	assert.Len(t, guests, 2)
}

func TestUpdateOrgGuest(t *testing.T) {
	f := setupGuestService(t)
	first, err := f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: "A", Phone: "081234567890"})
	require.NoError(t, err)
	second, err := f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: "B"})
	require.NoError(t, err)

	taken := "081234567890"
	_, err = f.svc.UpdateOrgGuest(f.ctx, second.ID, domain.UpdateOrgGuestRequest{Phone: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicatePhone)

	// Re-saving a guest's own phone is not a conflict.
	updated, err := f.svc.UpdateOrgGuest(f.ctx, first.ID, domain.UpdateOrgGuestRequest{Phone: &taken})
	require.NoError(t, err)
	assert.Equal(t, "+6281234567890", *updated.Phone)

	empty := ""
	cleared, err := f.svc.UpdateOrgGuest(f.ctx, first.ID, domain.UpdateOrgGuestRequest{Phone: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Phone)

	_, err = f.svc.UpdateOrgGuest(f.ctx, f.node.Generate(), domain.UpdateOrgGuestRequest{Name: &taken})
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
}

func TestDeleteOrgGuestInUse(t *testing.T) {
	f := setupGuestService(t)
	game := f.createGame(t)
	saved, err := f.svc.CreateOrgGuest(f.ctx, domain.CreateOrgGuestRequest{Name: "Rudi"})
	require.NoError(t, err)

	_, err = f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{OrgGuestID: &saved.ID})
	require.NoError(t, err)

	err = f.svc.DeleteOrgGuest(f.ctx, saved.ID)
	assert.ErrorIs(t, err, domain.ErrGuestInUse)
}

func TestAddGameGuestRejectsDuplicates(t *testing.T) {
	f := setupGuestService(t)
	game := f.createGame(t)

	added, err := f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{Name: "Joko", Phone: "081234567891"})
	require.NoError(t, err)
	assert.True(t, added.CanDelete)

	_, err = f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{Name: " joko ", Phone: "+6281234567891"})
	assert.ErrorIs(t, err, domain.ErrGuestAlreadyAdded)

	_, err = f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{Name: "Joko"})
	assert.NoError(t, err)

	_, err = f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.AddGameGuest(f.ctx, f.node.Generate(), domain.AddGameGuestRequest{Name: "X"})
	assert.ErrorIs(t, err, gamedomain.ErrGameNotFound)
}

func TestRemoveGameGuestPermissions(t *testing.T) {
	f := setupGuestService(t)
	game := f.createGame(t)

	added, err := f.svc.AddGameGuest(f.ctx, game.ID, domain.AddGameGuestRequest{Name: "Joko"})
	require.NoError(t, err)

	orgID, _ := orgcontext.OrgIDFromContext(f.ctx)
	otherMember := orgcontext.WithMember(orgcontext.WithOrgID(context.Background(), int64(orgID)), orgcontext.Member{ID: f.node.Generate(), Role: "MEMBER"})

	views, err := f.svc.ListGameGuests(otherMember, game.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].CanDelete)

	err = f.svc.RemoveGameGuest(otherMember, game.ID, added.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	admin := orgcontext.WithMember(orgcontext.WithOrgID(context.Background(), int64(orgID)), orgcontext.Member{ID: f.node.Generate(), Role: "ADMIN"})
	require.NoError(t, f.svc.RemoveGameGuest(admin, game.ID, added.ID))

	_, err = f.svc.GetGameGuest(f.ctx, game.ID, added.ID)
	assert.ErrorIs(t, err, domain.ErrGameGuestNotFound)
}
