package service

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/captain/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	GameRepo   gamedomain.Repository
	GameSvc    gamedomain.Service
	GuestRepo  guestdomain.Repository
	TeamSvc    teamdomain.Service
	Rand       *rand.Rand          `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	gameRepo   gamedomain.Repository
	gameSvc    gamedomain.Service
	guestRepo  guestdomain.Repository
	teamSvc    teamdomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(p Params) domain.Service {
	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("captain.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		gameRepo:   p.GameRepo,
		gameSvc:    p.GameSvc,
		guestRepo:  p.GuestRepo,
		teamSvc:    p.TeamSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
		rng:        rng,
	}
}

func (s *Service) Get(ctx context.Context, gameID snowflake.ID) (*domain.View, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	captains, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	return toView(game.ID, captains), nil
}

func (s *Service) Set(ctx context.Context, gameID snowflake.ID, req domain.SetRequest) (*domain.View, error) {
	if req.Mode == "" {
		req.Mode = domain.ModeManual
	}
	if !req.Mode.Valid() {
		return nil, domain.ErrInvalidMode
	}
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var a, b *teamdomain.Participant
	switch req.Mode {
	case domain.ModeManual:
		a, b, err = s.manual(ctx, *game, req.CaptainA, req.CaptainB)
	case domain.ModeRandom:
		a, b, err = s.random(ctx, *game)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	captains := domain.Captains{
		ID:        s.genID.Generate(),
		OrgID:     game.OrgID,
		GameID:    game.ID,
		Mode:      req.Mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	captains.SetSlots(a, b)
	if err := s.repo.Upsert(ctx, s.db, &captains); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordCaptainSelection(ctx, string(req.Mode))
	if s.auditSvc != nil {
		targetID := game.ID.String()
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionCaptainsSet, auditdomain.TargetTypeGame, &targetID, map[string]any{
			"mode":      string(req.Mode),
			"captain_a": describe(a),
			"captain_b": describe(b),
		})
	}
	return toView(game.ID, &captains), nil
}

func (s *Service) manual(ctx context.Context, game gamedomain.Game, a, b *teamdomain.Participant) (*teamdomain.Participant, *teamdomain.Participant, error) {
	for _, ref := range []*teamdomain.Participant{a, b} {
		if ref == nil {
			continue
		}
		if !ref.Valid() {
			return nil, nil, teamdomain.ErrInvalidTarget
		}
	}
	if a != nil && b != nil && *a == *b {
		return nil, nil, domain.ErrDuplicateCaptain
	}
	for _, ref := range []*teamdomain.Participant{a, b} {
		if ref == nil {
			continue
		}
		if err := s.teamSvc.CheckEligible(ctx, game.ID, *ref); err != nil {
			return nil, nil, err
		}
	}
	return a, b, nil
}

func (s *Service) random(ctx context.Context, game gamedomain.Game) (*teamdomain.Participant, *teamdomain.Participant, error) {
	memberIDs, err := s.gameRepo.ListGoingMemberIDs(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, nil, err
	}
	going := make([]teamdomain.Participant, 0, len(memberIDs))
	for _, id := range memberIDs {
		going = append(going, teamdomain.MemberParticipant(id))
	}

	var guests []teamdomain.Participant
	if len(going) < 2 {
		rows, err := s.guestRepo.ListGameGuests(ctx, s.db, game.OrgID, game.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			if row != nil {
				guests = append(guests, teamdomain.GuestParticipant(row.ID))
			}
		}
	}

	forbidden, err := s.previousCaptains(ctx, game)
	if err != nil {
		return nil, nil, err
	}

	s.rngMu.Lock()
	a, b, err := domain.PickRandom(domain.CandidatePool(going, guests), forbidden, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	return &a, &b, nil
}

// previousCaptains returns the captains of the org's most recent earlier game.
func (s *Service) previousCaptains(ctx context.Context, game gamedomain.Game) ([]teamdomain.Participant, error) {
	previous, err := s.gameRepo.FindPreviousGame(ctx, s.db, game)
	if err != nil || previous == nil {
		return nil, err
	}
	captains, err := s.repo.FindByGame(ctx, s.db, previous.OrgID, previous.ID)
	if err != nil || captains == nil {
		return nil, err
	}
	return captains.Occupants(), nil
}

func toView(gameID snowflake.ID, captains *domain.Captains) *domain.View {
	view := &domain.View{GameID: gameID}
	if captains == nil {
		return view
	}
	view.Mode = captains.Mode
	view.CaptainA = captains.CaptainA()
	view.CaptainB = captains.CaptainB()
	return view
}

func describe(ref *teamdomain.Participant) string {
	if ref == nil {
		return ""
	}
	return string(ref.Type) + ":" + ref.ID.String()
}
