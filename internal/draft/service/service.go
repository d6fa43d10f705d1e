package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/draft/domain"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	obsmetrics "github.com/smallbiznis/clubhouse/internal/observability/metrics"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	teamservice "github.com/smallbiznis/clubhouse/internal/team/service"
	"github.com/smallbiznis/clubhouse/pkg/db"
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
	GameSvc    gamedomain.Service
	TeamSvc    teamdomain.Service
	TeamRepo   teamdomain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	gameSvc    gamedomain.Service
	teamSvc    teamdomain.Service
	teamRepo   teamdomain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("draft.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		gameSvc:    p.GameSvc,
		teamSvc:    p.TeamSvc,
		teamRepo:   p.TeamRepo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Start(ctx context.Context, gameID snowflake.ID) (*domain.Draft, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	draft, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if draft == nil {
		draft = &domain.Draft{
			ID:        s.genID.Generate(),
			OrgID:     game.OrgID,
			GameID:    game.ID,
			Status:    domain.StatusInProgress,
			OrderMode: domain.OrderModeABBA,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, s.db, draft); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return nil, err
			}
			// Another request created the draft concurrently.
			return s.resolveStart(ctx, game)
		}
		s.audit(ctx, auditdomain.ActionDraftStart, game.ID, nil)
		return draft, nil
	}

	switch draft.Status {
	case domain.StatusInProgress:
		return draft, nil
	case domain.StatusFinished:
		return nil, domain.ErrDraftFinished
	}

	if draft.OrderMode == "" {
		draft.OrderMode = domain.OrderModeABBA
	}
	if draft.CurrentPickIndex < 0 {
		draft.CurrentPickIndex = 0
	}
	draft.Status = domain.StatusInProgress
	draft.UpdatedAt = now
	if err := s.repo.Activate(ctx, s.db, draft); err != nil {
		return nil, err
	}
	s.audit(ctx, auditdomain.ActionDraftStart, game.ID, map[string]any{"reactivated": true})
	return draft, nil
}

func (s *Service) resolveStart(ctx context.Context, game *gamedomain.Game) (*domain.Draft, error) {
	draft, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, domain.ErrPickConflict
	}
	if draft.Status == domain.StatusFinished {
		return nil, domain.ErrDraftFinished
	}
	return draft, nil
}

func (s *Service) Pick(ctx context.Context, gameID snowflake.ID, req domain.PickRequest) (*domain.PickView, error) {
	if !req.Side.Valid() {
		return nil, teamdomain.ErrInvalidTeamSide
	}
	if !req.Target.Valid() {
		return nil, teamdomain.ErrInvalidTarget
	}

	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	draft, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Status != domain.StatusInProgress {
		return nil, domain.ErrDraftNotInProgress
	}

	index := draft.CurrentPickIndex
	if domain.TurnSide(draft.OrderMode, index) != req.Side {
		return nil, domain.ErrNotYourTurn
	}

	pick := domain.Pick{
		ID:          s.genID.Generate(),
		OrgID:       game.OrgID,
		DraftID:     draft.ID,
		GameID:      game.ID,
		PickNumber:  index + 1,
		RoundNumber: domain.RoundNumber(index + 1),
		TeamSide:    req.Side,
		CreatedAt:   s.clock.Now().UTC(),
	}
	targetID := req.Target.ID
	if req.Target.Type == teamdomain.ParticipantMember {
		pick.MemberID = &targetID
	} else {
		pick.GameGuestID = &targetID
	}
	if member, ok := orgcontext.MemberFromContext(ctx); ok {
		createdBy := member.ID
		pick.CreatedByMemberID = &createdBy
	}

	picked, err := s.repo.IsPicked(ctx, s.db, draft.ID, pick.MemberID, pick.GameGuestID)
	if err != nil {
		return nil, err
	}
	if picked {
		return nil, domain.ErrAlreadyPicked
	}
	if err := s.teamSvc.CheckEligible(ctx, game.ID, req.Target); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advanced, err := s.repo.AdvanceIndex(ctx, tx, draft.ID, index, pick.CreatedAt)
		if err != nil {
			return err
		}
		if !advanced {
			return domain.ErrPickConflict
		}
		if err := s.repo.InsertPick(ctx, tx, &pick); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyPicked
			}
			return err
		}
		return teamservice.Assign(ctx, tx, s.teamRepo, s.genID, pick.CreatedAt, *game, req.Target, req.Side)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrPickConflict
		}
		return nil, err
	}

	s.obsMetrics.RecordDraftPick(ctx, string(req.Side))
	s.audit(ctx, auditdomain.ActionDraftPick, game.ID, map[string]any{
		"pick_number":      pick.PickNumber,
		"team_side":        string(pick.TeamSide),
		"participant_type": string(req.Target.Type),
		"participant_id":   req.Target.ID.String(),
	})

	names, err := s.poolNames(ctx, *game)
	if err != nil {
		return nil, err
	}
	view := toPickView(pick, names)
	return &view, nil
}

func (s *Service) Finish(ctx context.Context, gameID snowflake.ID) (*domain.Draft, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	draft, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.Status != domain.StatusInProgress {
		return nil, domain.ErrDraftNotInProgress
	}

	now := s.clock.Now().UTC()
	finished, err := s.repo.Finish(ctx, s.db, draft.ID, now)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, domain.ErrDraftNotInProgress
	}

	draft.Status = domain.StatusFinished
	draft.UpdatedAt = now
	s.audit(ctx, auditdomain.ActionDraftFinish, game.ID, map[string]any{
		"picks": draft.CurrentPickIndex,
	})
	return draft, nil
}

func (s *Service) State(ctx context.Context, gameID snowflake.ID) (*domain.State, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	draft, picks, err := s.load(ctx, *game)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListGoingMembers(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	guests, err := s.repo.ListGameGuests(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teamSvc.View(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	names := indexPool(members, guests)
	views := make([]domain.PickView, 0, len(picks))
	for _, pick := range picks {
		views = append(views, toPickView(pick, names))
	}

	return &domain.State{
		Status:              draft.Status,
		OrderMode:           draft.OrderMode,
		CurrentPickIndex:    draft.CurrentPickIndex,
		CurrentTurnTeamSide: draft.CurrentTurn(),
		Picks:               views,
		RemainingPool:       domain.RemainingPool(members, guests, picks),
		Teams:               teams,
	}, nil
}

func (s *Service) Summary(ctx context.Context, gameID snowflake.ID) (*domain.Summary, error) {
	state, err := s.State(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return &domain.Summary{
		Status:              state.Status,
		CurrentTurnTeamSide: state.CurrentTurnTeamSide,
		PicksCount:          len(state.Picks),
		RemainingCount:      len(state.RemainingPool),
	}, nil
}

// load returns the game's draft, or a NOT_STARTED placeholder when none exists.
func (s *Service) load(ctx context.Context, game gamedomain.Game) (domain.Draft, []domain.Pick, error) {
	draft, err := s.repo.FindByGame(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return domain.Draft{}, nil, err
	}
	if draft == nil {
		return domain.Draft{
			OrgID:     game.OrgID,
			GameID:    game.ID,
			Status:    domain.StatusNotStarted,
			OrderMode: domain.OrderModeABBA,
		}, []domain.Pick{}, nil
	}

	picks, err := s.repo.ListPicks(ctx, s.db, draft.ID)
	if err != nil {
		return domain.Draft{}, nil, err
	}
	return *draft, picks, nil
}

func (s *Service) poolNames(ctx context.Context, game gamedomain.Game) (map[teamdomain.Participant]domain.PoolItem, error) {
	members, err := s.repo.ListGoingMembers(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	guests, err := s.repo.ListGameGuests(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	return indexPool(members, guests), nil
}

func (s *Service) audit(ctx context.Context, action string, gameID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := gameID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, "", nil, action, auditdomain.TargetTypeGame, &targetID, metadata)
}

func indexPool(members, guests []domain.PoolItem) map[teamdomain.Participant]domain.PoolItem {
	index := make(map[teamdomain.Participant]domain.PoolItem, len(members)+len(guests))
	for _, item := range members {
		index[item.Participant()] = item
	}
	for _, item := range guests {
		index[item.Participant()] = item
	}
	return index
}

func toPickView(pick domain.Pick, names map[teamdomain.Participant]domain.PoolItem) domain.PickView {
	ref := pick.Participant()
	item, ok := names[ref]
	if !ok {
		item = domain.PoolItem{Type: ref.Type, ID: ref.ID, Name: string(ref.Type) + " " + ref.ID.String()}
	}
	return domain.PickView{
		ID:          pick.ID,
		RoundNumber: pick.RoundNumber,
		PickNumber:  pick.PickNumber,
		TeamSide:    pick.TeamSide,
		CreatedAt:   pick.CreatedAt,
		Item:        item,
	}
}

