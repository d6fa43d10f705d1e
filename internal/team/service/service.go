package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	"github.com/smallbiznis/clubhouse/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	GameRepo gamedomain.Repository
	GameSvc  gamedomain.Service
	GuestSvc guestdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	gameRepo gamedomain.Repository
	gameSvc  gamedomain.Service
	guestSvc guestdomain.Service
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("team.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		gameRepo: p.GameRepo,
		gameSvc:  p.GameSvc,
		guestSvc: p.GuestSvc,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) SetAssignment(ctx context.Context, gameID snowflake.ID, target domain.Participant, side *domain.TeamSide) (domain.Teams, error) {
	if !target.Valid() {
		return domain.Teams{}, domain.ErrInvalidTarget
	}
	if side != nil && !side.Valid() {
		return domain.Teams{}, domain.ErrInvalidTeamSide
	}
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return domain.Teams{}, err
	}

	if side == nil {
		if err := s.clear(ctx, game.ID, target); err != nil {
			return domain.Teams{}, err
		}
	} else {
		if err := s.CheckEligible(ctx, game.ID, target); err != nil {
			return domain.Teams{}, err
		}
		if err := Assign(ctx, s.db, s.repo, s.genID, s.clock.Now().UTC(), *game, target, *side); err != nil {
			return domain.Teams{}, err
		}
	}

	if s.auditSvc != nil {
		targetID := game.ID.String()
		team := ""
		if side != nil {
			team = string(*side)
		}
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionTeamAssign, auditdomain.TargetTypeGame, &targetID, map[string]any{
			"participant_type": string(target.Type),
			"participant_id":   target.ID.String(),
			"team":             team,
		})
	}

	return s.view(ctx, *game)
}

func (s *Service) View(ctx context.Context, gameID snowflake.ID) (domain.Teams, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return domain.Teams{}, err
	}
	return s.view(ctx, *game)
}

func (s *Service) view(ctx context.Context, game gamedomain.Game) (domain.Teams, error) {
	members, err := s.repo.ListTeamMembers(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return domain.Teams{}, err
	}
	guests, err := s.repo.ListTeamGuests(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return domain.Teams{}, err
	}
	return domain.BuildTeams(members, guests), nil
}

func (s *Service) CheckEligible(ctx context.Context, gameID snowflake.ID, target domain.Participant) error {
	if !target.Valid() {
		return domain.ErrInvalidTarget
	}
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return err
	}

	switch target.Type {
	case domain.ParticipantMember:
		going, err := s.gameRepo.IsGoing(ctx, s.db, game.OrgID, game.ID, target.ID)
		if err != nil {
			return err
		}
		if !going {
			return domain.ErrMemberNotGoing
		}
	case domain.ParticipantGuest:
		if _, err := s.guestSvc.GetGameGuest(ctx, game.ID, target.ID); err != nil {
			if errors.Is(err, guestdomain.ErrGameGuestNotFound) {
				return domain.ErrGuestNotInGame
			}
			return err
		}
	}
	return nil
}

func (s *Service) clear(ctx context.Context, gameID snowflake.ID, target domain.Participant) error {
	if target.Type == domain.ParticipantMember {
		return s.repo.DeleteMember(ctx, s.db, gameID, target.ID)
	}
	return s.repo.DeleteGuest(ctx, s.db, gameID, target.ID)
}

// Assign upserts the side of target in game using db, which may be a
// transaction. The latest assignment wins.
func Assign(ctx context.Context, db *gorm.DB, repo domain.Repository, genID *snowflake.Node, now time.Time, game gamedomain.Game, target domain.Participant, side domain.TeamSide) error {
	switch target.Type {
	case domain.ParticipantMember:
		return repo.UpsertMember(ctx, db, &domain.MemberAssignment{
			ID:        genID.Generate(),
			OrgID:     game.OrgID,
			GameID:    game.ID,
			MemberID:  target.ID,
			Team:      side,
			CreatedAt: now,
			UpdatedAt: now,
		})
	case domain.ParticipantGuest:
		return repo.UpsertGuest(ctx, db, &domain.GuestAssignment{
			ID:          genID.Generate(),
			OrgID:       game.OrgID,
			GameID:      game.ID,
			GameGuestID: target.ID,
			Team:        side,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	default:
		return domain.ErrInvalidTarget
	}
}
