package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/game/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("game.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGameRequest) (*domain.Game, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.StartAt.IsZero() {
		return nil, domain.ErrInvalidStartAt
	}

	now := s.clock.Now().UTC()
	game := domain.Game{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Title:     title,
		Sport:     strings.TrimSpace(req.Sport),
		Location:  strings.TrimSpace(req.Location),
		StartAt:   req.StartAt.UTC(),
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if member, ok := orgcontext.MemberFromContext(ctx); ok {
		createdBy := member.ID
		game.CreatedByMemberID = &createdBy
	}

	if err := s.repo.InsertGame(ctx, s.db, &game); err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		targetID := game.ID.String()
		_ = s.auditSvc.AuditLog(ctx, nil, "", nil, auditdomain.ActionGameCreate, auditdomain.TargetTypeGame, &targetID, map[string]any{
			"title":    game.Title,
			"start_at": game.StartAt,
		})
	}
	return &game, nil
}

func (s *Service) Get(ctx context.Context, gameID snowflake.ID) (*domain.Game, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if gameID == 0 {
		return nil, domain.ErrInvalidGame
	}

	game, err := s.repo.FindGame(ctx, s.db, orgID, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, domain.ErrGameNotFound
	}
	return game, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Game, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.repo.ListGames(ctx, s.db, orgID, limit)
	if err != nil {
		return nil, err
	}
	games := make([]domain.Game, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		games = append(games, *item)
	}
	return games, nil
}

func (s *Service) MarkAttendance(ctx context.Context, req domain.MarkAttendanceRequest) (*domain.Attendance, error) {
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidAttendance
	}
	if req.MemberID == 0 || req.UserID == 0 {
		return nil, domain.ErrInvalidMember
	}
	game, err := s.Get(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	existing, err := s.repo.FindAttendance(ctx, s.db, game.ID, req.MemberID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		attendance := domain.Attendance{
			ID:        s.genID.Generate(),
			OrgID:     game.OrgID,
			GameID:    game.ID,
			MemberID:  req.MemberID,
			UserID:    req.UserID,
			Status:    req.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.repo.InsertAttendance(ctx, s.db, &attendance)
		if err == nil {
			return &attendance, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Lost an insert race with another request for the same member.
		existing, err = s.repo.FindAttendance(ctx, s.db, game.ID, req.MemberID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, domain.ErrInvalidAttendance
		}
	}

	existing.Status = req.Status
	existing.UpdatedAt = now
	if err := s.repo.UpdateAttendanceStatus(ctx, s.db, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) ListAttendance(ctx context.Context, gameID snowflake.ID) ([]domain.Attendance, error) {
	game, err := s.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListAttendance(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Attendance, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rows = append(rows, *item)
	}
	return rows, nil
}
