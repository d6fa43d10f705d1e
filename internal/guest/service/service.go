package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	"github.com/smallbiznis/clubhouse/internal/guest/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	GameSvc  gamedomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	gameSvc       gamedomain.Service
	auditSvc      auditdomain.Service
	defaultRegion string
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("guest.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		gameSvc:       p.GameSvc,
		auditSvc:      p.AuditSvc,
		defaultRegion: p.Cfg.DefaultPhoneRegion,
	}
}

func (s *Service) ListOrgGuests(ctx context.Context) ([]domain.OrgGuest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListOrgGuests(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	guests := make([]domain.OrgGuest, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		guests = append(guests, *item)
	}
	return guests, nil
}

func (s *Service) CreateOrgGuest(ctx context.Context, req domain.CreateOrgGuestRequest) (*domain.OrgGuest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	phone, err := domain.NormalizePhone(req.Phone, s.defaultRegion)
	if err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, orgID, phone, 0); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	guest := domain.OrgGuest{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertOrgGuest(ctx, s.db, &guest); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicatePhone
		}
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionGuestCreate, "org_guest", guest.ID, map[string]any{
		"name":  guest.Name,
		"phone": stringValue(guest.Phone),
	})
	return &guest, nil
}

func (s *Service) UpdateOrgGuest(ctx context.Context, guestID snowflake.ID, req domain.UpdateOrgGuestRequest) (*domain.OrgGuest, error) {
	guest, err := s.findOrgGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		guest.Name = name
	}
	if req.Phone != nil {
		phone, err := domain.NormalizePhone(*req.Phone, s.defaultRegion)
		if err != nil {
			return nil, err
		}
		if err := s.ensurePhoneFree(ctx, guest.OrgID, phone, guest.ID); err != nil {
			return nil, err
		}
		guest.Phone = phone
	}

	guest.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateOrgGuest(ctx, s.db, guest); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicatePhone
		}
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionGuestUpdate, "org_guest", guest.ID, map[string]any{
		"name":  guest.Name,
		"phone": stringValue(guest.Phone),
	})
	return guest, nil
}

func (s *Service) DeleteOrgGuest(ctx context.Context, guestID snowflake.ID) error {
	guest, err := s.findOrgGuest(ctx, guestID)
	if err != nil {
		return err
	}

	inUse, err := s.repo.OrgGuestInUse(ctx, s.db, guest.OrgID, guest.ID)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrGuestInUse
	}

	if err := s.repo.DeleteOrgGuest(ctx, s.db, guest.OrgID, guest.ID); err != nil {
		return err
	}
	s.audit(ctx, auditdomain.ActionGuestDelete, "org_guest", guest.ID, nil)
	return nil
}

func (s *Service) ListGameGuests(ctx context.Context, gameID snowflake.ID) ([]domain.GameGuestView, error) {
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	member, _ := orgcontext.MemberFromContext(ctx)

	items, err := s.repo.ListGameGuests(ctx, s.db, game.OrgID, game.ID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.GameGuestView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, domain.GameGuestView{
			GameGuest: *item,
			CanDelete: canDeleteGameGuest(member, *item),
		})
	}
	return views, nil
}

func (s *Service) GetGameGuest(ctx context.Context, gameID, guestID snowflake.ID) (*domain.GameGuest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if guestID == 0 {
		return nil, domain.ErrInvalidGuest
	}

	guest, err := s.repo.FindGameGuest(ctx, s.db, orgID, gameID, guestID)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, domain.ErrGameGuestNotFound
	}
	return guest, nil
}

func (s *Service) AddGameGuest(ctx context.Context, gameID snowflake.ID, req domain.AddGameGuestRequest) (*domain.GameGuestView, error) {
	member, ok := orgcontext.MemberFromContext(ctx)
	if !ok {
		return nil, domain.ErrNotMember
	}
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var (
		name       string
		phone      *string
		orgGuestID *snowflake.ID
	)
	if req.OrgGuestID != nil {
		saved, err := s.findOrgGuest(ctx, *req.OrgGuestID)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(saved.Name)
		phone = saved.Phone
		savedID := saved.ID
		orgGuestID = &savedID
	} else {
		name = strings.TrimSpace(req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		phone, err = domain.NormalizePhone(req.Phone, s.defaultRegion)
		if err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.GameGuestExists(ctx, s.db, game.ID, name, stringValue(phone))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrGuestAlreadyAdded
	}

	now := s.clock.Now().UTC()
	createdBy := member.ID
	guest := domain.GameGuest{
		ID:                s.genID.Generate(),
		OrgID:             game.OrgID,
		GameID:            game.ID,
		OrgGuestID:        orgGuestID,
		Name:              name,
		Phone:             phone,
		CreatedByMemberID: &createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertGameGuest(ctx, s.db, &guest); err != nil {
		return nil, err
	}

	s.audit(ctx, auditdomain.ActionGameGuestAdd, "game_guest", guest.ID, map[string]any{
		"game_id":     game.ID.String(),
		"name":        guest.Name,
		"guest_phone": stringValue(guest.Phone),
	})
	return &domain.GameGuestView{
		GameGuest: guest,
		CanDelete: canDeleteGameGuest(member, guest),
	}, nil
}

func (s *Service) RemoveGameGuest(ctx context.Context, gameID, guestID snowflake.ID) error {
	member, ok := orgcontext.MemberFromContext(ctx)
	if !ok {
		return domain.ErrNotMember
	}
	game, err := s.gameSvc.Get(ctx, gameID)
	if err != nil {
		return err
	}
	guest, err := s.GetGameGuest(ctx, game.ID, guestID)
	if err != nil {
		return err
	}
	if !canDeleteGameGuest(member, *guest) {
		return domain.ErrForbidden
	}

	if err := s.repo.DeleteGameGuest(ctx, s.db, guest.OrgID, guest.ID); err != nil {
		return err
	}
	s.audit(ctx, auditdomain.ActionGameGuestRemove, "game_guest", guest.ID, map[string]any{
		"game_id": game.ID.String(),
	})
	return nil
}

func (s *Service) findOrgGuest(ctx context.Context, guestID snowflake.ID) (*domain.OrgGuest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	if guestID == 0 {
		return nil, domain.ErrInvalidGuest
	}

	guest, err := s.repo.FindOrgGuest(ctx, s.db, orgID, guestID)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, domain.ErrGuestNotFound
	}
	return guest, nil
}

func (s *Service) ensurePhoneFree(ctx context.Context, orgID snowflake.ID, phone *string, selfID snowflake.ID) error {
	if phone == nil {
		return nil
	}
	existing, err := s.repo.FindOrgGuestByPhone(ctx, s.db, orgID, *phone)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return domain.ErrDuplicatePhone
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, "", nil, action, targetType, &target, metadata)
}

// canDeleteGameGuest allows managers and the member who added the guest.
func canDeleteGameGuest(member orgcontext.Member, guest domain.GameGuest) bool {
	if member.Role == "OWNER" || member.Role == "ADMIN" {
		return true
	}
	return guest.CreatedByMemberID != nil && member.ID != 0 && *guest.CreatedByMemberID == member.ID
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
