package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugAttempts = 5

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("organization.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	orgSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      orgSlug,
		OwnerID:   userID,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := domain.Member{
			ID:         s.genID.Generate(),
			OrgID:      orgID,
			UserID:     userID,
			Role:       domain.RoleOwner,
			MemberType: domain.MemberTypeMonthly,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.audit(orgcontext.WithOrgID(ctx, int64(orgID)), userID, auditdomain.ActionOrganizationCreate, "organization", orgID, map[string]any{
		"name": org.Name,
		"slug": org.Slug,
	})

	return toOrganizationResponse(org), nil
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "club"
	}

	candidate := base
	for i := 0; i < maxSlugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strings.ToLower(s.genID.Generate().Base36())
	}
	return candidate, nil
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.ListOrganizationIDs(ctx)
}

func (s *service) GetByID(ctx context.Context, orgID snowflake.ID) (*domain.OrganizationResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}

	return toOrganizationResponse(*org), nil
}

func (s *service) GetMembership(ctx context.Context, userID snowflake.ID) (*domain.Member, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	member, err := s.repo.GetMemberByUser(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrNotMember
	}
	return member, nil
}

func (s *service) GetMember(ctx context.Context, memberID snowflake.ID) (*domain.Member, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	if memberID == 0 {
		return nil, domain.ErrInvalidMember
	}

	member, err := s.repo.GetMember(ctx, orgID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (s *service) ListMembers(ctx context.Context) ([]domain.Member, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

func (s *service) AddMember(ctx context.Context, actorUserID snowflake.ID, req domain.AddMemberRequest) (*domain.Member, error) {
	actor, err := s.GetMembership(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if !domain.IsManagerRole(actor.Role) {
		return nil, domain.ErrForbidden
	}
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}
	if !canAssign(actor.Role, role) {
		return nil, domain.ErrForbidden
	}

	memberType := strings.ToUpper(strings.TrimSpace(req.MemberType))
	if memberType == "" {
		memberType = domain.MemberTypeMonthly
	}
	if !domain.ValidMemberType(memberType) {
		return nil, domain.ErrInvalidMemberType
	}

	existing, err := s.repo.GetMemberByUser(ctx, actor.OrgID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrMemberExists
	}

	now := s.clock.Now().UTC()
	member := domain.Member{
		ID:         s.genID.Generate(),
		OrgID:      actor.OrgID,
		UserID:     req.UserID,
		Role:       role,
		MemberType: memberType,
		Nickname:   optionalString(req.Nickname),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrMemberExists
		}
		return nil, err
	}

	s.audit(ctx, actorUserID, auditdomain.ActionMemberAdd, "org_member", member.ID, map[string]any{
		"user_id":     member.UserID.String(),
		"role":        member.Role,
		"member_type": member.MemberType,
	})
	return &member, nil
}

func (s *service) UpdateMember(ctx context.Context, actorUserID, memberID snowflake.ID, req domain.UpdateMemberRequest) (*domain.Member, error) {
	actor, err := s.GetMembership(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	isSelf := actor.ID == target.ID
	canManage := domain.IsManagerRole(actor.Role) && (isSelf || domain.CanManage(actor.Role, target.Role))

	if req.MemberType != nil || req.IsActive != nil {
		if !canManage {
			return nil, domain.ErrForbidden
		}
	}
	if req.Nickname != nil && !isSelf && !canManage {
		return nil, domain.ErrForbidden
	}

	changes := map[string]any{}
	if req.Nickname != nil {
		target.Nickname = optionalString(*req.Nickname)
		changes["nickname"] = strings.TrimSpace(*req.Nickname)
	}
	if req.MemberType != nil {
		memberType := strings.ToUpper(strings.TrimSpace(*req.MemberType))
		if !domain.ValidMemberType(memberType) {
			return nil, domain.ErrInvalidMemberType
		}
		target.MemberType = memberType
		changes["member_type"] = memberType
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
	}
	if len(changes) == 0 {
		return target, nil
	}

	target.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateMember(ctx, *target); err != nil {
		return nil, err
	}

	s.audit(ctx, actorUserID, auditdomain.ActionMemberUpdate, "org_member", target.ID, changes)
	return target, nil
}

func (s *service) ChangeRole(ctx context.Context, actorUserID, memberID snowflake.ID, role string) (*domain.Member, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	actor, err := s.GetMembership(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if !domain.IsManagerRole(actor.Role) {
		return nil, domain.ErrForbidden
	}
	target, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if actor.ID == target.ID {
		return nil, domain.ErrCannotChangeSelf
	}
	if !domain.CanManage(actor.Role, target.Role) || !canAssign(actor.Role, role) {
		return nil, domain.ErrForbidden
	}
	if target.Role == role {
		return target, nil
	}

	previous := target.Role
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if previous == domain.RoleOwner {
			owners, err := repo.CountOwners(ctx, target.OrgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return domain.ErrLastOwner
			}
		}

		target.Role = role
		target.UpdatedAt = s.clock.Now().UTC()
		return repo.UpdateMember(ctx, *target)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actorUserID, auditdomain.ActionMemberRoleChange, "org_member", target.ID, map[string]any{
		"from": previous,
		"to":   role,
	})
	return target, nil
}

func (s *service) RemoveMember(ctx context.Context, actorUserID, memberID snowflake.ID) error {
	actor, err := s.GetMembership(ctx, actorUserID)
	if err != nil {
		return err
	}
	if !domain.IsManagerRole(actor.Role) {
		return domain.ErrForbidden
	}
	target, err := s.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if actor.ID == target.ID {
		return domain.ErrCannotRemoveSelf
	}
	if !domain.CanManage(actor.Role, target.Role) {
		return domain.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if target.Role == domain.RoleOwner {
			owners, err := repo.CountOwners(ctx, target.OrgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return domain.ErrLastOwner
			}
		}
		return repo.DeleteMember(ctx, target.OrgID, target.ID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, actorUserID, auditdomain.ActionMemberRemove, "org_member", target.ID, map[string]any{
		"user_id": target.UserID.String(),
		"role":    target.Role,
	})
	return nil
}

func (s *service) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return orgID, nil
}

func (s *service) audit(ctx context.Context, actorUserID snowflake.ID, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := actorUserID.String()
	target := targetID.String()
	_ = s.auditSvc.AuditLog(ctx, nil, string(auditdomain.ActorTypeUser), &actorID, action, targetType, &target, metadata)
}

// canAssign reports whether actorRole may grant role. Admins only grant MEMBER.
func canAssign(actorRole, role string) bool {
	if actorRole == domain.RoleOwner {
		return true
	}
	return actorRole == domain.RoleAdmin && role == domain.RoleMember
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toOrganizationResponse(org domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		OwnerID:   org.OwnerID.String(),
		CreatedAt: org.CreatedAt,
	}
}

