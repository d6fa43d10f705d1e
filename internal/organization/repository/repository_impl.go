package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/organization/domain"
	"gorm.io/gorm"
)

const memberColumns = `id, org_id, user_id, role, member_type, nickname, is_active, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repository) GetOrganization(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, owner_id, metadata, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		orgID,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM organizations WHERE slug = ?`,
		slug,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repository) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, o.slug, m.role, o.created_at
		 FROM organizations o
		 JOIN org_members m ON m.org_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY o.created_at ASC, o.id ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Raw(`SELECT id FROM organizations ORDER BY id ASC`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) AddMember(ctx context.Context, member domain.Member) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO org_members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.OrgID,
		member.UserID,
		member.Role,
		member.MemberType,
		member.Nickname,
		member.IsActive,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repository) GetMember(ctx context.Context, orgID, memberID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM org_members WHERE org_id = ? AND id = ?`,
		orgID,
		memberID,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repository) GetMemberByUser(ctx context.Context, orgID, userID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM org_members WHERE org_id = ? AND user_id = ?`,
		orgID,
		userID,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM org_members
		 WHERE org_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
	).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) UpdateMember(ctx context.Context, member domain.Member) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE org_members
		 SET role = ?, member_type = ?, nickname = ?, is_active = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		member.Role,
		member.MemberType,
		member.Nickname,
		member.IsActive,
		member.UpdatedAt,
		member.OrgID,
		member.ID,
	).Error
}

func (r *repository) DeleteMember(ctx context.Context, orgID, memberID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM org_members WHERE org_id = ? AND id = ?`,
		orgID,
		memberID,
	).Error
}

func (r *repository) CountOwners(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM org_members WHERE org_id = ? AND role = ?`,
		orgID,
		domain.RoleOwner,
	).Scan(&count).Error
	return count, err
}
