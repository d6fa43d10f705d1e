package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error)

	AddMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, orgID, memberID snowflake.ID) (*Member, error)
	GetMemberByUser(ctx context.Context, orgID, userID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]Member, error)
	UpdateMember(ctx context.Context, member Member) error
	DeleteMember(ctx context.Context, orgID, memberID snowflake.ID) error
	CountOwners(ctx context.Context, orgID snowflake.ID) (int64, error)
}
