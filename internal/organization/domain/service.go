package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

const (
	MemberTypeMonthly = "MONTHLY"
	MemberTypeGuest   = "GUEST"
)

// ValidRole reports whether role is a known organization role.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// ValidMemberType reports whether memberType is a known billing type.
func ValidMemberType(memberType string) bool {
	return memberType == MemberTypeMonthly || memberType == MemberTypeGuest
}

// IsManagerRole reports whether role may manage the organization.
func IsManagerRole(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanManage reports whether a member with actorRole may change a member
// holding targetRole. Owners manage everyone, admins manage plain members.
func CanManage(actorRole, targetRole string) bool {
	switch actorRole {
	case RoleOwner:
		return true
	case RoleAdmin:
		return targetRole == RoleMember
	default:
		return false
	}
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, orgID snowflake.ID) (*OrganizationResponse, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	ListOrganizationIDs(ctx context.Context) ([]snowflake.ID, error)

	// GetMembership returns the caller's membership in the org carried by ctx.
	GetMembership(ctx context.Context, userID snowflake.ID) (*Member, error)
	GetMember(ctx context.Context, memberID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	AddMember(ctx context.Context, actorUserID snowflake.ID, req AddMemberRequest) (*Member, error)
	UpdateMember(ctx context.Context, actorUserID, memberID snowflake.ID, req UpdateMemberRequest) (*Member, error)
	ChangeRole(ctx context.Context, actorUserID, memberID snowflake.ID, role string) (*Member, error)
	RemoveMember(ctx context.Context, actorUserID, memberID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name string
}

type AddMemberRequest struct {
	UserID     snowflake.ID
	Role       string
	MemberType string
	Nickname   string
}

// UpdateMemberRequest carries optional fields; nil leaves a field unchanged.
type UpdateMemberRequest struct {
	Nickname   *string
	MemberType *string
	IsActive   *bool
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidMemberType   = errors.New("invalid_member_type")
	ErrInvalidMember       = errors.New("invalid_member")

	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrMemberNotFound       = errors.New("member_not_found")
	ErrNotMember            = errors.New("not_member")
	ErrForbidden            = errors.New("forbidden")

	ErrMemberExists      = errors.New("member_exists")
	ErrCannotChangeSelf  = errors.New("cannot_change_own_role")
	ErrCannotRemoveSelf  = errors.New("cannot_remove_self")
	ErrLastOwner         = errors.New("last_owner")
)
