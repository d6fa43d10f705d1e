package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrgContextKey is the request context key for the active organization ID.
type OrgContextKey struct{}

// UserContextKey is the request context key for the calling user ID.
type UserContextKey struct{}

// MemberContextKey is the request context key for the caller's membership.
type MemberContextKey struct{}

// Member is the caller's resolved membership in the active organization.
type Member struct {
	ID   snowflake.ID
	Role string
}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return parseID(ctx.Value(OrgContextKey{}))
}

// WithUserID stores the calling user ID in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// UserIDFromContext returns the calling user ID, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return parseID(ctx.Value(UserContextKey{}))
}

// WithMember stores the caller's membership in the context.
func WithMember(ctx context.Context, member Member) context.Context {
	return context.WithValue(ctx, MemberContextKey{}, member)
}

// MemberFromContext returns the caller's membership, if resolved.
func MemberFromContext(ctx context.Context) (Member, bool) {
	if ctx == nil {
		return Member{}, false
	}
	member, ok := ctx.Value(MemberContextKey{}).(Member)
	if !ok || member.ID == 0 {
		return Member{}, false
	}
	return member, true
}

func parseID(value any) (snowflake.ID, bool) {
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), typed != 0
	case snowflake.ID:
		return typed, typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
