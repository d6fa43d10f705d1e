package server

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/auditcontext"
	obscontext "github.com/smallbiznis/clubhouse/internal/observability/context"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
)

const (
	// HeaderUserID carries the caller identity asserted by the gateway.
	HeaderUserID      = "X-User-ID"
	HeaderInternalKey = "X-Internal-Key"
)

// UserRequired resolves the calling user from the gateway header.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		userID, err := snowflake.ParseString(raw)
		if err != nil || userID <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithUserID(c.Request.Context(), userID.Int64())
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), userID.String())
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeUser), userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgContext scopes the request to the :orgId path parameter and resolves
// the caller's membership in it. Non-members are rejected.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := s.orgIDFromRequest(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		userID, ok := userIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID.Int64())
		ctx = obscontext.WithOrgID(ctx, orgID.String())

		member, err := s.organizationSvc.GetMembership(ctx, userID)
		if err != nil {
			if errors.Is(err, organizationdomain.ErrNotMember) || errors.Is(err, organizationdomain.ErrMemberNotFound) {
				AbortWithError(c, ErrForbidden)
				return
			}
			AbortWithError(c, err)
			return
		}

		ctx = orgcontext.WithMember(ctx, orgcontext.Member{ID: member.ID, Role: member.Role})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// InternalKeyRequired guards service-to-service routes with a shared key.
// An unconfigured key disables the routes entirely.
func (s *Server) InternalKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.InternalKey)
		if expected == "" {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		provided := strings.TrimSpace(c.GetHeader(HeaderInternalKey))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeSystem), "internal")
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "internal")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) orgIDFromRequest(c *gin.Context) (snowflake.ID, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("orgId")))
	if err != nil || orgID <= 0 {
		return 0, ErrNotFound
	}
	return orgID, nil
}

func userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	return orgcontext.UserIDFromContext(c.Request.Context())
}

func memberFromContext(c *gin.Context) (orgcontext.Member, bool) {
	return orgcontext.MemberFromContext(c.Request.Context())
}

// pathID parses a snowflake path parameter; malformed ids read as not found.
func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		AbortWithError(c, ErrNotFound)
		return 0, false
	}
	return id, true
}
