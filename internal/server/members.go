package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
)

type addMemberRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Role       string `json:"role"`
	MemberType string `json:"member_type"`
	Nickname   string `json:"nickname"`
}

type updateMemberRequest struct {
	Nickname   *string `json:"nickname"`
	MemberType *string `json:"member_type"`
	IsActive   *bool   `json:"is_active"`
}

type changeMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) ListMembers(c *gin.Context) {
	members, err := s.organizationSvc.ListMembers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) AddMember(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID <= 0 {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = organizationdomain.RoleMember
	}
	memberType := strings.ToUpper(strings.TrimSpace(req.MemberType))
	if memberType == "" {
		memberType = organizationdomain.MemberTypeMonthly
	}

	member, err := s.organizationSvc.AddMember(c.Request.Context(), actorID, organizationdomain.AddMemberRequest{
		UserID:     userID,
		Role:       role,
		MemberType: memberType,
		Nickname:   strings.TrimSpace(req.Nickname),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

func (s *Server) UpdateMember(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	memberID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	if req.MemberType != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*req.MemberType))
		req.MemberType = &normalized
	}

	member, err := s.organizationSvc.UpdateMember(c.Request.Context(), actorID, memberID, organizationdomain.UpdateMemberRequest{
		Nickname:   req.Nickname,
		MemberType: req.MemberType,
		IsActive:   req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) ChangeMemberRole(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	memberID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req changeMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	member, err := s.organizationSvc.ChangeRole(c.Request.Context(), actorID, memberID, strings.ToUpper(strings.TrimSpace(req.Role)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) RemoveMember(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	memberID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.organizationSvc.RemoveMember(c.Request.Context(), actorID, memberID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
