package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
)

type createOrgGuestRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type updateOrgGuestRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type addGameGuestRequest struct {
	OrgGuestID string `json:"org_guest_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

func (s *Server) ListOrgGuests(c *gin.Context) {
	guests, err := s.guestSvc.ListOrgGuests(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guests})
}

func (s *Server) CreateOrgGuest(c *gin.Context) {
	var req createOrgGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	guest, err := s.guestSvc.CreateOrgGuest(c.Request.Context(), guestdomain.CreateOrgGuestRequest{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, guest)
}

func (s *Server) UpdateOrgGuest(c *gin.Context) {
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateOrgGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	guest, err := s.guestSvc.UpdateOrgGuest(c.Request.Context(), guestID, guestdomain.UpdateOrgGuestRequest{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, guest)
}

func (s *Server) DeleteOrgGuest(c *gin.Context) {
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.guestSvc.DeleteOrgGuest(c.Request.Context(), guestID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListGameGuests(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	guests, err := s.guestSvc.ListGameGuests(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": guests})
}

func (s *Server) AddGameGuest(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	var req addGameGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	orgGuestID, err := parseOptionalSnowflakeID(req.OrgGuestID)
	if err != nil {
		AbortWithError(c, newValidationError("org_guest_id", "invalid_org_guest_id", "invalid org_guest_id"))
		return
	}

	guest, err := s.guestSvc.AddGameGuest(c.Request.Context(), gameID, guestdomain.AddGameGuestRequest{
		OrgGuestID: orgGuestID,
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, guest)
}

func (s *Server) RemoveGameGuest(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.guestSvc.RemoveGameGuest(c.Request.Context(), gameID, guestID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
