package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	draftdomain "github.com/smallbiznis/clubhouse/internal/draft/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

// pickDraftRequest names exactly one of org_member_id or game_guest_id.
type pickDraftRequest struct {
	TeamSide    string `json:"team_side" binding:"required"`
	OrgMemberID string `json:"org_member_id"`
	GameGuestID string `json:"game_guest_id"`
}

func (s *Server) GetDraft(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	state, err := s.draftSvc.State(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (s *Server) GetDraftSummary(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	summary, err := s.draftSvc.Summary(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) StartDraft(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	draft, err := s.draftSvc.Start(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": draft.Status})
}

func (s *Server) PickDraft(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	var req pickDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	side := teamdomain.TeamSide(strings.ToUpper(strings.TrimSpace(req.TeamSide)))
	if !side.Valid() {
		AbortWithError(c, teamdomain.ErrInvalidTeamSide)
		return
	}
	memberID, err := parseOptionalSnowflakeID(req.OrgMemberID)
	if err != nil {
		AbortWithError(c, newValidationError("org_member_id", "invalid_org_member_id", "invalid org_member_id"))
		return
	}
	guestID, err := parseOptionalSnowflakeID(req.GameGuestID)
	if err != nil {
		AbortWithError(c, newValidationError("game_guest_id", "invalid_game_guest_id", "invalid game_guest_id"))
		return
	}
	target, err := teamdomain.ParticipantFromIDs(memberID, guestID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pick, err := s.draftSvc.Pick(c.Request.Context(), gameID, draftdomain.PickRequest{
		Side:   side,
		Target: target,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pick)
}

func (s *Server) FinishDraft(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	if _, err := s.draftSvc.Finish(c.Request.Context(), gameID); err != nil {
		AbortWithError(c, err)
		return
	}

	state, err := s.draftSvc.State(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}
