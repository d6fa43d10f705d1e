package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	captaindomain "github.com/smallbiznis/clubhouse/internal/captain/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

type participantRequest struct {
	Type string `json:"type" binding:"required,oneof=MEMBER GUEST"`
	ID   string `json:"id" binding:"required"`
}

func (r participantRequest) participant(field string) (teamdomain.Participant, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(r.ID))
	if err != nil || id <= 0 {
		return teamdomain.Participant{}, newValidationError(field+".id", "invalid_target", "invalid "+field+" id")
	}
	return teamdomain.Participant{Type: teamdomain.ParticipantType(r.Type), ID: id}, nil
}

type setTeamAssignmentRequest struct {
	Target participantRequest `json:"target" binding:"required"`
	// Team is A or B; null removes the target from both sides.
	Team *string `json:"team"`
}

type setCaptainsRequest struct {
	Mode     string              `json:"mode"`
	CaptainA *participantRequest `json:"captain_a"`
	CaptainB *participantRequest `json:"captain_b"`
}

func (s *Server) GetTeams(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	teams, err := s.teamSvc.View(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, teams)
}

func (s *Server) SetTeamAssignment(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	var req setTeamAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	target, err := req.Target.participant("target")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var side *teamdomain.TeamSide
	if req.Team != nil {
		value := teamdomain.TeamSide(strings.ToUpper(strings.TrimSpace(*req.Team)))
		if !value.Valid() {
			AbortWithError(c, teamdomain.ErrInvalidTeamSide)
			return
		}
		side = &value
	}

	teams, err := s.teamSvc.SetAssignment(c.Request.Context(), gameID, target, side)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, teams)
}

func (s *Server) GetCaptains(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	view, err := s.captainSvc.Get(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) SetCaptains(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	var req setCaptainsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	mode := captaindomain.Mode(strings.ToUpper(strings.TrimSpace(req.Mode)))
	if mode == "" {
		mode = captaindomain.ModeManual
	}

	setReq := captaindomain.SetRequest{Mode: mode}
	if req.CaptainA != nil {
		ref, err := req.CaptainA.participant("captain_a")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setReq.CaptainA = &ref
	}
	if req.CaptainB != nil {
		ref, err := req.CaptainB.participant("captain_b")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setReq.CaptainB = &ref
	}

	view, err := s.captainSvc.Set(c.Request.Context(), gameID, setReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
