package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
)

type createGameRequest struct {
	Title    string    `json:"title" binding:"required"`
	Sport    string    `json:"sport"`
	Location string    `json:"location"`
	StartAt  time.Time `json:"start_at" binding:"required"`
	Notes    string    `json:"notes"`
}

type listGamesQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

type markAttendanceRequest struct {
	Status string `json:"status" binding:"required,oneof=GOING MAYBE NOT_GOING"`
}

type attendanceCounts struct {
	Going    int `json:"going"`
	Maybe    int `json:"maybe"`
	NotGoing int `json:"not_going"`
}

type attendanceSummary struct {
	Counts   attendanceCounts        `json:"counts"`
	MyStatus *string                 `json:"my_status"`
	Items    []gamedomain.Attendance `json:"items"`
}

func (s *Server) ListGames(c *gin.Context) {
	var query listGamesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	games, err := s.gameSvc.List(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": games})
}

func (s *Server) CreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	game, err := s.gameSvc.Create(c.Request.Context(), gamedomain.CreateGameRequest{
		Title:    strings.TrimSpace(req.Title),
		Sport:    strings.TrimSpace(req.Sport),
		Location: strings.TrimSpace(req.Location),
		StartAt:  req.StartAt,
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

func (s *Server) GetGame(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	game, err := s.gameSvc.Get(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

func (s *Server) MarkAttendance(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	member, ok := memberFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req markAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	attendance, err := s.gameSvc.MarkAttendance(c.Request.Context(), gamedomain.MarkAttendanceRequest{
		GameID:   gameID,
		MemberID: member.ID,
		UserID:   userID,
		Status:   gamedomain.AttendanceStatus(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, attendance)
}

func (s *Server) ListAttendance(c *gin.Context) {
	gameID, ok := pathID(c, "gameId")
	if !ok {
		return
	}

	rows, err := s.gameSvc.ListAttendance(c.Request.Context(), gameID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, _ := memberFromContext(c)
	c.JSON(http.StatusOK, summarizeAttendance(rows, member.ID.Int64()))
}

func summarizeAttendance(rows []gamedomain.Attendance, callerMemberID int64) attendanceSummary {
	summary := attendanceSummary{Items: rows}
	if summary.Items == nil {
		summary.Items = []gamedomain.Attendance{}
	}
	for _, row := range rows {
		switch row.Status {
		case gamedomain.AttendanceGoing:
			summary.Counts.Going++
		case gamedomain.AttendanceMaybe:
			summary.Counts.Maybe++
		case gamedomain.AttendanceNotGoing:
			summary.Counts.NotGoing++
		}
		if callerMemberID != 0 && row.MemberID.Int64() == callerMemberID {
			status := string(row.Status)
			summary.MyStatus = &status
		}
	}
	return summary
}
