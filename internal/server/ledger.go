package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
)

type createLedgerEntryRequest struct {
	Type            string `json:"type" binding:"required,oneof=INCOME EXPENSE"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Description     string `json:"description"`
	OccurredAt      string `json:"occurred_at"`
	RelatedMemberID string `json:"related_member_id"`
}

type listLedgerQuery struct {
	Type  string `form:"type"`
	From  string `form:"from"`
	To    string `form:"to"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	var query listLedgerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	entries, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		Type:  ledgerdomain.EntryType(strings.ToUpper(strings.TrimSpace(query.Type))),
		From:  from,
		To:    to,
		Limit: query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) CreateLedgerEntry(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	occurredAt, err := parseOptionalTime(req.OccurredAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("occurred_at", "invalid_occurred_at", "invalid occurred_at"))
		return
	}
	memberID, err := parseOptionalSnowflakeID(req.RelatedMemberID)
	if err != nil {
		AbortWithError(c, ledgerdomain.ErrInvalidMember)
		return
	}

	entry, err := s.ledgerSvc.CreateEntry(c.Request.Context(), ledgerdomain.CreateEntryRequest{
		Type:            ledgerdomain.EntryType(req.Type),
		Amount:          req.Amount,
		Description:     strings.TrimSpace(req.Description),
		OccurredAt:      occurredAt,
		RelatedMemberID: memberID,
		ActorID:         actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (s *Server) GetLedgerSummary(c *gin.Context) {
	summary, err := s.ledgerSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
