package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
)

type updateBillingSettingsRequest struct {
	BillingMode      string `json:"billing_mode" binding:"required"`
	Cycle            string `json:"cycle" binding:"required"`
	CycleWeeks       *int   `json:"cycle_weeks"`
	AnchorDate       string `json:"anchor_date"`
	DueDay           int    `json:"due_day" binding:"required"`
	MembershipAmount int64  `json:"membership_amount" binding:"min=0"`
	SessionAmount    int64  `json:"session_amount" binding:"min=0"`
}

type generateChargesRequest struct {
	CycleKey string `json:"cycle_key"`
	Force    bool   `json:"force"`
}

type listChargesQuery struct {
	CycleKey    string `form:"cycle_key"`
	OrgMemberID string `form:"org_member_id"`
	Status      string `form:"status"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

type updateChargeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) GetBillingSettings(c *gin.Context) {
	settings, err := s.billingSvc.GetOrInitSettings(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *Server) UpdateBillingSettings(c *gin.Context) {
	var req updateBillingSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	var anchorDate *time.Time
	if strings.TrimSpace(req.AnchorDate) != "" {
		parsed, err := parseOptionalTime(req.AnchorDate, false)
		if err != nil {
			AbortWithError(c, billingdomain.ErrInvalidAnchorDate)
			return
		}
		anchorDate = parsed
	}

	settings, err := s.billingSvc.UpdateSettings(c.Request.Context(), billingdomain.UpdateSettingsRequest{
		Mode:             billingdomain.BillingMode(strings.ToUpper(strings.TrimSpace(req.BillingMode))),
		CycleType:        billingdomain.CycleType(strings.ToUpper(strings.TrimSpace(req.Cycle))),
		CycleWeeks:       req.CycleWeeks,
		AnchorDate:       anchorDate,
		DueDay:           req.DueDay,
		MembershipAmount: req.MembershipAmount,
		SessionAmount:    req.SessionAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *Server) GenerateCharges(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req generateChargesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, bindingError(err))
			return
		}
	}

	result, err := s.billingSvc.GenerateCharges(c.Request.Context(), billingdomain.GenerateChargesRequest{
		Force:    req.Force,
		CycleKey: strings.TrimSpace(req.CycleKey),
		ActorID:  actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListCharges(c *gin.Context) {
	var query listChargesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	memberID, err := parseOptionalSnowflakeID(query.OrgMemberID)
	if err != nil {
		AbortWithError(c, newValidationError("org_member_id", "invalid_org_member_id", "invalid org_member_id"))
		return
	}

	req := billingdomain.ListChargesRequest{
		CycleKey: strings.TrimSpace(query.CycleKey),
		Status:   billingdomain.ChargeStatus(strings.ToUpper(strings.TrimSpace(query.Status))),
		Limit:    query.Limit,
	}
	if memberID != nil {
		req.MemberID = *memberID
	}

	charges, err := s.billingSvc.ListCharges(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": charges})
}

func (s *Server) UpdateChargeStatus(c *gin.Context) {
	actorID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	chargeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateChargeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	charge, err := s.billingSvc.SetChargeStatus(c.Request.Context(), billingdomain.SetChargeStatusRequest{
		ChargeID: chargeID,
		Status:   billingdomain.ChargeStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		ActorID:  actorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, charge)
}

func (s *Server) GetChargeReceipt(c *gin.Context) {
	chargeID, ok := pathID(c, "id")
	if !ok {
		return
	}

	pdf, err := s.billingSvc.ChargeReceipt(c.Request.Context(), chargeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, chargeID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
