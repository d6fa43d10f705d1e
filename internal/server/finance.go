package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type financeRecentQuery struct {
	Limit int `form:"limit"`
}

func (s *Server) GetFinanceSummary(c *gin.Context) {
	summary, err := s.financeSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetFinanceRecent leaves limit clamping to the finance service.
func (s *Server) GetFinanceRecent(c *gin.Context) {
	var query financeRecentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	recent, err := s.financeSvc.Recent(c.Request.Context(), query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, recent)
}
