package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	payoutdomain "github.com/rentrollhq/rentroll/internal/payout/domain"
)

type generatePayoutsRequest struct {
	Month string `json:"month"`
}

func (s *Server) GeneratePayouts(c *gin.Context) {
	var req generatePayoutsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.payoutSvc.Generate(c.Request.Context(), payoutdomain.GenerateRequest{
		Month: strings.TrimSpace(req.Month),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetPayout(c *gin.Context) {
	payoutID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payout, err := s.payoutSvc.Get(c.Request.Context(), payoutID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

func (s *Server) RefreshPayout(c *gin.Context) {
	payoutID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payout, err := s.payoutSvc.Refresh(c.Request.Context(), payoutID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}

func (s *Server) MarkPayoutPaid(c *gin.Context) {
	payoutID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var date time.Time
	if !req.Date.IsZero() {
		date = req.Date
	}

	payout, err := s.payoutSvc.MarkPaid(c.Request.Context(), payoutID, date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payout})
}
