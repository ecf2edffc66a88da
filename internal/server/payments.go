package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/rentrollhq/rentroll/internal/payment/domain"
	"github.com/shopspring/decimal"
)

type addPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

type markPaidRequest struct {
	Date time.Time `json:"date"`
}

func (s *Server) AddPayment(c *gin.Context) {
	var req addPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.AddPayment(c.Request.Context(), paymentdomain.AddPaymentRequest{
		BillID: c.Param("id"),
		Amount: req.Amount,
		Date:   req.Date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) MarkBillPaid(c *gin.Context) {
	billID, err := snowflake.ParseString(c.Param("id"))
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

	payment, err := s.paymentSvc.MarkBillPaid(c.Request.Context(), billID, req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}
