package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	meterdomain "github.com/rentrollhq/rentroll/internal/meter/domain"
	"github.com/shopspring/decimal"
)

type recordReadingRequest struct {
	Month         string           `json:"month"`
	ReadingDate   time.Time        `json:"reading_date"`
	CurrentUnits  decimal.Decimal  `json:"current_units"`
	PreviousUnits *decimal.Decimal `json:"previous_units,omitempty"`
}

func (s *Server) RecordMeterReading(c *gin.Context) {
	var req recordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reading, err := s.meterSvc.RecordReading(c.Request.Context(), meterdomain.RecordReadingRequest{
		MeterID:       c.Param("id"),
		Month:         req.Month,
		ReadingDate:   req.ReadingDate,
		CurrentUnits:  req.CurrentUnits,
		PreviousUnits: req.PreviousUnits,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reading})
}

func (s *Server) GetMeterConsumption(c *gin.Context) {
	meterID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	month, err := parseMonthParam(c.Query("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	consumption, err := s.meterSvc.ResolveConsumption(c.Request.Context(), meterID, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": consumption})
}
