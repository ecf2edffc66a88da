package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/rentrollhq/rentroll/internal/billing/domain"
	"github.com/rentrollhq/rentroll/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type generateBillsRequest struct {
	Month             string          `json:"month"`
	WapdaRate         decimal.Decimal `json:"wapda_rate"`
	GeneratorRate     decimal.Decimal `json:"generator_rate"`
	WaterRate         decimal.Decimal `json:"water_rate"`
	IssueDate         time.Time       `json:"issue_date"`
	DueDate           time.Time       `json:"due_date"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
}

func (s *Server) GenerateBills(c *gin.Context) {
	var req generateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.billingSvc.Generate(c.Request.Context(), billingdomain.GenerateRequest{
		Month: strings.TrimSpace(req.Month),
		Rates: billingdomain.UtilityRates{
			Wapda:     req.WapdaRate,
			Generator: req.GeneratorRate,
			Water:     req.WaterRate,
		},
		IssueDate:         req.IssueDate,
		DueDate:           req.DueDate,
		AdditionalCharges: req.AdditionalCharges,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) CheckBillsExist(c *gin.Context) {
	month, err := parseMonthParam(c.Query("month"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.billingSvc.CheckBillsExist(c.Request.Context(), month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListBills(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := billingdomain.ListBillsRequest{Pagination: page}
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		month, err := parseMonthParam(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Month = &month
	}

	result, err := s.billingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result.Bills, "page_info": result.PageInfo})
}

func (s *Server) GetBill(c *gin.Context) {
	billID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bill, err := s.billingSvc.Get(c.Request.Context(), billID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}
