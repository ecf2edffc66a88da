package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	contractdomain "github.com/rentrollhq/rentroll/internal/contract/domain"
	"github.com/shopspring/decimal"
)

type apartmentChargeRequest struct {
	ApartmentID    string          `json:"apartment_id"`
	Rent           decimal.Decimal `json:"rent"`
	ServiceCharges decimal.Decimal `json:"service_charges"`
	SecurityFee    decimal.Decimal `json:"security_fee"`
}

type createContractRequest struct {
	TenantID   string                   `json:"tenant_id"`
	StartDate  time.Time                `json:"start_date"`
	EndDate    *time.Time               `json:"end_date,omitempty"`
	Apartments []apartmentChargeRequest `json:"apartments"`
}

func (s *Server) CreateContract(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.Create(c.Request.Context(), contractdomain.CreateContractRequest{
		TenantID:   strings.TrimSpace(req.TenantID),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Apartments: toApartmentCharges(req.Apartments),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contract})
}

func (s *Server) GetContract(c *gin.Context) {
	contractID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.Get(c.Request.Context(), contractID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contract})
}

type replaceApartmentsRequest struct {
	Apartments []apartmentChargeRequest `json:"apartments"`
}

func (s *Server) ReplaceContractApartments(c *gin.Context) {
	contractID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req replaceApartmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	contract, err := s.contractSvc.ReplaceApartments(c.Request.Context(), contractID, toApartmentCharges(req.Apartments))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contract})
}

func toApartmentCharges(in []apartmentChargeRequest) []contractdomain.ApartmentCharge {
	out := make([]contractdomain.ApartmentCharge, 0, len(in))
	for _, a := range in {
		out = append(out, contractdomain.ApartmentCharge{
			ApartmentID:    strings.TrimSpace(a.ApartmentID),
			Rent:           a.Rent,
			ServiceCharges: a.ServiceCharges,
			SecurityFee:    a.SecurityFee,
		})
	}
	return out
}
