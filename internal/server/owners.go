package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type assignOwnerRequest struct {
	OwnerID string `json:"owner_id"`
}

func (s *Server) AssignApartmentOwner(c *gin.Context) {
	apartmentID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req assignOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	mapping, err := s.propertySvc.AssignOwner(c.Request.Context(), ownerID, apartmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": mapping})
}

func (s *Server) GetApartmentOwner(c *gin.Context) {
	apartmentID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	owner, err := s.propertySvc.OwnerForApartment(c.Request.Context(), apartmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": owner})
}
