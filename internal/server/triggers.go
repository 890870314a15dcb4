package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SendSurveys runs one survey batch. 200 with the sent count, zero included.
func (s *Server) SendSurveys(c *gin.Context) {
	sent, err := s.survey.ProcessAllUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// InstallBot installs the survey app for one user. Repeat calls are fine.
func (s *Server) InstallBot(c *gin.Context) {
	upn := strings.TrimSpace(c.Query("upn"))
	if upn == "" {
		AbortWithError(c, fmt.Errorf("%w: upn is required", ErrInvalidRequest))
		return
	}

	result, err := s.installer.InstallForUser(c.Request.Context(), upn)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(result)})
}
