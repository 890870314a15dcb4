package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	minRating = 1
	maxRating = 5
)

// SurveyResult records a user's rating for a surveyed event.
func (s *Server) SurveyResult(c *gin.Context) {
	var req struct {
		EventID string `json:"event_id"`
		Score   int    `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: bad event_id", ErrInvalidRequest))
		return
	}
	if req.Score < minRating || req.Score > maxRating {
		AbortWithError(c, fmt.Errorf("%w: score out of range", ErrInvalidRequest))
		return
	}

	if err := s.survey.UpdateSurveyResult(c.Request.Context(), eventID, req.Score); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// DisconnectedSurveyResult records a rating with no linked event.
func (s *Server) DisconnectedSurveyResult(c *gin.Context) {
	var req struct {
		UPN   string `json:"upn"`
		Score int    `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UPN == "" {
		AbortWithError(c, fmt.Errorf("%w: upn and score are required", ErrInvalidRequest))
		return
	}
	if req.Score < minRating || req.Score > maxRating {
		AbortWithError(c, fmt.Errorf("%w: score out of range", ErrInvalidRequest))
		return
	}

	id, err := s.survey.LogDisconnectedSurveyResult(c.Request.Context(), req.Score, req.UPN)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id.String()})
}

// StopBothering sets a user's do-not-disturb time.
func (s *Server) StopBothering(c *gin.Context) {
	var req struct {
		UPN   string    `json:"upn"`
		Until time.Time `json:"until"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UPN == "" || req.Until.IsZero() {
		AbortWithError(c, fmt.Errorf("%w: upn and until are required", ErrInvalidRequest))
		return
	}

	if err := s.survey.StopBotheringUser(c.Request.Context(), req.UPN, req.Until); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
