package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/officepulse/officepulse/internal/copilot"
	"go.uber.org/zap"
)

// IngestAudit accepts a batch of copilot audit records from the audit feed
// forwarder. Per-record context failures do not fail the request; the
// response carries the batch counts.
func (s *Server) IngestAudit(c *gin.Context) {
	var req struct {
		Events []copilot.AuditItem `json:"events"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	stats, err := s.ingestor.IngestBatch(c.Request.Context(), req.Events)
	if err != nil && stats.Staged == 0 && stats.SkippedNoUser == 0 {
		AbortWithError(c, err)
		return
	}
	if err != nil {
		s.log.Warn("audit batch ingested with record errors", zap.Error(err))
	}
	c.JSON(http.StatusOK, stats)
}
