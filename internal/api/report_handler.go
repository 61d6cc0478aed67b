package api

import (
	"net/http"

	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ReportHandler handles dashboard and report endpoints
type ReportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(services *service.Services, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		services: services,
		log:      log.With().Str("handler", "report").Logger(),
	}
}

// Stats handles GET /v1/reports/stats
func (h *ReportHandler) Stats(c *gin.Context) {
	stats, err := h.services.Report.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Operational handles GET /v1/reports/operational
func (h *ReportHandler) Operational(c *gin.Context) {
	report, err := h.services.Report.Operational(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Dashboard handles GET /v1/reports/dashboard?criterion=criterio&value=X
func (h *ReportHandler) Dashboard(c *gin.Context) {
	column, ok := models.ParseFilterColumn(c.DefaultQuery("criterion", "criterio"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown column"})
		return
	}

	slices, err := h.services.Report.Dashboard(c.Request.Context(), column, c.Query("value"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": column, "breakdown": slices})
}
