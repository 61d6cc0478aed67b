package api

import (
	"fmt"
	"net/http"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles dataset import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// Import handles POST /v1/records/import. The upload replaces the whole
// dataset synchronously; the response carries the import counts.
func (h *ImportHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
		})
		return
	}

	result, err := h.services.Import.Import(c.Request.Context(), file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("user", currentUser(c).Username).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Int("rows", result.TotalRows).
		Msg("Dataset imported")

	c.JSON(http.StatusOK, result)
}

// DistinctValues handles GET /v1/records/distinct. With counts=true the
// response maps each value to its available-record count.
func (h *ImportHandler) DistinctValues(c *gin.Context) {
	column, ok := models.ParseFilterColumn(c.Query("column"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown or missing column"})
		return
	}

	if c.Query("counts") == "true" {
		counts, err := h.services.Report.DistinctValueCounts(c.Request.Context(), column)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"column": column, "counts": counts})
		return
	}

	values, err := h.services.Report.DistinctValues(c.Request.Context(), column)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": column, "values": values})
}
