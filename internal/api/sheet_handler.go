package api

import (
	"net/http"
	"strconv"

	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SheetHandler handles work-sheet generation endpoints
type SheetHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSheetHandler creates a new SheetHandler
func NewSheetHandler(services *service.Services, log zerolog.Logger) *SheetHandler {
	return &SheetHandler{
		services: services,
		log:      log.With().Str("handler", "sheet").Logger(),
	}
}

// Preview handles POST /v1/sheets/preview
func (h *SheetHandler) Preview(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	preview, err := h.services.Sheet.Preview(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Generate handles POST /v1/sheets/generate. With format=zip the
// response is the archive of per-sheet CSVs instead of JSON.
func (h *SheetHandler) Generate(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.services.Sheet.Generate(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if c.Query("format") == "zip" {
		archive, name, err := h.services.Sheet.ExportArchive(result, &req)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "application/zip", archive)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reset handles POST /v1/sheets/reset
func (h *SheetHandler) Reset(c *gin.Context) {
	var req struct {
		Mode  models.PartitionMode `json:"mode"`
		Value string               `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	affected, err := h.services.Sheet.Reset(c.Request.Context(), currentUser(c), req.Mode, req.Value)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset_rows": affected})
}

// ExtractCILs handles POST /v1/sheets/cils: pulls the CIL list out of an
// uploaded spreadsheet for an ad-hoc run.
func (h *SheetHandler) ExtractCILs(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a file upload is required"})
		return
	}
	defer file.Close()

	cils, err := h.services.Sheet.ExtractCILs(file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cils": cils, "count": len(cils)})
}

// History handles GET /v1/sheets/history
func (h *SheetHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.services.Sheet.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
