package api

import (
	"net/http"
	"time"

	"github.com/field-worksheet-api/internal/config"
	"github.com/field-worksheet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	importHandler := NewImportHandler(services, cfg, log)
	sheetHandler := NewSheetHandler(services, log)
	userHandler := NewUserHandler(services, log)
	reportHandler := NewReportHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services))

	// API v1, all authenticated
	v1 := router.Group("/v1")
	v1.Use(authMiddleware(services.User, log))
	{
		v1.GET("/auth/me", userHandler.Me)

		records := v1.Group("/records")
		{
			records.POST("/import", requireOperator(), importHandler.Import)
			records.GET("/distinct", importHandler.DistinctValues)
		}

		sheets := v1.Group("/sheets")
		{
			sheets.POST("/preview", sheetHandler.Preview)
			sheets.POST("/generate", requireOperator(), sheetHandler.Generate)
			sheets.POST("/reset", requireOperator(), sheetHandler.Reset)
			sheets.POST("/cils", sheetHandler.ExtractCILs)
			sheets.GET("/history", sheetHandler.History)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/stats", reportHandler.Stats)
			reports.GET("/operational", reportHandler.Operational)
			reports.GET("/dashboard", reportHandler.Dashboard)
		}

		users := v1.Group("/users", requireAdministrator())
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.PUT("/:id", userHandler.Update)
			users.PUT("/:id/password", userHandler.ChangePassword)
			users.DELETE("/:id", userHandler.Delete)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "field-worksheet-api",
	})
}

// metricsHandler exposes coarse dataset counters
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := services.Report.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"records": gin.H{
				"total":       stats.TotalRecords,
				"in_progress": stats.InProgress,
				"nibs":        stats.DistinctNIBs,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
