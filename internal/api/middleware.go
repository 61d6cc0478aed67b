package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/field-worksheet-api/internal/models"
	"github.com/field-worksheet-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// userContextKey is where the authenticated principal lives in the gin
// context.
const userContextKey = "auth_user"

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware tags each request with an id, honoring one the
// caller already set.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// authMiddleware resolves HTTP basic credentials to an account on every
// request. Missing or bad credentials get a 401 with a challenge.
func authMiddleware(users service.UserService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			unauthorized(c)
			return
		}
		user, err := users.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			log.Error().Err(err).Msg("Authentication lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			c.Abort()
			return
		}
		if user == nil {
			unauthorized(c)
			return
		}
		c.Set(userContextKey, *user)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="field-worksheet-api"`)
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	c.Abort()
}

// currentUser returns the authenticated principal set by authMiddleware.
func currentUser(c *gin.Context) models.AuthUser {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(models.AuthUser); ok {
			return user
		}
	}
	return models.AuthUser{}
}

// requireAdministrator gates account management endpoints.
func requireAdministrator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdministrator() {
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireOperator gates imports, generation and resets.
func requireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).CanOperate() {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// respondError maps a domain error onto an HTTP status. Storage causes
// are logged but never echoed to the client.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var de *models.DomainError
	if !errors.As(err, &de) {
		log.Error().Err(err).Msg("Unclassified error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch de.Kind {
	case models.KindValidation, models.KindSchemaMismatch:
		c.JSON(http.StatusBadRequest, gin.H{"error": de.Message})
	case models.KindDuplicateUsername:
		c.JSON(http.StatusConflict, gin.H{"error": de.Message})
	case models.KindProtectedAccount:
		c.JSON(http.StatusForbidden, gin.H{"error": de.Message})
	case models.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": de.Message})
	default:
		log.Error().Err(err).Msg("Storage error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
