package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"smartcamera-hub/internal/logging"
)

const HeaderRequestID = "X-Request-ID"

// Logger emits one structured line per request once the handler finished
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		var e *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			e = logging.Error(c)
		case status >= http.StatusBadRequest:
			e = logging.Warn(c)
		default:
			e = logging.Info(c)
		}
		e.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}

func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Interface("error", recovered).
			Str("request_id", c.GetString(logging.CtxRequestID)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("panic_recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

// OriginAllowed is the origin allowlist shared by CORS and the websocket
// upgrade. An empty list or one holding "*" allows every origin.
func OriginAllowed(origins []string) func(origin string) bool {
	if allowsAll(origins) {
		return func(string) bool { return true }
	}
	return func(origin string) bool { return lo.Contains(origins, origin) }
}

func allowsAll(origins []string) bool {
	return len(origins) == 0 || lo.Contains(origins, "*")
}

// CORS answers preflights and tags responses for the configured origins.
// Listed origins get credentials; a wildcard never does.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", HeaderRequestID, "Origin"},
		ExposeHeaders: []string{"Content-Length", HeaderRequestID},
		MaxAge:        24 * time.Hour,
	}
	if allowsAll(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOriginFunc = OriginAllowed(origins)
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(logging.CtxRequestID, requestID)
		c.Next()
	}
}

func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logging.CtxStartTime, time.Now())
		c.Next()
	}
}
