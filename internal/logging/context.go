package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys set on the gin context by the api middleware
const (
	CtxRequestID = "request_id"
	CtxStartTime = "start_time"
)

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if s := c.GetString(CtxRequestID); s != "" {
		e.Str("request_id", s)
	}
	// routes under /api/results/camera/:cameraId
	if s := c.Param("cameraId"); s != "" {
		e.Str("camera_id", s)
	}
	if v, ok := c.Get(CtxStartTime); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
