package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smartcamera-hub/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("instance_id", cfg.InstanceID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, cameraID string) zerolog.Logger {
	return base.With().Str("camera_id", cameraID).Logger()
}

func WithConnection(base zerolog.Logger, connID string) zerolog.Logger {
	return base.With().Str("connection_id", connID).Logger()
}
