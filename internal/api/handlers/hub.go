package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"smartcamera-hub/internal/services/broadcast"
)

type HubHandler struct {
	hub      *broadcast.Hub
	cfg      broadcast.ClientConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHubHandler upgrades viewers whose Origin passes originAllowed. Clients
// that send no Origin (non-browser) are always accepted.
func NewHubHandler(hub *broadcast.Hub, cfg broadcast.ClientConfig, originAllowed func(origin string) bool, logger zerolog.Logger) *HubHandler {
	return &HubHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origin)
			},
		},
		log: logger,
	}
}

// @Summary Real-time results channel
// @Description Websocket. Send {"action":"JoinCameraGroup","cameraId":"cam-1"}, LeaveCameraGroup, JoinAllCameras or LeaveAllCameras. Receives {"event":"ReceiveDetectionResult"|"ReceiveAlert"|"CameraStatusUpdate","data":{...}}.
// @Tags hub
// @Success 101 "Switching Protocols"
// @Router /hubs/results [get]
func (h *HubHandler) Connect(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", c.ClientIP()).Msg("Websocket upgrade failed")
		return
	}

	client := broadcast.NewClient(uuid.NewString(), ws, h.hub, h.cfg, h.log)
	if err := client.Serve(); err != nil {
		h.log.Warn().Err(err).Msg("Viewer connection rejected")
	}
}
