package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smartcamera-hub/internal/services/broadcast"
)

// BrokerStatus reports broker reachability
type BrokerStatus interface {
	BrokerConnected() bool
}

// HubStats exposes hub counters
type HubStats interface {
	Stats() broadcast.Stats
}

type HealthHandler struct {
	InstanceID string
	Version    string
	broker     BrokerStatus
	hub        HubStats
}

func NewHealthHandler(instanceID, version string, broker BrokerStatus, hub HubStats) *HealthHandler {
	return &HealthHandler{InstanceID: instanceID, Version: version, broker: broker, hub: hub}
}

type HealthResponse struct {
	Status          string          `json:"status" example:"healthy"`
	InstanceID      string          `json:"instance_id" example:"smartcamera-1"`
	BrokerConnected bool            `json:"broker_connected" example:"true"`
	Hub             broadcast.Stats `json:"hub"`
}

type ServiceInfoResponse struct {
	InstanceID   string   `json:"instance_id" example:"smartcamera-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Liveness plus broker connectivity. Status is "degraded" while the broker is unreachable; real-time fan-out keeps working.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	connected := h.broker.BrokerConnected()
	status := "healthy"
	if !connected {
		status = "degraded"
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:          status,
		InstanceID:      h.InstanceID,
		BrokerConnected: connected,
		Hub:             h.hub.Stats(),
	})
}

// @Summary Service information
// @Tags health
// @Produce json
// @Success 200 {object} ServiceInfoResponse
// @Router / [get]
func (h *HealthHandler) ServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ServiceInfoResponse{
		InstanceID: h.InstanceID,
		Status:     "running",
		Version:    h.Version,
		Capabilities: []string{
			"detection_ingest",
			"realtime_broadcast",
			"camera_events",
		},
	})
}
