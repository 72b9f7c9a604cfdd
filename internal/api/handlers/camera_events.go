package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	perr "smartcamera-hub/internal/errors"
	"smartcamera-hub/internal/models"
)

// CameraEventPublisher forwards lifecycle events to the broker
type CameraEventPublisher interface {
	PublishCameraEvent(ctx context.Context, event *models.CameraEvent) error
}

type CameraEventsHandler struct {
	publisher CameraEventPublisher
}

func NewCameraEventsHandler(publisher CameraEventPublisher) *CameraEventsHandler {
	return &CameraEventsHandler{publisher: publisher}
}

type CameraEventResponse struct {
	Success    bool   `json:"success" example:"true"`
	RoutingKey string `json:"routing_key" example:"camera.registered"`
}

// @Summary Publish a camera lifecycle event
// @Description Called by the camera registry after a change is persisted. Publishes to the smartcamera topic exchange with the event type as routing key.
// @Tags cameras
// @Accept json
// @Produce json
// @Param event body models.CameraEvent true "Camera event"
// @Success 202 {object} CameraEventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/cameras/events [post]
func (h *CameraEventsHandler) Publish(c *gin.Context) {
	var event models.CameraEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondError(c, perr.Wrap(err, perr.ErrorCodeValidation, "invalid camera event"))
		return
	}

	if err := h.publisher.PublishCameraEvent(c.Request.Context(), &event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CameraEventResponse{Success: true, RoutingKey: string(event.Event)})
}
