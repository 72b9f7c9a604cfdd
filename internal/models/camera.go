package models

import (
	"time"
)

// CameraEventType doubles as the broker routing key
type CameraEventType string

const (
	CameraRegistered    CameraEventType = "camera.registered"
	CameraUpdated       CameraEventType = "camera.updated"
	CameraDeleted       CameraEventType = "camera.deleted"
	CameraStatusUpdated CameraEventType = "camera.status.updated"
)

// CameraStatus mirrors the lowercase status names the camera registry publishes
type CameraStatus string

const (
	CameraStatusOnline      CameraStatus = "online"
	CameraStatusOffline     CameraStatus = "offline"
	CameraStatusMaintenance CameraStatus = "maintenance"
	CameraStatusError       CameraStatus = "error"
)

// CameraRecord is the subset of a persisted camera that lifecycle events carry.
// The record itself lives in the camera registry, not here.
type CameraRecord struct {
	ID        int          `json:"id" validate:"required,gt=0"`
	Name      string       `json:"name"`
	RTSPURL   string       `json:"rtsp_url"`
	Location  string       `json:"location"`
	Status    CameraStatus `json:"status" validate:"omitempty,oneof=online offline maintenance error"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CameraEvent is handed to the core after the camera registry has persisted a change
type CameraEvent struct {
	Event  CameraEventType `json:"event" validate:"required,oneof=camera.registered camera.updated camera.deleted camera.status.updated"`
	Camera CameraRecord    `json:"camera" validate:"required"`
}

type CameraRegisteredPayload struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	RTSPURL   string    `json:"rtsp_url"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

type CameraUpdatedPayload struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CameraDeletedPayload struct {
	ID        int       `json:"id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type CameraStatusPayload struct {
	ID        int          `json:"id"`
	Status    CameraStatus `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Payload builds the broker body for the event. now stamps fields the
// registry did not fill in (deleted_at, missing updated_at).
func (e CameraEvent) Payload(now time.Time) any {
	c := e.Camera
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	switch e.Event {
	case CameraRegistered:
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		return CameraRegisteredPayload{ID: c.ID, Name: c.Name, RTSPURL: c.RTSPURL, Location: c.Location, CreatedAt: created}
	case CameraUpdated:
		return CameraUpdatedPayload{ID: c.ID, Name: c.Name, Location: c.Location, UpdatedAt: updated}
	case CameraDeleted:
		return CameraDeletedPayload{ID: c.ID, DeletedAt: now}
	case CameraStatusUpdated:
		return CameraStatusPayload{ID: c.ID, Status: c.Status, UpdatedAt: updated}
	default:
		return nil
	}
}

// CameraStatusUpdate is the real-time push sent to a camera group
type CameraStatusUpdate struct {
	CameraID string `json:"cameraId"`
	Status   any    `json:"status"`
}
