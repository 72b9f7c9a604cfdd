package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// ClassPerson is the class label inference workers emit for people
const ClassPerson = "person"

// AlertSeverity represents the severity level of alerts
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "Low"
	AlertSeverityMedium   AlertSeverity = "Medium"
	AlertSeverityHigh     AlertSeverity = "High"
	AlertSeverityCritical AlertSeverity = "Critical"
)

// AlertTypeHighConfidencePerson is the alert type raised for confident person detections
const AlertTypeHighConfidencePerson = "High Confidence Person Detection"

// DetectionBatch is one inference cycle reported by an external worker
type DetectionBatch struct {
	CameraID         string          `json:"cameraId" validate:"required"`
	WorkerID         string          `json:"workerId"`
	Timestamp        time.Time       `json:"timestamp"`
	ProcessingTimeMs float64         `json:"processingTimeMs" validate:"gte=0"`
	DetectionCount   int             `json:"detectionCount" validate:"gte=0"`
	Detections       []Detection     `json:"detections" validate:"dive"`
	Result           json.RawMessage `json:"result" swaggertype:"object"`
}

// HasResult reports whether the opaque result payload is present and not JSON null
func (b *DetectionBatch) HasResult() bool {
	trimmed := bytes.TrimSpace(b.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Detection is a single object found in a frame
type Detection struct {
	ID          string      `json:"id,omitempty"`
	ClassLabel  string      `json:"classLabel"`
	Confidence  float64     `json:"confidence" validate:"gte=0,lte=1"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// UnmarshalJSON accepts the legacy worker field "type" as an alias for classLabel
func (d *Detection) UnmarshalJSON(data []byte) error {
	type plain Detection
	var aux struct {
		plain
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Detection(aux.plain)
	if d.ClassLabel == "" {
		d.ClassLabel = aux.Type
	}
	return nil
}

// BoundingBox is in pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width" validate:"gte=0"`
	Height int `json:"height" validate:"gte=0"`
}

// Alert is raised by the alert policy and pushed to every live viewer
type Alert struct {
	ID        string        `json:"id"`
	CameraID  string        `json:"cameraId"`
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Severity  AlertSeverity `json:"severity"`
}
