package ingest

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	perr "smartcamera-hub/internal/errors"
	"smartcamera-hub/internal/logging"
	"smartcamera-hub/internal/models"
	"smartcamera-hub/internal/services/broadcast"
)

// Publisher is the slice of the message gateway the coordinator needs
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
	IsConnected() bool
}

// Broadcaster fans events out to live viewers
type Broadcaster interface {
	Send(key, event string, payload any) int
}

// Evaluator decides whether a batch raises an alert
type Evaluator interface {
	Evaluate(batch *models.DetectionBatch) *models.Alert
}

// Outcome reports what an accepted batch triggered
type Outcome struct {
	CameraID         string        `json:"cameraId"`
	CameraViewers    int           `json:"cameraViewers"`
	AllCameraViewers int           `json:"allCameraViewers"`
	AlertViewers     int           `json:"alertViewers"`
	Alert            *models.Alert `json:"alert,omitempty"`
}

// Service is the ingest coordinator. Detection batches go to the hub only;
// camera lifecycle events go to the broker.
type Service struct {
	exchange string
	hub      Broadcaster
	policy   Evaluator
	log      zerolog.Logger
	now      func() time.Time

	gwMu    sync.RWMutex
	gateway Publisher
}

// NewService wires the coordinator. gateway may be nil and attached later
// with SetGateway once the broker becomes reachable.
func NewService(exchange string, gateway Publisher, hub Broadcaster, policy Evaluator, logger zerolog.Logger) (*Service, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, perr.Validationf("exchange is required")
	}
	if hub == nil {
		return nil, perr.Validationf("broadcaster is required")
	}
	if policy == nil {
		return nil, perr.Validationf("alert policy is required")
	}
	return &Service{
		exchange: exchange,
		gateway:  gateway,
		hub:      hub,
		policy:   policy,
		log:      logger,
		now:      time.Now,
	}, nil
}

// SetGateway attaches or replaces the broker publisher
func (s *Service) SetGateway(gw Publisher) {
	s.gwMu.Lock()
	s.gateway = gw
	s.gwMu.Unlock()
}

func (s *Service) publisher() Publisher {
	s.gwMu.RLock()
	defer s.gwMu.RUnlock()
	return s.gateway
}

// BrokerConnected reports whether camera events can currently be published
func (s *Service) BrokerConnected() bool {
	gw := s.publisher()
	return gw != nil && gw.IsConnected()
}

// Ingest validates batch, pushes it to the camera group and AllCameras, then
// pushes any alert to AllUsers. Fan-out failures never fail the call.
func (s *Service) Ingest(ctx context.Context, batch *models.DetectionBatch) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.FromContext(err, "ingest")
	}
	if batch == nil {
		return nil, perr.WithOp(perr.Validationf("Detection batch is required"), "ingest")
	}
	if strings.TrimSpace(batch.CameraID) == "" {
		return nil, perr.WithOp(perr.Validationf("CameraId is required"), "ingest")
	}
	if !batch.HasResult() {
		return nil, perr.WithOp(perr.Validationf("Result field is required"), "ingest")
	}
	if err := models.Validate(batch); err != nil {
		return nil, err
	}

	out := &Outcome{CameraID: batch.CameraID}
	out.CameraViewers = s.hub.Send(broadcast.CameraGroup(batch.CameraID), broadcast.EventDetectionResult, batch)
	out.AllCameraViewers = s.hub.Send(broadcast.GroupAllCameras, broadcast.EventDetectionResult, batch)

	if alert := s.policy.Evaluate(batch); alert != nil {
		out.Alert = alert
		out.AlertViewers = s.hub.Send(broadcast.GroupAllUsers, broadcast.EventAlert, alert)
	}

	l := logging.WithCamera(s.log, batch.CameraID)
	l.Debug().
		Str("worker_id", batch.WorkerID).
		Int("detection_count", batch.DetectionCount).
		Int("camera_viewers", out.CameraViewers).
		Int("all_camera_viewers", out.AllCameraViewers).
		Bool("alert", out.Alert != nil).
		Msg("Detection batch broadcast")
	if out.Alert != nil {
		l.Info().
			Str("alert_id", out.Alert.ID).
			Str("severity", string(out.Alert.Severity)).
			Int("viewers", out.AlertViewers).
			Msg(out.Alert.Message)
	}
	return out, nil
}

// PublishCameraEvent publishes a lifecycle event with its type as routing key.
// A status change is also pushed to the camera's live viewers once published.
func (s *Service) PublishCameraEvent(ctx context.Context, event *models.CameraEvent) error {
	if event == nil {
		return perr.WithOp(perr.Validationf("camera event is required"), "camera_event")
	}
	if err := models.Validate(event); err != nil {
		return err
	}

	gw := s.publisher()
	if gw == nil {
		cause := perr.Connectionf("message gateway is not connected")
		return perr.WithOp(perr.Wrap(cause, perr.ErrorCodeUnavailable, "camera event not published"), "camera_event")
	}

	if err := gw.Publish(ctx, s.exchange, string(event.Event), event.Payload(s.now().UTC())); err != nil {
		return err
	}

	id := strconv.Itoa(event.Camera.ID)
	s.log.Info().
		Str("camera_id", id).
		Str("routing_key", string(event.Event)).
		Msg("Camera event published")

	if event.Event == models.CameraStatusUpdated {
		s.BroadcastCameraStatus(id, event.Camera.Status)
	}
	return nil
}

// BroadcastCameraStatus pushes {cameraId, status} to the camera's group
func (s *Service) BroadcastCameraStatus(cameraID string, status any) int {
	return s.hub.Send(broadcast.CameraGroup(cameraID), broadcast.EventCameraStatus, models.CameraStatusUpdate{
		CameraID: cameraID,
		Status:   status,
	})
}
