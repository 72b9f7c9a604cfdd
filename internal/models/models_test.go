package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	perr "smartcamera-hub/internal/errors"
)

func TestDetectionAcceptsTypeAlias(t *testing.T) {
	var d Detection
	if err := json.Unmarshal([]byte(`{"type":"person","confidence":0.92,"boundingBox":{"x":100,"y":50,"width":80,"height":200}}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.ClassLabel != ClassPerson || d.Confidence != 0.92 || d.BoundingBox.Height != 200 {
		t.Fatalf("decoded = %+v", d)
	}

	if err := json.Unmarshal([]byte(`{"classLabel":"car","type":"person"}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.ClassLabel != "car" {
		t.Fatalf("classLabel should win over type, got %q", d.ClassLabel)
	}
}

func TestHasResult(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{``, false},
		{`null`, false},
		{`  null `, false},
		{`{}`, true},
		{`[]`, true},
		{`0`, true},
	}
	for _, c := range cases {
		b := DetectionBatch{Result: json.RawMessage(c.raw)}
		if got := b.HasResult(); got != c.want {
			t.Fatalf("HasResult(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestValidateBatch(t *testing.T) {
	ok := DetectionBatch{
		CameraID:       "cam-1",
		DetectionCount: 1,
		Detections:     []Detection{{ClassLabel: "person", Confidence: 0.5, BoundingBox: BoundingBox{Width: 1, Height: 1}}},
		Result:         json.RawMessage(`{}`),
	}
	if err := Validate(&ok); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}

	bad := ok
	bad.Detections = []Detection{{ClassLabel: "person", Confidence: 1.5}}
	err := Validate(&bad)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "confidence") {
		t.Fatalf("message should name the json field: %q", err.Error())
	}

	neg := ok
	neg.Detections = []Detection{{BoundingBox: BoundingBox{Width: -1}}}
	if err := Validate(&neg); err == nil || !strings.Contains(err.Error(), "width") {
		t.Fatalf("negative width accepted: %v", err)
	}

	neg = ok
	neg.ProcessingTimeMs = -3
	if err := Validate(&neg); err == nil {
		t.Fatalf("negative processing time accepted")
	}
}

func TestCameraEventPayload(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rec := CameraRecord{ID: 1, Name: "Main Entrance", RTSPURL: "rtsp://10.0.0.5:554/stream1", Location: "Lobby", Status: CameraStatusOnline}

	cases := []struct {
		event CameraEventType
		want  string
	}{
		{CameraRegistered, `{"id":1,"name":"Main Entrance","rtsp_url":"rtsp://10.0.0.5:554/stream1","location":"Lobby","created_at":"2026-10-15T12:00:00Z"}`},
		{CameraUpdated, `{"id":1,"name":"Main Entrance","location":"Lobby","updated_at":"2026-10-15T12:00:00Z"}`},
		{CameraDeleted, `{"id":1,"deleted_at":"2026-10-15T12:00:00Z"}`},
		{CameraStatusUpdated, `{"id":1,"status":"online","updated_at":"2026-10-15T12:00:00Z"}`},
	}
	for _, c := range cases {
		body, err := json.Marshal(CameraEvent{Event: c.event, Camera: rec}.Payload(now))
		if err != nil {
			t.Fatalf("%s: marshal: %v", c.event, err)
		}
		if string(body) != c.want {
			t.Fatalf("%s payload = %s, want %s", c.event, body, c.want)
		}
	}

	if (CameraEvent{Event: "camera.exploded", Camera: rec}).Payload(now) != nil {
		t.Fatalf("unknown event should have no payload")
	}
}

func TestValidateCameraEvent(t *testing.T) {
	if err := Validate(&CameraEvent{Event: CameraRegistered, Camera: CameraRecord{ID: 1}}); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if err := Validate(&CameraEvent{Event: "camera.moved", Camera: CameraRecord{ID: 1}}); err == nil {
		t.Fatalf("unknown routing key accepted")
	}
	if err := Validate(&CameraEvent{Event: CameraUpdated}); err == nil {
		t.Fatalf("missing camera id accepted")
	}
	if err := Validate(&CameraEvent{Event: CameraStatusUpdated, Camera: CameraRecord{ID: 1, Status: "melting"}}); err == nil {
		t.Fatalf("unknown status accepted")
	}
}
