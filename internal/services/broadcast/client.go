package broadcast

import (
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	perr "smartcamera-hub/internal/errors"
	"smartcamera-hub/internal/logging"
)

// Client frame actions
const (
	ActionJoinCamera      = "JoinCameraGroup"
	ActionLeaveCamera     = "LeaveCameraGroup"
	ActionJoinAllCameras  = "JoinAllCameras"
	ActionLeaveAllCameras = "LeaveAllCameras"
)

// ClientConfig bounds one websocket connection
type ClientConfig struct {
	OutboxSize   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	ReadLimit    int64
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.OutboxSize <= 0 {
		c.OutboxSize = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 4096
	}
	return c
}

type clientFrame struct {
	Action   string `json:"action"`
	CameraID string `json:"cameraId"`
}

// Client adapts one gorilla websocket to the hub. Reads happen on the
// goroutine calling Serve, writes on a dedicated writer goroutine.
type Client struct {
	id  string
	ws  *websocket.Conn
	hub *Hub
	cfg ClientConfig
	log zerolog.Logger

	outbox    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ Conn = (*Client)(nil)

// NewClient wraps an upgraded websocket
func NewClient(id string, ws *websocket.Conn, hub *Hub, cfg ClientConfig, logger zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		id:     id,
		ws:     ws,
		hub:    hub,
		cfg:    cfg,
		log:    logging.WithConnection(logger, id),
		outbox: make(chan Event, cfg.OutboxSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Deliver queues ev without blocking
func (c *Client) Deliver(ev Event) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.outbox <- ev:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Serve registers the client with the hub and blocks until the peer goes away
func (c *Client) Serve() error {
	if err := c.hub.OnConnect(c); err != nil {
		_ = c.Close()
		return err
	}
	c.log.Info().Msg("Viewer connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.readPump()

	c.hub.OnDisconnect(c.id)
	_ = c.Close()
	<-writerDone
	c.log.Info().Msg("Viewer disconnected")
	return nil
}

func (c *Client) readPump() {
	pongWait := 2 * c.cfg.PingInterval
	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("Websocket read ended")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		if err := c.handle(data); err != nil {
			c.log.Debug().Err(err).Msg("Rejected client frame")
			_ = c.Deliver(Event{Name: EventError, Payload: perr.WireFrom(err)})
		}
	}
}

func (c *Client) handle(data []byte) error {
	var f clientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "malformed frame")
	}

	switch f.Action {
	case ActionJoinCamera, ActionLeaveCamera:
		cameraID := strings.TrimSpace(f.CameraID)
		if cameraID == "" {
			return perr.Validationf("cameraId is required for %s", f.Action)
		}
		if f.Action == ActionJoinCamera {
			return c.hub.JoinGroup(c.id, CameraGroup(cameraID))
		}
		return c.hub.LeaveGroup(c.id, CameraGroup(cameraID))
	case ActionJoinAllCameras:
		return c.hub.JoinGroup(c.id, GroupAllCameras)
	case ActionLeaveAllCameras:
		return c.hub.LeaveGroup(c.id, GroupAllCameras)
	default:
		return perr.Validationf("unknown action %q", f.Action)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.outbox:
			body, err := json.Marshal(ev)
			if err != nil {
				c.log.Error().Err(err).Str("event", ev.Name).Msg("Failed to encode event")
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, body); err != nil {
				c.log.Debug().Err(err).Msg("Websocket write failed")
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
