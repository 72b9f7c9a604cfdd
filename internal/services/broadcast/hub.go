package broadcast

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	perr "smartcamera-hub/internal/errors"
)

var (
	// ErrUnknownConnection is returned for ids the hub does not hold
	ErrUnknownConnection = errors.New("connection is not registered")

	// ErrDuplicateConnection is returned by OnConnect for an id already registered
	ErrDuplicateConnection = errors.New("connection id already registered")

	// ErrOutboxFull is returned by Conn.Deliver when the connection cannot keep up
	ErrOutboxFull = errors.New("connection outbox is full")

	// ErrConnectionClosed is returned by Conn.Deliver after the connection went away
	ErrConnectionClosed = errors.New("connection is closed")
)

// Conn is a live viewer connection as seen by the hub.
// Deliver must not block; it either queues the event or fails.
type Conn interface {
	ID() string
	Deliver(ev Event) error
}

// Lifecycle is driven by the transport that owns the connections
type Lifecycle interface {
	OnConnect(conn Conn) error
	OnDisconnect(id string)
}

var _ Lifecycle = (*Hub)(nil)

type member struct {
	mu     sync.Mutex
	conn   Conn
	groups map[string]struct{}
	gone   bool
}

type group struct {
	mu      sync.RWMutex
	members map[string]*member
	// dead groups are empty and unlinked; joiners retry with a fresh group
	dead bool
}

// Stats is a point-in-time view of the hub
type Stats struct {
	Connections int    `json:"connections"`
	Groups      int    `json:"groups"`
	Events      uint64 `json:"events"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// Hub is the connection registry and group index.
// hub.mu guards the two maps only and is never held while taking a member
// or group lock. Lock order is member.mu then group.mu.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*member
	groups map[string]*group

	log zerolog.Logger

	events    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*member),
		groups: make(map[string]*group),
		log:    logger,
	}
}

// OnConnect registers conn and adds it to AllUsers
func (h *Hub) OnConnect(conn Conn) error {
	if conn == nil || strings.TrimSpace(conn.ID()) == "" {
		return perr.WithOp(perr.Validationf("connection id cannot be empty"), "hub.connect")
	}
	id := conn.ID()
	m := &member{conn: conn, groups: make(map[string]struct{})}

	h.mu.Lock()
	if _, exists := h.conns[id]; exists {
		h.mu.Unlock()
		return perr.WithOp(perr.Wrap(ErrDuplicateConnection, perr.ErrorCodeValidation, "connect rejected"), "hub.connect")
	}
	h.conns[id] = m
	h.mu.Unlock()

	if err := h.JoinGroup(id, GroupAllUsers); err != nil {
		return err
	}
	h.log.Debug().Str("connection_id", id).Msg("Connection registered")
	return nil
}

// OnDisconnect removes id from every group and from the registry.
// Unknown ids are ignored.
func (h *Hub) OnDisconnect(id string) {
	h.mu.Lock()
	m, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if !ok {
		return
	}

	m.mu.Lock()
	m.gone = true
	left := len(m.groups)
	for key := range m.groups {
		h.unlink(id, key)
	}
	m.groups = nil
	m.mu.Unlock()

	h.log.Debug().Str("connection_id", id).Int("groups_left", left).Msg("Connection removed")
}

// JoinGroup adds id to key. Joining twice is a no-op.
func (h *Hub) JoinGroup(id, key string) error {
	if strings.TrimSpace(key) == "" {
		return perr.WithOp(perr.Validationf("group key cannot be empty"), "hub.join")
	}
	m := h.member(id)
	if m == nil {
		return perr.WithOp(perr.Wrap(ErrUnknownConnection, perr.ErrorCodeValidation, "join rejected"), "hub.join")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gone {
		return perr.WithOp(perr.Wrap(ErrUnknownConnection, perr.ErrorCodeValidation, "join rejected"), "hub.join")
	}
	if _, ok := m.groups[key]; ok {
		return nil
	}

	for {
		g := h.groupFor(key)
		g.mu.Lock()
		if g.dead {
			g.mu.Unlock()
			h.dropGroup(key, g)
			continue
		}
		g.members[id] = m
		g.mu.Unlock()
		break
	}
	m.groups[key] = struct{}{}
	return nil
}

// LeaveGroup removes id from key. Leaving a group not joined is a no-op.
func (h *Hub) LeaveGroup(id, key string) error {
	m := h.member(id)
	if m == nil {
		return perr.WithOp(perr.Wrap(ErrUnknownConnection, perr.ErrorCodeValidation, "leave rejected"), "hub.leave")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[key]; !ok {
		return nil
	}
	h.unlink(id, key)
	delete(m.groups, key)
	return nil
}

// unlink removes id from the group side. Caller holds the member lock.
func (h *Hub) unlink(id, key string) {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return
	}

	g.mu.Lock()
	delete(g.members, id)
	empty := len(g.members) == 0
	if empty {
		g.dead = true
	}
	g.mu.Unlock()

	if empty {
		h.dropGroup(key, g)
	}
}

func (h *Hub) member(id string) *member {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[id]
}

func (h *Hub) groupFor(key string) *group {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g != nil {
		return g
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if g = h.groups[key]; g == nil {
		g = &group{members: make(map[string]*member)}
		h.groups[key] = g
	}
	return g
}

func (h *Hub) dropGroup(key string, g *group) {
	h.mu.Lock()
	if h.groups[key] == g {
		delete(h.groups, key)
	}
	h.mu.Unlock()
}

// Send hands the event to every current member of key and returns how many
// accepted it. Per-connection failures are logged and skipped.
func (h *Hub) Send(key, event string, payload any) int {
	h.events.Add(1)

	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return 0
	}

	g.mu.RLock()
	targets := lo.Values(g.members)
	g.mu.RUnlock()

	ev := Event{Name: event, Payload: payload}
	n := 0
	for _, m := range targets {
		if err := m.conn.Deliver(ev); err != nil {
			h.dropped.Add(1)
			ferr := perr.WithOp(perr.Wrapf(err, perr.ErrorCodeFanout, "deliver %s to %s", event, m.conn.ID()), "hub.send")
			h.log.Warn().Err(ferr).Str("group", key).Str("connection_id", m.conn.ID()).Msg("Fan-out delivery failed")
			continue
		}
		n++
	}
	h.delivered.Add(uint64(n))
	return n
}

// Members lists the connection ids in key, sorted
func (h *Hub) Members(key string) []string {
	h.mu.RLock()
	g := h.groups[key]
	h.mu.RUnlock()
	if g == nil {
		return nil
	}

	g.mu.RLock()
	ids := lo.Keys(g.members)
	g.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Groups lists the groups id belongs to, sorted
func (h *Hub) Groups(id string) []string {
	m := h.member(id)
	if m == nil {
		return nil
	}

	m.mu.Lock()
	keys := lo.Keys(m.groups)
	m.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Stats returns counters and registry sizes
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	conns, groups := len(h.conns), len(h.groups)
	h.mu.RUnlock()

	return Stats{
		Connections: conns,
		Groups:      groups,
		Events:      h.events.Load(),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Shutdown disconnects every connection and closes those that can be closed
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	members := lo.Values(h.conns)
	h.mu.RUnlock()

	for _, m := range members {
		if ctx.Err() != nil {
			return perr.FromContext(ctx.Err(), "hub.shutdown")
		}
		h.OnDisconnect(m.conn.ID())
		if c, ok := m.conn.(io.Closer); ok {
			_ = c.Close()
		}
	}
	h.log.Info().Int("connections", len(members)).Msg("Broadcast hub shut down")
	return nil
}
