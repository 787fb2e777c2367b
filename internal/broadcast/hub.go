package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

// Defaults applied to zero Config fields.
const (
	DefaultClientBuffer      = 32
	DefaultHeartbeatInterval = 30 * time.Second
)

// Config tunes every connection created by a Hub.
type Config struct {
	// ClientBuffer is the per-connection send queue length.
	ClientBuffer int
	// HeartbeatInterval is the keep-alive period of each connection.
	HeartbeatInterval time.Duration
}

// Stats is a snapshot of hub-wide counters.
type Stats struct {
	Connections  int
	Registered   uint64
	Broadcasts   uint64
	FramesQueued uint64
	Dropped      uint64
}

// Hub is the set of open live-stream connections.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conns  map[*Connection]struct{}
	closed bool

	connectedFrame []byte
	heartbeatFrame []byte

	registered   atomic.Uint64
	broadcasts   atomic.Uint64
	framesQueued atomic.Uint64
	dropped      atomic.Uint64
}

var _ events.EventHandler = (*Hub)(nil)

// NewHub creates an empty hub. If logger is nil, slog.Default() is used.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultClientBuffer
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:            cfg,
		logger:         logger.With(slog.String("component", "broadcast_hub")),
		conns:          make(map[*Connection]struct{}),
		connectedFrame: mustEncode(events.Connected()),
		heartbeatFrame: mustEncode(events.Heartbeat()),
	}
}

func mustEncode(e *events.Event) []byte {
	frame, err := events.Encode(e)
	if err != nil {
		panic(err)
	}
	return frame
}

// NewConnection creates a connection in the CONNECTING state that writes to sink.
func (h *Hub) NewConnection(sink Sink) *Connection {
	id := uuid.New()
	return &Connection{
		id:        id,
		hub:       h,
		sink:      sink,
		queue:     make(chan []byte, h.cfg.ClientBuffer),
		heartbeat: h.cfg.HeartbeatInterval,
		logger:    h.logger.With(slog.String("connection_id", id.String())),
		done:      make(chan struct{}),
	}
}

// Register opens conn and adds it to the hub. The "connected" sentinel is queued
// before the connection becomes visible to Broadcast, so it is always the first
// frame the client sees.
func (h *Hub) Register(conn *Connection) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if conn.hub != h || !conn.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return ErrConnectionNotOpen
	}

	conn.offer(h.connectedFrame)
	h.conns[conn] = struct{}{}
	h.registered.Add(1)

	h.logger.Debug("stream client registered",
		slog.String("connection_id", conn.id.String()),
		slog.Int("connections", len(h.conns)))
	return nil
}

// Unregister closes conn and removes it from the hub. Unknown or already
// finished connections are ignored.
func (h *Hub) Unregister(conn *Connection) {
	h.remove(conn, StateClosed, nil)
}

// remove deletes conn from the set and finishes it in one critical section, so
// no Broadcast can observe a finished connection in the set.
func (h *Hub) remove(conn *Connection, state State, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn, state, err)
}

func (h *Hub) removeLocked(conn *Connection, state State, err error) {
	_, present := h.conns[conn]
	delete(h.conns, conn)
	if conn.finish(state, err) && present {
		h.logger.Debug("stream client unregistered",
			slog.String("connection_id", conn.id.String()),
			slog.String("state", state.String()),
			slog.Int("connections", len(h.conns)))
	}
}

// Broadcast queues ev for every open connection and returns how many accepted
// it. Connections whose queue is full are moved to ERRORED and removed.
func (h *Hub) Broadcast(ctx context.Context, ev *events.Event) int {
	log := logger.FromContextOrDefault(ctx, h.logger)

	frame, err := events.Encode(ev)
	if err != nil {
		log.Error("failed to encode broadcast event", redact.ErrorAttr(err))
		return 0
	}
	h.broadcasts.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()

	queued := 0
	var slow []*Connection
	for conn := range h.conns {
		if conn.State() != StateOpen {
			continue
		}
		if conn.offer(frame) {
			queued++
			continue
		}
		slow = append(slow, conn)
	}
	for _, conn := range slow {
		h.removeLocked(conn, StateErrored, ErrQueueFull)
	}

	h.framesQueued.Add(uint64(queued))
	h.dropped.Add(uint64(len(slow)))
	if len(slow) > 0 {
		log.Warn("dropped slow stream clients",
			slog.Int("dropped", len(slow)),
			slog.Int("delivered", queued))
	}
	log.Debug("broadcast event",
		slog.String("event_type", string(ev.Type)),
		slog.Int("delivered", queued))
	return queued
}

// HandleEvent implements events.EventHandler. Per-connection failures never
// surface to the publisher.
func (h *Hub) HandleEvent(ctx context.Context, ev *events.Event) error {
	h.Broadcast(ctx, ev)
	return nil
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Stats returns hub-wide counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections:  h.Count(),
		Registered:   h.registered.Load(),
		Broadcasts:   h.broadcasts.Load(),
		FramesQueued: h.framesQueued.Load(),
		Dropped:      h.dropped.Load(),
	}
}

// Close closes every connection and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	n := len(h.conns)
	for conn := range h.conns {
		h.removeLocked(conn, StateClosed, nil)
	}
	h.logger.Info("broadcast hub closed", slog.Int("closed_connections", n))
}
