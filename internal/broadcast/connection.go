package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

// State is the lifecycle position of a Connection.
type State int32

// Connection states. A connection only moves forward: CONNECTING to OPEN, then
// to exactly one of CLOSED or ERRORED.
const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	// ErrHubClosed is returned when registering with a hub that has shut down.
	ErrHubClosed = errors.New("broadcast hub is closed")

	// ErrQueueFull marks a connection dropped because it could not keep up.
	ErrQueueFull = errors.New("connection send queue is full")

	// ErrConnectionNotOpen is returned when a connection is registered twice,
	// registered after it finished, or served before registration.
	ErrConnectionNotOpen = errors.New("connection is not open")
)

// Sink is the transport a Connection writes frames to. WriteFrame must push the
// frame to the client before returning.
type Sink interface {
	WriteFrame(frame []byte) error
}

// ResponseSink writes frames to an HTTP response and flushes after each one.
type ResponseSink struct {
	w  io.Writer
	rc *http.ResponseController
}

// NewResponseSink wraps w. The caller is responsible for the stream headers.
func NewResponseSink(w http.ResponseWriter) *ResponseSink {
	return &ResponseSink{w: w, rc: http.NewResponseController(w)}
}

// WriteFrame implements Sink.
func (s *ResponseSink) WriteFrame(frame []byte) error {
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	return s.rc.Flush()
}

// ConnectionStats is a snapshot of one connection's counters.
type ConnectionStats struct {
	Sent       uint64
	Heartbeats uint64
}

// Connection is a single live client. Create it with Hub.NewConnection.
type Connection struct {
	id        uuid.UUID
	hub       *Hub
	sink      Sink
	queue     chan []byte
	heartbeat time.Duration
	logger    *slog.Logger

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
	err       error // set once inside closeOnce, read after done is closed

	sent       atomic.Uint64
	heartbeats atomic.Uint64
}

// ID identifies the connection in logs.
func (c *Connection) ID() uuid.UUID { return c.id }

// State returns the current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Done is closed once the connection reaches CLOSED or ERRORED.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Err returns the failure that moved the connection to ERRORED. It is nil while
// the connection is running and after a clean close.
func (c *Connection) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Stats returns the connection's counters.
func (c *Connection) Stats() ConnectionStats {
	return ConnectionStats{Sent: c.sent.Load(), Heartbeats: c.heartbeats.Load()}
}

// Close moves the connection to CLOSED and removes it from its hub. It is safe
// to call more than once.
func (c *Connection) Close() {
	c.hub.remove(c, StateClosed, nil)
}

// offer queues frame without blocking. It reports false if the queue is full.
func (c *Connection) offer(frame []byte) bool {
	select {
	case c.queue <- frame:
		return true
	default:
		return false
	}
}

// finish records the terminal state. Only the first call has any effect, and it
// must be made while holding the hub lock.
func (c *Connection) finish(state State, err error) bool {
	first := false
	c.closeOnce.Do(func() {
		c.err = err
		c.state.Store(int32(state))
		close(c.done)
		first = true
	})
	return first
}

// Serve writes queued frames and heartbeats to the sink until the context is
// cancelled, the connection is closed, or a write fails. The connection is
// always unregistered and its heartbeat ticker stopped before Serve returns.
// The returned error is nil for a clean close. A connection that finished
// before Serve was called reports how it finished.
func (c *Connection) Serve(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}
	if c.State() != StateOpen {
		return ErrConnectionNotOpen
	}

	log := logger.FromContextOrDefault(ctx, c.logger)
	defer c.hub.remove(c, StateClosed, nil)

	// Register queued the connected sentinel; it goes out before any heartbeat.
	select {
	case frame := <-c.queue:
		if err := c.sink.WriteFrame(frame); err != nil {
			return c.fail(log, err)
		}
		c.sent.Add(1)
	default:
	}

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("stream client disconnected")
			return nil
		case <-c.done:
			return c.Err()
		case frame := <-c.queue:
			if c.State() != StateOpen {
				return c.Err()
			}
			if err := c.sink.WriteFrame(frame); err != nil {
				return c.fail(log, err)
			}
			c.sent.Add(1)
		case <-ticker.C:
			if err := c.sink.WriteFrame(c.hub.heartbeatFrame); err != nil {
				return c.fail(log, err)
			}
			c.heartbeats.Add(1)
		}
	}
}

func (c *Connection) fail(log *slog.Logger, err error) error {
	log.Debug("stream write failed, dropping connection", redact.ErrorAttr(err))
	c.hub.remove(c, StateErrored, err)
	return c.Err()
}
