package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/mission-control/internal/api/shared"
	"github.com/phrazzld/mission-control/internal/broadcast"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

// StreamHub opens live stream connections.
type StreamHub interface {
	NewConnection(sink broadcast.Sink) *broadcast.Connection
	Register(conn *broadcast.Connection) error
}

// StreamHandler serves the live activity stream.
type StreamHandler struct {
	hub    StreamHub
	logger *slog.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(hub StreamHub, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StreamHandler")
	}
	return &StreamHandler{
		hub:    hub,
		logger: logger.With(slog.String("component", "stream_handler")),
	}
}

// Stream handles GET /api/sse. It blocks until the client goes away or the
// hub closes the connection.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", redact.ErrorAttr(err))
	}

	conn := h.hub.NewConnection(broadcast.NewResponseSink(w))
	if err := h.hub.Register(conn); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Stream unavailable", err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log = log.With(slog.String("connection_id", conn.ID().String()))
	log.Debug("stream opened")

	err := conn.Serve(logger.WithLogger(r.Context(), log))
	stats := conn.Stats()
	log.Debug("stream closed",
		slog.String("state", conn.State().String()),
		slog.Uint64("sent", stats.Sent),
		slog.Uint64("heartbeats", stats.Heartbeats),
		redact.ErrorAttr(err))
}
