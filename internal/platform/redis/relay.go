package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/mission-control/internal/events"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
)

var (
	// ErrRelayStarted is returned by Start on a relay that is already subscribed.
	ErrRelayStarted = errors.New("relay already started")

	// ErrEmptyInstance is returned when no instance name is configured.
	ErrEmptyInstance = errors.New("instance name cannot be empty")
)

// ActivityEventsChannel returns the Pub/Sub channel for an instance namespace.
func ActivityEventsChannel(instance string) string {
	return fmt.Sprintf("mc:%s:activity_events", instance)
}

// NewClient parses a redis:// or rediss:// URL and returns a client.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// RelayStats are cumulative counters.
type RelayStats struct {
	Published int64
	Forwarded int64
	Rejected  int64
}

// Relay publishes events to Redis and forwards received events to a local handler.
// It implements both events.EventEmitter and events.EventHandler, so it can be
// registered in place of the hub on an InMemoryEventEmitter.
type Relay struct {
	rdb     *goredis.Client
	channel string
	local   events.EventHandler
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	published atomic.Int64
	forwarded atomic.Int64
	rejected  atomic.Int64
}

// NewRelay creates a relay for instance that forwards received events to local.
func NewRelay(rdb *goredis.Client, instance string, local events.EventHandler, log *slog.Logger) (*Relay, error) {
	if rdb == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if local == nil {
		return nil, errors.New("local handler cannot be nil")
	}
	if instance == "" {
		return nil, ErrEmptyInstance
	}
	if log == nil {
		log = slog.Default()
	}
	channel := ActivityEventsChannel(instance)
	return &Relay{
		rdb:     rdb,
		channel: channel,
		local:   local,
		logger:  log.With(slog.String("component", "redis_relay"), slog.String("channel", channel)),
	}, nil
}

// Channel returns the Pub/Sub channel name.
func (r *Relay) Channel() string {
	return r.channel
}

// EmitEvent publishes e. The event reaches the local hub through the
// subscription, like every other instance.
func (r *Relay) EmitEvent(ctx context.Context, e *events.Event) error {
	frame, err := events.Encode(e)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	r.published.Add(1)
	return nil
}

// HandleEvent implements events.EventHandler by publishing e.
func (r *Relay) HandleEvent(ctx context.Context, e *events.Event) error {
	return r.EmitEvent(ctx, e)
}

// Start subscribes and returns once Redis has confirmed the subscription.
// Received events are forwarded until ctx is cancelled or Close is called.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return ErrRelayStarted
	}

	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.forward(subCtx, pubsub, r.done)

	r.logger.Info("redis relay subscribed")
	return nil
}

func (r *Relay) forward(ctx context.Context, pubsub *goredis.PubSub, done chan struct{}) {
	defer close(done)
	defer pubsub.Close()

	log := logger.FromContextOrDefault(ctx, r.logger)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := events.Decode([]byte(msg.Payload))
			if err != nil {
				r.rejected.Add(1)
				log.Warn("discarding malformed relay message", redact.ErrorAttr(err))
				continue
			}
			if err := r.local.HandleEvent(ctx, ev); err != nil {
				log.Warn("local handler rejected relayed event", redact.ErrorAttr(err))
				continue
			}
			r.forwarded.Add(1)
		}
	}
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() RelayStats {
	return RelayStats{
		Published: r.published.Load(),
		Forwarded: r.forwarded.Load(),
		Rejected:  r.rejected.Load(),
	}
}

// Close stops the subscription and waits for the forwarding goroutine. It does
// not close the Redis client.
func (r *Relay) Close() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
