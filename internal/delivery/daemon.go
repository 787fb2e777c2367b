package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mission-control/internal/config"
	"github.com/phrazzld/mission-control/internal/domain"
	"github.com/phrazzld/mission-control/internal/platform/logger"
	"github.com/phrazzld/mission-control/internal/redact"
	"github.com/sethvargo/go-retry"
)

// Defaults applied to zero Config fields.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultBatchSize    = 500
)

var (
	// ErrPollInProgress is returned by PollOnce while another cycle runs.
	ErrPollInProgress = errors.New("delivery poll already in progress")

	// ErrAlreadyRunning is returned when Run is called twice on one daemon.
	ErrAlreadyRunning = errors.New("delivery daemon already running")
)

// Queue is the part of the notification queue the daemon drives.
type Queue interface {
	ListUndelivered(ctx context.Context, limit int) ([]domain.PendingNotification, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
}

// State is the daemon's lifecycle state.
type State int32

// Daemon states.
const (
	StateStartup State = iota
	StatePolling
	StateDelivering
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "startup"
	case StatePolling:
		return "polling"
	case StateDelivering:
		return "delivering"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config tunes a Daemon.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxBackoff caps the pause after consecutive failed cycles. Zero disables
	// backoff and the daemon keeps polling on every tick.
	MaxBackoff time.Duration
}

// ConfigFrom converts the loaded application settings.
func ConfigFrom(c config.DeliveryConfig) Config {
	return Config{
		PollInterval: c.PollInterval,
		BatchSize:    c.BatchSize,
		MaxBackoff:   c.MaxBackoff,
	}
}

// CycleResult reports one poll cycle.
type CycleResult struct {
	Pending   int
	Delivered int
	Failed    int
	Errors    []error
}

// Stats are cumulative counters since the daemon was created.
type Stats struct {
	Cycles       int64
	FailedCycles int64
	Skipped      int64
	Delivered    int64
	Failed       int64
}

// Daemon periodically marks undelivered notifications delivered.
type Daemon struct {
	queue  Queue
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	state    atomic.Int32
	running  atomic.Bool
	inFlight atomic.Bool

	cycles       atomic.Int64
	failedCycles atomic.Int64
	skipped      atomic.Int64
	delivered    atomic.Int64
	failed       atomic.Int64

	mu           sync.Mutex
	backoff      retry.Backoff
	backoffUntil time.Time
}

// NewDaemon creates a Daemon in the startup state. If logger is nil,
// slog.Default() is used.
func NewDaemon(queue Queue, cfg Config, log *slog.Logger) *Daemon {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxBackoff < 0 {
		cfg.MaxBackoff = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		queue:  queue,
		cfg:    cfg,
		logger: log.With(slog.String("component", "delivery_daemon")),
		now:    time.Now,
	}
}

// State returns the current lifecycle state.
func (d *Daemon) State() State {
	return State(d.state.Load())
}

// Stats returns a snapshot of the cumulative counters.
func (d *Daemon) Stats() Stats {
	return Stats{
		Cycles:       d.cycles.Load(),
		FailedCycles: d.failedCycles.Load(),
		Skipped:      d.skipped.Load(),
		Delivered:    d.delivered.Load(),
		Failed:       d.failed.Load(),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled. It does
// not wait for an in-flight cycle on shutdown; that cycle sees the cancelled ctx.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	d.state.Store(int32(StatePolling))
	d.logger.Info("delivery daemon started",
		slog.Duration("poll_interval", d.cfg.PollInterval),
		slog.Int("batch_size", d.cfg.BatchSize),
		slog.Duration("max_backoff", d.cfg.MaxBackoff))

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.state.Store(int32(StateShutdown))
			d.logger.Info("delivery daemon stopped", slog.Int64("cycles", d.cycles.Load()))
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick starts a cycle in its own goroutine unless one is outstanding or the
// daemon is backing off.
func (d *Daemon) tick(ctx context.Context) {
	if until, ok := d.backingOff(); ok {
		d.skipped.Add(1)
		d.logger.Debug("skipping tick during backoff", slog.Time("until", until))
		return
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.skipped.Add(1)
		d.logger.Debug("skipping tick, poll still in progress")
		return
	}

	go func() {
		defer d.inFlight.Store(false)
		_, _ = d.cycle(ctx)
	}()
}

// PollOnce runs a single cycle synchronously. It returns ErrPollInProgress
// when another cycle holds the guard.
func (d *Daemon) PollOnce(ctx context.Context) (CycleResult, error) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return CycleResult{}, ErrPollInProgress
	}
	defer d.inFlight.Store(false)
	return d.cycle(ctx)
}

// cycle must only be called while holding the in-flight guard.
func (d *Daemon) cycle(ctx context.Context) (CycleResult, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)
	d.state.CompareAndSwap(int32(StatePolling), int32(StateDelivering))
	defer d.state.CompareAndSwap(int32(StateDelivering), int32(StatePolling))
	d.cycles.Add(1)

	var result CycleResult
	pending, err := d.queue.ListUndelivered(ctx, d.cfg.BatchSize)
	if err != nil {
		d.failedCycles.Add(1)
		d.recordFailure()
		log.Error("delivery poll failed", redact.ErrorAttr(err))
		return result, err
	}
	result.Pending = len(pending)

	for _, n := range pending {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}
		if _, err := d.queue.MarkDelivered(ctx, n.ID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("notification %s: %w", n.ID, err))
			log.Warn("failed to mark notification delivered",
				redact.ErrorAttr(err),
				slog.String("notification_id", n.ID.String()))
			continue
		}
		result.Delivered++
	}

	d.delivered.Add(int64(result.Delivered))
	d.failed.Add(int64(result.Failed))
	d.recordSuccess()

	if result.Pending == 0 {
		log.Debug("no undelivered notifications")
		return result, nil
	}
	log.Info("delivery cycle finished",
		slog.Int("pending", result.Pending),
		slog.Int("delivered", result.Delivered),
		slog.Int("failed", result.Failed))
	return result, nil
}

func (d *Daemon) backingOff() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backoffUntil.IsZero() {
		return time.Time{}, false
	}
	return d.backoffUntil, d.now().Before(d.backoffUntil)
}

func (d *Daemon) recordFailure() {
	if d.cfg.MaxBackoff == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backoff == nil {
		d.backoff = retry.WithCappedDuration(d.cfg.MaxBackoff, retry.NewExponential(d.cfg.PollInterval))
	}
	wait, _ := d.backoff.Next()
	d.backoffUntil = d.now().Add(wait)
	d.logger.Warn("delivery backing off", slog.Duration("wait", wait))
}

func (d *Daemon) recordSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backoff = nil
	d.backoffUntil = time.Time{}
}
